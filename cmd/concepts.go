package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/solvencykit/scrkb-cli/internal/model"
)

var conceptsModule string

var conceptsCmd = &cobra.Command{
	Use:   "concepts",
	Short: "List extracted SCR concepts for a module",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		module, err := model.ParseModule(conceptsModule)
		if err != nil {
			return err
		}

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		concepts, err := st.GetConceptsByModule(ctx, module)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(concepts); err != nil {
			return eris.Wrap(err, "encode concepts")
		}
		return nil
	},
}

func init() {
	conceptsCmd.Flags().StringVar(&conceptsModule, "scr-module", "", "SCR module (required)")
	_ = conceptsCmd.MarkFlagRequired("scr-module")
	rootCmd.AddCommand(conceptsCmd)
}
