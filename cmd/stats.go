package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/solvencykit/scrkb-cli/internal/model"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print knowledge base statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.Statistics(ctx)
		if err != nil {
			return err
		}

		out := struct {
			KnowledgeBase *model.Statistics `json:"knowledge_base"`
			System        systemInfo        `json:"system"`
		}{
			KnowledgeBase: stats,
			System: systemInfo{
				StoreDriver:         cfg.Store.Driver,
				LogLevel:            cfg.Log.Level,
				SupportedSCRModules: model.AllModules(),
				SupportedProviders:  model.AllProviders(),
			},
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return eris.Wrap(err, "encode statistics")
		}
		return nil
	},
}

type systemInfo struct {
	StoreDriver         string             `json:"store_driver"`
	LogLevel            string             `json:"log_level"`
	SupportedSCRModules []model.SCRModule  `json:"supported_scr_modules"`
	SupportedProviders  []model.AIProvider `json:"supported_ai_providers"`
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
