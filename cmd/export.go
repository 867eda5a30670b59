package main

import (
	"github.com/spf13/cobra"

	"github.com/solvencykit/scrkb-cli/internal/export"
)

var (
	exportOutput string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the knowledge base to a file",
	Long:  "Writes every document and concept to a single JSON, YAML or XLSX file, or to a pair of CSV files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := export.ParseFormat(exportFormat)
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

		return export.NewExporter(st).Export(ctx, exportOutput, format)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "scr_knowledge_export.json", "output file path")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "export format (json, csv, yaml, xlsx)")
	rootCmd.AddCommand(exportCmd)
}
