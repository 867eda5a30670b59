package main

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solvencykit/scrkb-cli/internal/ingest"
	"github.com/solvencykit/scrkb-cli/internal/model"
)

var (
	addType        string
	addModules     []string
	addTitle       string
	addURL         string
	addLanguage    string
	addReliability float64
	addDate        string
)

var addCmd = &cobra.Command{
	Use:   "add <locator>",
	Short: "Ingest a document (local file or URL) into the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		docType, err := model.ParseDocType(addType)
		if err != nil {
			return err
		}
		modules, err := parseModules(addModules)
		if err != nil {
			return err
		}

		ov := ingest.Overrides{
			Title:    addTitle,
			URL:      addURL,
			Language: addLanguage,
		}
		if cmd.Flags().Changed("reliability") {
			ov.Reliability = &addReliability
		}
		if addDate != "" {
			d, err := time.Parse("2006-01-02", addDate)
			if err != nil {
				return eris.Wrapf(err, "parse --date %q (want YYYY-MM-DD)", addDate)
			}
			ov.PublicationDate = &d
		}

		env, err := initIngest(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Orchestrator.AddDocument(ctx, args[0], docType, modules, ov)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return eris.Wrap(err, "encode result")
		}

		if !result.Success {
			zap.L().Error("ingestion failed", zap.String("reason", result.Reason))
			return eris.Errorf("ingestion failed: %s", result.Reason)
		}
		return nil
	},
}

func parseModules(raw []string) ([]model.SCRModule, error) {
	var modules []model.SCRModule
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			m, err := model.ParseModule(part)
			if err != nil {
				return nil, err
			}
			modules = append(modules, m)
		}
	}
	if len(modules) == 0 {
		return nil, eris.New("at least one --module is required")
	}
	return modules, nil
}

func init() {
	addCmd.Flags().StringVar(&addType, "type", "", "document type (regulation_eu, directive, eiopa_guidelines, ...)")
	addCmd.Flags().StringSliceVar(&addModules, "module", nil, "SCR module(s) the document covers (repeatable)")
	addCmd.Flags().StringVar(&addTitle, "title", "", "title override")
	addCmd.Flags().StringVar(&addURL, "url", "", "source URL to record for a local file")
	addCmd.Flags().StringVar(&addLanguage, "language", "", "language override (fr, en)")
	addCmd.Flags().Float64Var(&addReliability, "reliability", 0, "reliability score override [0,1]")
	addCmd.Flags().StringVar(&addDate, "date", "", "publication date (YYYY-MM-DD)")
	_ = addCmd.MarkFlagRequired("type")
	_ = addCmd.MarkFlagRequired("module")
	rootCmd.AddCommand(addCmd)
}
