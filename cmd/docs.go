package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/solvencykit/scrkb-cli/internal/model"
	"github.com/solvencykit/scrkb-cli/internal/store"
)

var (
	docsModule string
	docsQuery  string
	docsTypes  []string
	docsMinRel float64
	docsLimit  int
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List documents by SCR module or search the knowledge base",
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

		var docs []model.Document
		searching := docsQuery != "" || len(docsTypes) > 0 || cmd.Flags().Changed("min-reliability")

		switch {
		case searching:
			filter := store.DocumentFilter{
				Query:          docsQuery,
				MinReliability: docsMinRel,
				Limit:          docsLimit,
			}
			for _, raw := range docsTypes {
				dt, err := model.ParseDocType(raw)
				if err != nil {
					return err
				}
				filter.DocTypes = append(filter.DocTypes, dt)
			}
			docs, err = st.SearchDocuments(ctx, filter)
		case docsModule != "":
			var module model.SCRModule
			module, err = model.ParseModule(docsModule)
			if err != nil {
				return err
			}
			docs, err = st.GetDocumentsByModule(ctx, module, docsLimit)
		default:
			return eris.New("either --scr-module or a search flag (--query, --type, --min-reliability) is required")
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(docs); err != nil {
			return eris.Wrap(err, "encode documents")
		}
		return nil
	},
}

func init() {
	docsCmd.Flags().StringVar(&docsModule, "scr-module", "", "list documents tagged with this SCR module")
	docsCmd.Flags().StringVar(&docsQuery, "query", "", "substring to match in titles and article references")
	docsCmd.Flags().StringSliceVar(&docsTypes, "type", nil, "restrict to document type(s)")
	docsCmd.Flags().Float64Var(&docsMinRel, "min-reliability", 0, "minimum reliability score")
	docsCmd.Flags().IntVar(&docsLimit, "limit", 0, "max documents to return (0 = all)")
	rootCmd.AddCommand(docsCmd)
}
