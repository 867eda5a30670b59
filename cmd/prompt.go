package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/solvencykit/scrkb-cli/internal/model"
	"github.com/solvencykit/scrkb-cli/internal/prompt"
)

var (
	promptProvider  string
	promptLevel     string
	promptModule    string
	promptMaxLength int
	promptNoExtras  bool
	promptJSON      bool
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Generate an optimized prompt for an SCR module",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		provider, err := model.ParseProvider(promptProvider)
		if err != nil {
			return err
		}
		level, err := model.ParseLevel(promptLevel)
		if err != nil {
			return err
		}
		module, err := model.ParseModule(promptModule)
		if err != nil {
			return err
		}

		pcfg := model.NewPromptConfig(provider, level, module)
		pcfg.MaxLength = promptMaxLength
		if promptNoExtras {
			pcfg.IncludeExamples = false
			pcfg.IncludeFormulas = false
		}

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		result, err := prompt.NewGenerator(st).Generate(ctx, pcfg)
		if err != nil {
			return err
		}

		if promptJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			if err := enc.Encode(result); err != nil {
				return eris.Wrap(err, "encode result")
			}
			return nil
		}

		fmt.Println(result.Prompt)
		fmt.Fprintf(os.Stderr, "\n--- quality %.2f | complexity %.2f | ~%.0f tokens | %d sources, %d concepts ---\n",
			result.QualityScore,
			result.Metadata.ComplexityScore,
			result.Metadata.EstimatedTokens,
			result.Metadata.RelevantDocuments,
			result.Metadata.AvailableConcepts,
		)
		for _, rec := range result.Recommendations {
			fmt.Fprintf(os.Stderr, "  - %s\n", rec)
		}
		return nil
	},
}

func init() {
	promptCmd.Flags().StringVar(&promptProvider, "provider", string(model.ProviderClaudeSonnet), "target AI provider")
	promptCmd.Flags().StringVar(&promptLevel, "level", string(model.LevelConfirmed), "audience expertise level")
	promptCmd.Flags().StringVar(&promptModule, "scr-module", "", "SCR module (required)")
	promptCmd.Flags().IntVar(&promptMaxLength, "max-length", model.DefaultPromptLength, "requested document length in words")
	promptCmd.Flags().BoolVar(&promptNoExtras, "no-extras", false, "omit formulas and examples")
	promptCmd.Flags().BoolVar(&promptJSON, "json", false, "print the full result as JSON")
	_ = promptCmd.MarkFlagRequired("scr-module")
	rootCmd.AddCommand(promptCmd)
}
