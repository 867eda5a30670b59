package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/solvencykit/scrkb-cli/internal/ingest"
)

var batchCmd = &cobra.Command{
	Use:   "batch <manifest.yaml>",
	Short: "Ingest documents listed in a YAML manifest, one at a time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		manifest, err := ingest.LoadManifest(args[0])
		if err != nil {
			return err
		}

		env, err := initIngest(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Orchestrator.RunBatch(ctx, manifest)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return eris.Wrap(err, "encode report")
		}

		if report.Failed > 0 {
			return eris.Errorf("batch: %d of %d documents failed", report.Failed, report.Total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
}
