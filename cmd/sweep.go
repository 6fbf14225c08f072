package cmd

import (
	"log/slog"

	"storyreel/internal/app"
	"storyreel/pkg/config"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire old cache entries",
	Long: `Sweep deletes expired asset-cache rows and expired narration audio
(the storage object first, then the row). Run it from a scheduler; nothing in
the pipeline depends on sweeps happening.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	runtime, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = runtime.Close() }()

	report, err := runtime.Orchestrator.Sweep(ctx)
	if err != nil {
		return err
	}

	slog.Info("Sweep complete", "assets", report.Assets, "tts", report.TTS)
	return nil
}
