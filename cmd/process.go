package cmd

import (
	"log/slog"

	"storyreel/internal/app"
	"storyreel/pkg/config"

	"github.com/spf13/cobra"
)

var processAuto bool

var processCmd = &cobra.Command{
	Use:   "process <project-id>",
	Short: "Run the storyboard pipeline for a draft project",
	Long: `Process moderates and validates the script, segments it, optimizes
each segment, scores quality, and ranks stock-footage candidates. The project
lands on ready, or on failed with the reason recorded.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().BoolVar(&processAuto, "auto", false, "Auto-optimize the script toward the quality target first")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	runtime, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = runtime.Close() }()

	projectID := args[0]
	if processAuto {
		slog.Info("Processing with auto-optimize...", "project", projectID)
		return runtime.Orchestrator.ProcessAuto(ctx, ownerID, projectID)
	}

	slog.Info("Processing...", "project", projectID)
	return runtime.Orchestrator.Process(ctx, ownerID, projectID)
}
