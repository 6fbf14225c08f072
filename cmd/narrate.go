package cmd

import (
	"log/slog"

	"storyreel/internal/app"
	"storyreel/internal/speech"
	"storyreel/pkg/config"

	"github.com/spf13/cobra"
)

var narratePreset string

var narrateCmd = &cobra.Command{
	Use:   "narrate <project-id>",
	Short: "Synthesize narration audio for a ready project",
	Args:  cobra.ExactArgs(1),
	RunE:  runNarrate,
}

func init() {
	narrateCmd.Flags().StringVarP(&narratePreset, "preset", "p", "", "Voice preset id (defaults to the configured preset)")
	rootCmd.AddCommand(narrateCmd)
}

func runNarrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	preset, err := cfg.Preset(narratePreset)
	if err != nil {
		return err
	}

	runtime, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = runtime.Close() }()

	projectID := args[0]
	slog.Info("Narrating...", "project", projectID, "preset", preset.ID)

	return runtime.Orchestrator.Narrate(ctx, ownerID, projectID, speech.Preset{
		ID:                preset.ID,
		ElevenLabsVoiceID: preset.ElevenLabsVoiceID,
		FishAudioVoiceID:  preset.FishAudioVoiceID,
		Stability:         preset.Stability,
		Similarity:        preset.Similarity,
		Speed:             preset.Speed,
	})
}
