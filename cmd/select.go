package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"storyreel/internal/app"
	"storyreel/internal/fit"
	"storyreel/pkg/config"

	"github.com/spf13/cobra"
)

var (
	selectProvider string
	selectAssetID  string
	selectAuto     bool
)

var selectCmd = &cobra.Command{
	Use:   "select <project-id> <ordinal>",
	Short: "Select a stock asset for a segment",
	Long: `Select a stock asset for a segment, either explicitly by provider
and asset id, or automatically from the top ranked suggestion. A duration
mismatch over 20% blocks the selection; between 5% and 20% the asset is
applied with a compensating speed factor and a warning.`,
	Args: cobra.ExactArgs(2),
	RunE: runSelect,
}

func init() {
	selectCmd.Flags().StringVar(&selectProvider, "provider", "", "Asset provider (pexels or pixabay)")
	selectCmd.Flags().StringVar(&selectAssetID, "asset", "", "Asset id from the suggestions")
	selectCmd.Flags().BoolVar(&selectAuto, "auto", false, "Apply the top ranked suggestion")
	rootCmd.AddCommand(selectCmd)
}

func runSelect(cmd *cobra.Command, args []string) error {
	if !selectAuto && (selectProvider == "" || selectAssetID == "") {
		return errors.New("please provide --provider and --asset, or --auto")
	}

	ordinal, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("ordinal %q is not a number", args[1])
	}

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

	projectID := args[0]
	var match *fit.Match
	if selectAuto {
		match, err = runtime.Orchestrator.AutoSelect(ctx, ownerID, projectID, ordinal)
	} else {
		match, err = runtime.Orchestrator.SelectAsset(ctx, ownerID, projectID, ordinal, selectProvider, selectAssetID)
	}
	if err != nil {
		return err
	}

	switch match.Level {
	case fit.LevelWarn:
		slog.Warn("Duration mismatch, speed adjusted",
			"diff_percent", fmt.Sprintf("%.1f", match.DiffPercent),
			"speed_factor", fmt.Sprintf("%.3f", match.SpeedFactor))
	case fit.LevelBlock:
		slog.Warn("No usable suggestion, placeholder applied", "segment", ordinal)
	default:
		slog.Info("Asset selected", "segment", ordinal,
			"speed_factor", fmt.Sprintf("%.3f", match.SpeedFactor))
	}
	return nil
}
