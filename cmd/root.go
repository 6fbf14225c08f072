package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	ownerID string
)

var rootCmd = &cobra.Command{
	Use:   "storyreel",
	Short: "Turn narration scripts into time-synchronized storyboards",
	Long: `Storyreel segments a narration script with a language model, ranks
stock footage for every segment, synthesizes narration audio, and tracks the
project through its production lifecycle.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner", "local", "Owner id for project operations")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setupLogger()
	}
}

func Execute() error {
	return rootCmd.Execute()
}

func setupLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
