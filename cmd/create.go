package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"storyreel/internal/app"
	"storyreel/pkg/config"

	"github.com/spf13/cobra"
)

var createTitle string

var createCmd = &cobra.Command{
	Use:   "create [script-file]",
	Short: "Create a draft project from a narration script",
	Long: `Create a draft project from a narration script. The script is read
from the given file, or from stdin when no file is passed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVarP(&createTitle, "title", "t", "", "Project title")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	if createTitle == "" {
		return errors.New("please provide --title")
	}

	script, err := readScript(args)
	if err != nil {
		return err
	}
	if len(script) == 0 {
		return errors.New("script is empty")
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

	project, err := runtime.Store.CreateProject(ctx, ownerID, createTitle, string(script))
	if err != nil {
		return err
	}

	fmt.Println(project.ID)
	return nil
}

func readScript(args []string) ([]byte, error) {
	if len(args) == 0 {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(args[0])
}
