package cmd

import (
	"fmt"
	"strings"

	"storyreel/internal/app"
	"storyreel/internal/storyboard"
	"storyreel/pkg/config"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var statusJobs bool

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

var statusCmd = &cobra.Command{
	Use:   "status <project-id>",
	Short: "Show a project's storyboard and pipeline state",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJobs, "jobs", false, "Include the pipeline job log")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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
	project, err := runtime.Store.GetProject(ctx, ownerID, projectID)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(project.Title))
	fmt.Printf("  status:  %s\n", statusColor(project.Status))
	if project.QualityOverall != nil {
		fmt.Printf("  quality: %s\n", qualityColor(*project.QualityOverall, project.QualityLevel))
	}
	if project.FailureReason != "" {
		fmt.Printf("  failure: %s\n", badStyle.Render(project.FailureReason))
	}

	segments, err := runtime.Store.ListSegments(ctx, ownerID, projectID)
	if err != nil {
		return err
	}
	if len(segments) > 0 {
		fmt.Println()
		fmt.Println(headerStyle.Render("Segments"))
		for _, seg := range segments {
			fmt.Printf("  %2d. [%s] %-16s %5.1fs  %s\n",
				seg.Ordinal, seg.Intent, treatment(seg), seg.TargetSeconds,
				dimStyle.Render(truncate(seg.OptimizedText, 60)))
		}

		if err := runtime.Orchestrator.RenderReady(ctx, ownerID, projectID); err != nil {
			fmt.Printf("\n  render: %s\n", warnStyle.Render(err.Error()))
		} else {
			fmt.Printf("\n  render: %s\n", okStyle.Render("ready"))
		}
	}

	if statusJobs {
		runs, err := runtime.Store.ListJobRuns(ctx, projectID)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(headerStyle.Render("Job log"))
		for _, run := range runs {
			line := fmt.Sprintf("  %s  %-10s %s", run.StartedAt.Format("2006-01-02 15:04:05"), run.Stage, run.Status)
			if run.Detail != "" {
				line += "  " + dimStyle.Render(run.Detail)
			}
			fmt.Println(line)
		}
	}

	return nil
}

func statusColor(s storyboard.Status) string {
	switch s {
	case storyboard.StatusReady, storyboard.StatusCompleted:
		return okStyle.Render(string(s))
	case storyboard.StatusFailed:
		return badStyle.Render(string(s))
	default:
		return warnStyle.Render(string(s))
	}
}

func qualityColor(overall int, level storyboard.QualityLevel) string {
	text := fmt.Sprintf("%d (%s)", overall, level)
	switch level {
	case storyboard.QualityGreen:
		return okStyle.Render(text)
	case storyboard.QualityYellow:
		return warnStyle.Render(text)
	default:
		return badStyle.Render(text)
	}
}

func treatment(seg storyboard.Segment) string {
	switch {
	case seg.Silence:
		return fmt.Sprintf("silence %.1fs", seg.SilenceSeconds)
	case seg.AssetStatus == storyboard.AssetStatusHasAsset:
		return seg.AssetProvider + "/" + seg.AssetID
	case seg.AssetStatus == storyboard.AssetStatusPlaceholder:
		return "placeholder"
	default:
		return "needs selection"
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
