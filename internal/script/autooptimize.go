package script

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	apperrors "storyreel/internal/errors"
	"storyreel/internal/llm"
	"storyreel/pkg/prompts"
)

const (
	defaultAutoOptimizeAttempts = 3
	defaultQualityTarget        = 75
)

type rewriteReply struct {
	Script string `json:"script"`
}

// AutoOptimizeResult reports what the bounded loop produced. Script is the
// text to continue with; Rewritten is false when the original already met
// the target.
type AutoOptimizeResult struct {
	Script    string
	Report    *QualityReport
	Rewritten bool
	Attempts  int
}

// AutoOptimize rewrites a below-target script until a rewrite scores
// strictly better, bounded by a fixed attempt count. The first improving
// rewrite is returned immediately, even when still below the target; the
// caller re-runs the pipeline on it. Exhausting the bound without any
// improvement is AUTO_OPTIMIZE_EXHAUSTED.
func (e *Engine) AutoOptimize(ctx context.Context, script string) (*AutoOptimizeResult, error) {
	return e.autoOptimize(ctx, script, defaultAutoOptimizeAttempts, defaultQualityTarget)
}

// AutoOptimizeWith runs the loop with explicit bounds, for callers that
// tune them from configuration.
func (e *Engine) AutoOptimizeWith(ctx context.Context, script string, attempts, target int) (*AutoOptimizeResult, error) {
	if attempts <= 0 {
		attempts = defaultAutoOptimizeAttempts
	}
	if target <= 0 {
		target = defaultQualityTarget
	}
	return e.autoOptimize(ctx, script, attempts, target)
}

func (e *Engine) autoOptimize(ctx context.Context, script string, maxAttempts, target int) (*AutoOptimizeResult, error) {
	report, err := e.ScoreQuality(ctx, script)
	if err != nil {
		return nil, err
	}
	if report.Overall >= target {
		return &AutoOptimizeResult{Script: script, Report: report}, nil
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		slog.Info("auto-optimize attempt", "attempt", attempt, "score", report.Overall, "target", target)

		candidate, err := e.rewrite(ctx, script, report.Suggestions)
		if err != nil {
			return nil, err
		}

		candidateReport, err := e.ScoreQuality(ctx, candidate)
		if err != nil {
			return nil, err
		}

		// Any strict improvement is accepted right away; the caller
		// re-runs the pipeline on the better script.
		if candidateReport.Overall > report.Overall {
			return &AutoOptimizeResult{
				Script:    candidate,
				Report:    candidateReport,
				Rewritten: true,
				Attempts:  attempt,
			}, nil
		}
	}

	return nil, apperrors.NewAutoOptimizeExhausted(maxAttempts, report.Overall)
}

func (e *Engine) rewrite(ctx context.Context, script string, suggestions []string) (string, error) {
	user, err := e.prompts.RenderRewrite(prompts.RewriteParams{
		Script:      script,
		Suggestions: formatSuggestions(suggestions),
	})
	if err != nil {
		return "", fmt.Errorf("render rewrite prompt: %w", err)
	}

	content, err := e.complete(ctx, e.prompts.System.Rewrite, user)
	if err != nil {
		return "", fmt.Errorf("rewrite script: %w", err)
	}

	var reply rewriteReply
	if err := llm.DecodeObject(content, &reply); err != nil {
		return "", fmt.Errorf("rewrite script: %w", err)
	}

	text := strings.TrimSpace(reply.Script)
	if text == "" {
		return "", fmt.Errorf("rewrite script: empty reply")
	}
	return text, nil
}

func formatSuggestions(suggestions []string) string {
	if len(suggestions) == 0 {
		return "- improve overall clarity and pacing"
	}
	var b strings.Builder
	for _, s := range suggestions {
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
