// Package pipeline orchestrates the full script-to-storyboard flow: the
// language-model stages, candidate ranking, narration, and the persistence
// writes that tie them together.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "storyreel/internal/errors"
	"storyreel/internal/script"
	"storyreel/internal/speech"
	"storyreel/internal/stock"
	"storyreel/internal/storage"
	"storyreel/internal/store"
	"storyreel/internal/storyboard"
)

const (
	defaultSegmentDelay = 500 * time.Millisecond

	// flat background used when no usable candidate exists for a segment
	placeholderColor = "#1a1a2e"
)

// Pacing spaces out per-segment provider calls so sequential runs stay
// under rate limits.
type Pacing struct {
	SegmentDelay time.Duration
}

// Orchestrator wires the engines to the store. All runs are sequential per
// project; concurrency lives inside the engines.
type Orchestrator struct {
	store   *store.Store
	scripts *script.Engine
	stocks  *stock.Engine
	voice   *speech.Synthesizer
	objects storage.ObjectStore
	pacing  Pacing
}

func NewOrchestrator(st *store.Store, scripts *script.Engine, stocks *stock.Engine, voice *speech.Synthesizer, objects storage.ObjectStore, pacing Pacing) *Orchestrator {
	if pacing.SegmentDelay == 0 {
		pacing.SegmentDelay = defaultSegmentDelay
	}
	return &Orchestrator{
		store:   st,
		scripts: scripts,
		stocks:  stocks,
		voice:   voice,
		objects: objects,
		pacing:  pacing,
	}
}

// Process runs the whole pipeline for a draft project: moderation, length
// validation, segmentation, per-segment optimization, quality scoring, the
// atomic storyboard write, and candidate ranking. The project lands on
// ready, or on failed with the reason recorded.
func (o *Orchestrator) Process(ctx context.Context, ownerID, projectID string) error {
	project, err := o.store.GetProject(ctx, ownerID, projectID)
	if err != nil {
		return err
	}
	if err := o.store.UpdateProjectStatus(ctx, ownerID, projectID, storyboard.StatusProcessing); err != nil {
		return err
	}

	if err := o.runStages(ctx, ownerID, projectID, project.Script); err != nil {
		if ferr := o.store.SetProjectFailure(ctx, ownerID, projectID, err.Error()); ferr != nil {
			slog.Warn("mark project failed", "project", projectID, "error", ferr)
		}
		return err
	}

	if err := o.store.UpdateProjectStatus(ctx, ownerID, projectID, storyboard.StatusReady); err != nil {
		return err
	}
	slog.Info("project ready", "project", projectID)
	return nil
}

// ProcessAuto rewrites the script toward the quality target first, persists
// the rewrite when one was produced, then processes as usual.
func (o *Orchestrator) ProcessAuto(ctx context.Context, ownerID, projectID string) error {
	project, err := o.store.GetProject(ctx, ownerID, projectID)
	if err != nil {
		return err
	}

	result, err := o.scripts.AutoOptimize(ctx, project.Script)
	if err != nil {
		return err
	}
	if result.Rewritten {
		slog.Info("auto-optimize rewrote script",
			"project", projectID, "score", result.Report.Overall, "attempts", result.Attempts)
		if err := o.store.UpdateProjectScript(ctx, ownerID, projectID, result.Script); err != nil {
			return err
		}
	}

	return o.Process(ctx, ownerID, projectID)
}

func (o *Orchestrator) runStages(ctx context.Context, ownerID, projectID, scriptText string) error {
	if err := o.stage(ctx, projectID, "moderate", func() error {
		return o.scripts.Moderate(ctx, scriptText)
	}); err != nil {
		return err
	}

	var segments []storyboard.Segment
	if err := o.stage(ctx, projectID, "segment", func() error {
		report := o.scripts.ValidateLength(scriptText)
		if report.Status != script.LengthOptimal {
			return apperrors.NewValidationf("script is %s: %d words", report.Status, report.WordCount)
		}

		drafts, err := o.scripts.Segment(ctx, scriptText)
		if err != nil {
			return err
		}
		segments = make([]storyboard.Segment, len(drafts))
		for i, d := range drafts {
			segments[i] = storyboard.Segment{
				Ordinal:       i + 1,
				OriginalText:  d.Text,
				OptimizedText: d.Text,
				TargetSeconds: d.TargetSeconds,
				Energy:        d.Energy,
				Intent:        d.Intent,
				AssetStatus:   storyboard.AssetStatusNeedsSelection,
				SpeedFactor:   1.0,
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := o.stage(ctx, projectID, "optimize", func() error {
		// Strictly one segment at a time, in ordinal order: the language
		// model provider rate-limits bursts.
		for i := range segments {
			seg := &segments[i]
			optimized, err := o.scripts.Optimize(ctx, script.Draft{
				Text:          seg.OriginalText,
				Energy:        seg.Energy,
				Intent:        seg.Intent,
				TargetSeconds: seg.TargetSeconds,
			})
			if err != nil {
				return fmt.Errorf("optimize segment %d: %w", seg.Ordinal, err)
			}
			seg.OptimizedText = optimized

			queries := o.scripts.GenerateQueries(ctx, optimized)
			seg.Queries = queries.Queries
			seg.FallbackQuery = queries.Fallback
		}

		report, err := o.scripts.ScoreQuality(ctx, scriptText)
		if err != nil {
			return err
		}
		overall := report.Overall
		return o.store.ReplaceStoryboard(ctx, ownerID, projectID, store.Storyboard{
			Script:         scriptText,
			QualityOverall: &overall,
			QualityLevel:   report.Level,
			Status:         storyboard.StatusProcessing,
			Segments:       segments,
		})
	}); err != nil {
		return err
	}

	return o.stage(ctx, projectID, "rank", func() error {
		return o.rankSegments(ctx, ownerID, projectID, segments)
	})
}

// rankSegments runs Pipeline B: per segment, fetch ranked candidates,
// persist them, and settle the asset status. Suggestion writes already made
// stay if a later segment fails; re-running replaces them.
func (o *Orchestrator) rankSegments(ctx context.Context, ownerID, projectID string, segments []storyboard.Segment) error {
	for i := range segments {
		if i > 0 {
			if err := sleepCtx(ctx, o.pacing.SegmentDelay); err != nil {
				return err
			}
		}
		seg := segments[i]

		candidates := o.stocks.SearchRanked(ctx, seg.Queries, seg.TargetSeconds)
		if len(candidates) == 0 && seg.FallbackQuery != "" {
			candidates = o.stocks.SearchRanked(ctx, []string{seg.FallbackQuery}, seg.TargetSeconds)
		}

		if err := o.store.SaveSuggestions(ctx, ownerID, projectID, seg.Ordinal, candidates); err != nil {
			return err
		}

		if len(candidates) == 0 {
			seg.SetPlaceholder(placeholderColor)
			if err := o.store.UpdateSegment(ctx, ownerID, projectID, seg); err != nil {
				return err
			}
			slog.Info("no candidates, placeholder set", "project", projectID, "segment", seg.Ordinal)
		}
	}
	return nil
}

// stage runs fn and appends its outcome to the job log. Job-log write
// failures are logged, not fatal: the log is an audit trail, not state.
func (o *Orchestrator) stage(ctx context.Context, projectID, name string, fn func() error) error {
	started := time.Now()
	err := fn()

	run := store.JobRun{
		ProjectID:  projectID,
		Stage:      name,
		Status:     store.JobRunSucceeded,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err != nil {
		run.Status = store.JobRunFailed
		run.Detail = err.Error()
	}
	if aerr := o.store.AppendJobRun(ctx, run); aerr != nil {
		slog.Warn("append job run", "project", projectID, "stage", name, "error", aerr)
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
