package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "storyreel/internal/errors"
	"storyreel/internal/speech"
	"storyreel/internal/storyboard"
)

// Narrate synthesizes audio for every speaking segment of a ready project
// and persists the per-segment audio url and measured duration. Segments
// that already failed synthesis leave their earlier audio untouched; the
// first failure is returned after all successes are persisted.
func (o *Orchestrator) Narrate(ctx context.Context, ownerID, projectID string, preset speech.Preset) error {
	project, err := o.store.GetProject(ctx, ownerID, projectID)
	if err != nil {
		return err
	}
	if project.Status != storyboard.StatusReady {
		return apperrors.NewValidationf("project status %s: narration requires ready", project.Status)
	}

	segments, err := o.store.ListSegments(ctx, ownerID, projectID)
	if err != nil {
		return err
	}

	return o.stage(ctx, projectID, "narrate", func() error {
		// Silent segments carry no narration; keep the request slice
		// aligned to the speaking segments only.
		var speaking []int
		var reqs []speech.Request
		for i, seg := range segments {
			if seg.Silence {
				continue
			}
			text := seg.OptimizedText
			if text == "" {
				text = seg.OriginalText
			}
			speaking = append(speaking, i)
			reqs = append(reqs, speech.Request{Text: text, Preset: preset})
		}
		if len(reqs) == 0 {
			return nil
		}

		items := o.voice.SynthesizeBatch(ctx, reqs)

		var firstErr error
		for j, item := range items {
			seg := segments[speaking[j]]
			if item.Err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("segment %d: %w", seg.Ordinal, item.Err)
				}
				continue
			}
			seg.AudioURL = item.Result.AudioURL
			seg.AudioSeconds = item.Result.DurationSeconds
			if err := o.store.UpdateSegment(ctx, ownerID, projectID, seg); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			slog.Info("segment narrated", "project", projectID, "segment", seg.Ordinal,
				"provider", item.Result.Provider, "cached", item.Result.Cached)
		}
		return firstErr
	})
}
