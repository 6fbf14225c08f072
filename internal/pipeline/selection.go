package pipeline

import (
	"context"

	apperrors "storyreel/internal/errors"
	"storyreel/internal/fit"
	"storyreel/internal/storyboard"
)

// SelectAsset applies a user's asset choice to a segment. The asset must be
// resolvable from the cache; a duration mismatch beyond the block threshold
// rejects the selection with the mismatch percent. Warn-level matches are
// applied with the compensating speed factor and surfaced via the returned
// match.
func (o *Orchestrator) SelectAsset(ctx context.Context, ownerID, projectID string, ordinal int, provider, assetID string) (*fit.Match, error) {
	seg, err := o.editableSegment(ctx, ownerID, projectID, ordinal)
	if err != nil {
		return nil, err
	}

	asset, err := o.stocks.ResolveAsset(ctx, provider, assetID)
	if err != nil {
		return nil, err
	}

	match := fit.Check(asset.Duration, seg.TargetSeconds)
	if match.Level == fit.LevelBlock {
		return nil, apperrors.NewSelectionBlocked(match.DiffPercent)
	}

	seg.SetAsset(asset.Provider, asset.ID, asset.URL, match.SpeedFactor)
	if err := o.store.UpdateSegment(ctx, ownerID, projectID, *seg); err != nil {
		return nil, err
	}
	return &match, nil
}

// AutoSelect applies the top stored suggestion to a segment, falling back
// to a placeholder when there are no suggestions or the top one blocks.
func (o *Orchestrator) AutoSelect(ctx context.Context, ownerID, projectID string, ordinal int) (*fit.Match, error) {
	seg, err := o.editableSegment(ctx, ownerID, projectID, ordinal)
	if err != nil {
		return nil, err
	}

	suggestions, err := o.store.ListSuggestions(ctx, ownerID, projectID, ordinal)
	if err != nil {
		return nil, err
	}

	if len(suggestions) == 0 {
		seg.SetPlaceholder(placeholderColor)
		if err := o.store.UpdateSegment(ctx, ownerID, projectID, *seg); err != nil {
			return nil, err
		}
		return &fit.Match{Level: fit.LevelBlock, DiffPercent: 100, SpeedFactor: 1.0}, nil
	}

	top := suggestions[0]
	match := fit.Check(top.Duration, seg.TargetSeconds)
	if match.Level == fit.LevelBlock {
		seg.SetPlaceholder(placeholderColor)
		if err := o.store.UpdateSegment(ctx, ownerID, projectID, *seg); err != nil {
			return nil, err
		}
		return &match, nil
	}

	seg.SetAsset(top.Provider, top.ID, top.URL, match.SpeedFactor)
	if err := o.store.UpdateSegment(ctx, ownerID, projectID, *seg); err != nil {
		return nil, err
	}
	return &match, nil
}

// RenderReady verifies a render may start: the project must be in ready and
// placeholder segments may cover at most 30% of the storyboard.
func (o *Orchestrator) RenderReady(ctx context.Context, ownerID, projectID string) error {
	project, err := o.store.GetProject(ctx, ownerID, projectID)
	if err != nil {
		return err
	}
	if !project.Status.CanRender() {
		return apperrors.NewValidationf("project status %s: rendering requires ready", project.Status)
	}

	segments, err := o.store.ListSegments(ctx, ownerID, projectID)
	if err != nil {
		return err
	}

	placeholders := 0
	for _, seg := range segments {
		if seg.AssetStatus == storyboard.AssetStatusPlaceholder {
			placeholders++
		}
	}
	if !fit.RenderReady(placeholders, len(segments)) {
		return apperrors.NewValidationf("placeholder segments %d of %d exceed the render gate",
			placeholders, len(segments))
	}
	return nil
}

func (o *Orchestrator) editableSegment(ctx context.Context, ownerID, projectID string, ordinal int) (*storyboard.Segment, error) {
	project, err := o.store.GetProject(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	if !project.Status.CanEdit() {
		return nil, apperrors.NewValidationf("project status %s: selection requires ready", project.Status)
	}

	segments, err := o.store.ListSegments(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	for i := range segments {
		if segments[i].Ordinal == ordinal {
			return &segments[i], nil
		}
	}
	return nil, apperrors.NewNotFound("segment", projectID)
}
