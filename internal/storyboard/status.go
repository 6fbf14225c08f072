package storyboard

import (
	apperrors "storyreel/internal/errors"
)

// Status is a project's position in the production lifecycle.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusRendering  Status = "rendering"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// transitions holds the forward edges. failed is reachable from every state
// and handled separately; completed and failed admit nothing else.
var transitions = map[Status]Status{
	StatusDraft:      StatusProcessing,
	StatusProcessing: StatusReady,
	StatusReady:      StatusRendering,
	StatusRendering:  StatusCompleted,
}

// ValidStatus reports whether s names a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusProcessing, StatusReady, StatusRendering, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Transition validates a status change. Every state may move to failed
// (failed→failed is an allowed no-op so error paths stay idempotent); all
// other edges follow the forward chain.
func Transition(from, to Status) error {
	if !ValidStatus(from) || !ValidStatus(to) {
		return apperrors.NewInvalidTransition(string(from), string(to))
	}
	if to == StatusFailed {
		return nil
	}
	if transitions[from] == to {
		return nil
	}
	return apperrors.NewInvalidTransition(string(from), string(to))
}

// CanEdit reports whether segment edits and asset selection are allowed.
func (s Status) CanEdit() bool { return s == StatusReady }

// CanRender reports whether a render may start.
func (s Status) CanRender() bool { return s == StatusReady }

// CanDelete reports whether the project may be deleted.
func (s Status) CanDelete() bool { return s != StatusRendering }

// Terminal reports whether the status admits no further transitions
// (other than the idempotent failed→failed write).
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
