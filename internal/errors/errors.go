package errors

import (
	"errors"
	"fmt"
)

// Code classifies a pipeline error for programmatic handling.
type Code string

const (
	CodeValidation            Code = "VALIDATION"
	CodeContentFlagged        Code = "CONTENT_FLAGGED"
	CodeProvider              Code = "PROVIDER"
	CodeRetryExhausted        Code = "RETRY_EXHAUSTED"
	CodePersistence           Code = "PERSISTENCE"
	CodeTimeout               Code = "TIMEOUT"
	CodeNotFound              Code = "NOT_FOUND"
	CodeForbidden             Code = "FORBIDDEN"
	CodeInvalidTransition     Code = "INVALID_TRANSITION"
	CodeInvalidSegmentation   Code = "INVALID_SEGMENTATION"
	CodeAutoOptimizeExhausted Code = "AUTO_OPTIMIZE_EXHAUSTED"
	CodeSynthesisFailed       Code = "SYNTHESIS_FAILED"
	CodeSelectionBlocked      Code = "SELECTION_BLOCKED"
)

// Error carries a machine-readable code alongside the human message. Details
// holds structured context such as flagged categories or mismatch percentages
// so callers never have to parse the message text.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewValidation reports invalid caller input.
func NewValidation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// NewValidationf formats the message of a validation error.
func NewValidationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NewContentFlagged reports script text rejected by moderation, carrying the
// flagged category names and their scores.
func NewContentFlagged(categories map[string]float64) *Error {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	return &Error{
		Code:    CodeContentFlagged,
		Message: "script flagged by content moderation",
		Details: map[string]any{"categories": names, "scores": categories},
	}
}

// NewProvider wraps a failure from an external service.
func NewProvider(provider string, err error) *Error {
	return &Error{
		Code:    CodeProvider,
		Message: fmt.Sprintf("provider %s failed", provider),
		Details: map[string]any{"provider": provider},
		Err:     err,
	}
}

// NewRetryExhausted wraps the last error after all retry attempts failed.
func NewRetryExhausted(op string, attempts int, err error) *Error {
	return &Error{
		Code:    CodeRetryExhausted,
		Message: fmt.Sprintf("%s failed after %d attempts", op, attempts),
		Details: map[string]any{"operation": op, "attempts": attempts},
		Err:     err,
	}
}

// NewPersistence wraps a datastore failure. Never retried.
func NewPersistence(op string, err error) *Error {
	return &Error{
		Code:    CodePersistence,
		Message: fmt.Sprintf("datastore %s failed", op),
		Details: map[string]any{"operation": op},
		Err:     err,
	}
}

// NewTimeout reports an operation that exceeded its deadline.
func NewTimeout(op string, err error) *Error {
	return &Error{
		Code:    CodeTimeout,
		Message: fmt.Sprintf("%s timed out", op),
		Details: map[string]any{"operation": op},
		Err:     err,
	}
}

// NewNotFound reports a missing entity.
func NewNotFound(kind, id string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewForbidden reports an ownership check failure.
func NewForbidden(kind, id string) *Error {
	return &Error{
		Code:    CodeForbidden,
		Message: fmt.Sprintf("%s %s does not belong to caller", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewInvalidTransition reports a project status change the state machine
// does not allow. The error names both states.
func NewInvalidTransition(from, to string) *Error {
	return &Error{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition project from %s to %s", from, to),
		Details: map[string]any{"from": from, "to": to},
	}
}

// NewInvalidSegmentation reports a segmentation reply that produced no
// usable segments.
func NewInvalidSegmentation(msg string) *Error {
	return &Error{Code: CodeInvalidSegmentation, Message: msg}
}

// NewAutoOptimizeExhausted reports the bounded optimization loop giving up,
// carrying the best score it reached.
func NewAutoOptimizeExhausted(attempts, bestScore int) *Error {
	return &Error{
		Code:    CodeAutoOptimizeExhausted,
		Message: fmt.Sprintf("auto-optimize gave up after %d attempts (best score %d)", attempts, bestScore),
		Details: map[string]any{"attempts": attempts, "best_score": bestScore},
	}
}

// NewSynthesisFailed wraps the final error after both speech providers were
// exhausted.
func NewSynthesisFailed(err error) *Error {
	return &Error{
		Code:    CodeSynthesisFailed,
		Message: "all speech providers exhausted",
		Err:     err,
	}
}

// NewSelectionBlocked reports an asset rejected by the duration reconciler,
// carrying the mismatch percentage.
func NewSelectionBlocked(diffPercent float64) *Error {
	return &Error{
		Code:    CodeSelectionBlocked,
		Message: fmt.Sprintf("asset duration differs from target by %.1f%%", diffPercent),
		Details: map[string]any{"diff_percent": diffPercent},
	}
}

// Is reports whether err (or anything it wraps) carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the code from err, or empty when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
