package llm

import (
	"context"
	"log/slog"
	"time"

	apperrors "storyreel/internal/errors"
)

const (
	defaultAttempts  = 3
	defaultBaseDelay = time.Second
)

var _ Client = (*Retrying)(nil)

// Retrying wraps a Client with bounded retries. The delay doubles per
// attempt from BaseDelay. Context cancellation stops the loop immediately.
type Retrying struct {
	inner     Client
	attempts  int
	baseDelay time.Duration
}

func NewRetrying(inner Client) *Retrying {
	return &Retrying{inner: inner, attempts: defaultAttempts, baseDelay: defaultBaseDelay}
}

func NewRetryingWith(inner Client, attempts int, baseDelay time.Duration) *Retrying {
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	return &Retrying{inner: inner, attempts: attempts, baseDelay: baseDelay}
}

func (r *Retrying) Complete(ctx context.Context, req Request) (string, error) {
	var lastErr error
	delay := r.baseDelay

	for attempt := 1; attempt <= r.attempts; attempt++ {
		if attempt > 1 {
			slog.Debug("retrying completion", "attempt", attempt, "delay", delay)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}

		content, err := r.inner.Complete(ctx, req)
		if err == nil {
			return content, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}

	return "", apperrors.NewRetryExhausted("completion", r.attempts, lastErr)
}
