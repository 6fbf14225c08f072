// Package moderation gates script text through a content classifier before
// any pipeline stage spends provider budget on it.
package moderation

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "storyreel/internal/errors"
)

// defaultThresholds maps classifier categories to the score above which the
// category flags. Exploitation-adjacent categories trip at near-zero;
// violence/hate/harassment sit high so educational or historical narration
// is not over-blocked.
var defaultThresholds = map[string]float64{
	"sexual/minors":          0.01,
	"self-harm":              0.30,
	"self-harm/intent":       0.30,
	"self-harm/instructions": 0.30,
	"sexual":                 0.50,
	"hate/threatening":       0.70,
	"harassment/threatening": 0.70,
	"violence/graphic":       0.75,
	"hate":                   0.80,
	"harassment":             0.85,
	"violence":               0.85,
}

// unknownCategoryThreshold applies to categories the table does not name,
// so a classifier adding new categories fails toward flagging.
const unknownCategoryThreshold = 0.50

// Service applies the threshold policy on top of a Classifier.
type Service struct {
	classifier Classifier
	thresholds map[string]float64
	failOpen   bool
}

// Result reports the flagged categories with their scores. Empty map means
// the text passed.
type Result struct {
	Flagged    bool
	Categories map[string]float64
}

// NewService builds the policy layer. failOpen controls classifier-failure
// behavior: false (the default everywhere) propagates the provider error,
// true logs a warning and treats the text as unflagged.
func NewService(classifier Classifier, failOpen bool) *Service {
	return &Service{
		classifier: classifier,
		thresholds: defaultThresholds,
		failOpen:   failOpen,
	}
}

// SetThreshold overrides one category's threshold.
func (s *Service) SetThreshold(category string, threshold float64) {
	if s.thresholds == nil {
		s.thresholds = map[string]float64{}
	}
	s.thresholds[category] = threshold
}

// Check classifies the text and applies the threshold table.
func (s *Service) Check(ctx context.Context, text string) (Result, error) {
	scores, err := s.classifier.Classify(ctx, text)
	if err != nil {
		if s.failOpen {
			slog.Warn("moderation classifier failed, fail-open policy treats content as unflagged", "error", err)
			return Result{}, nil
		}
		return Result{}, apperrors.NewProvider("moderation", fmt.Errorf("classify: %w", err))
	}

	flagged := map[string]float64{}
	for category, score := range scores {
		threshold, ok := s.thresholds[category]
		if !ok {
			threshold = unknownCategoryThreshold
		}
		if score > threshold {
			flagged[category] = score
		}
	}

	if len(flagged) > 0 {
		return Result{Flagged: true, Categories: flagged}, nil
	}
	return Result{}, nil
}
