package script

import (
	"context"
	"errors"
	"fmt"
	"testing"

	apperrors "storyreel/internal/errors"
)

func scoreReply(clarity, pacing, hook int) string {
	return fmt.Sprintf(`{"clarity": %d, "pacing": %d, "hook_strength": %d, "suggestions": ["do better"]}`, clarity, pacing, hook)
}

func TestAutoOptimizeAlreadyGood(t *testing.T) {
	client := &scriptedClient{replies: []string{scoreReply(80, 80, 80)}}
	engine := newEngine(t, client, passClassifier{})

	result, err := engine.AutoOptimize(context.Background(), "good script")
	if err != nil {
		t.Fatalf("AutoOptimize() error = %v", err)
	}
	if result.Rewritten {
		t.Error("Rewritten = true, want false when already at target")
	}
	if result.Script != "good script" {
		t.Errorf("Script = %q, want unchanged", result.Script)
	}
	if client.calls != 1 {
		t.Errorf("calls = %d, want 1 (score only)", client.calls)
	}
}

func TestAutoOptimizeImprovesOnFirstAttempt(t *testing.T) {
	client := &scriptedClient{replies: []string{
		scoreReply(50, 50, 50),          // initial score: 50
		`{"script": "better script"}`,   // rewrite
		scoreReply(85, 80, 80),          // candidate score: 82
	}}
	engine := newEngine(t, client, passClassifier{})

	result, err := engine.AutoOptimize(context.Background(), "weak script")
	if err != nil {
		t.Fatalf("AutoOptimize() error = %v", err)
	}
	if !result.Rewritten {
		t.Error("Rewritten = false, want true")
	}
	if result.Script != "better script" {
		t.Errorf("Script = %q, want rewrite", result.Script)
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
	if result.Report.Overall < 75 {
		t.Errorf("Overall = %d, want >= 75", result.Report.Overall)
	}
}

func TestAutoOptimizeExhausted(t *testing.T) {
	// Every rewrite scores the same, never improving past the target.
	client := &scriptedClient{replies: []string{
		scoreReply(50, 50, 50),
		`{"script": "try 1"}`, scoreReply(50, 50, 50),
		`{"script": "try 2"}`, scoreReply(50, 50, 50),
		`{"script": "try 3"}`, scoreReply(50, 50, 50),
	}}
	engine := newEngine(t, client, passClassifier{})

	_, err := engine.AutoOptimize(context.Background(), "stubborn script")
	if !apperrors.Is(err, apperrors.CodeAutoOptimizeExhausted) {
		t.Fatalf("error code = %v, want AUTO_OPTIMIZE_EXHAUSTED", apperrors.CodeOf(err))
	}

	var typed *apperrors.Error
	if errors.As(err, &typed) {
		if typed.Details["attempts"] != 3 {
			t.Errorf("Details[attempts] = %v, want 3", typed.Details["attempts"])
		}
	}
	// 1 initial score + 3 × (rewrite + score)
	if client.calls != 7 {
		t.Errorf("calls = %d, want 7 (loop is bounded)", client.calls)
	}
}

func TestAutoOptimizeAcceptsImprovementBelowTarget(t *testing.T) {
	// A rewrite that improves the score is accepted even when still below
	// the target; the caller reprocesses the better script.
	client := &scriptedClient{replies: []string{
		scoreReply(50, 50, 50),       // initial score: 50
		`{"script": "better draft"}`, // rewrite
		scoreReply(65, 65, 65),       // candidate score: 65
	}}
	engine := newEngine(t, client, passClassifier{})

	result, err := engine.AutoOptimize(context.Background(), "weak draft")
	if err != nil {
		t.Fatalf("AutoOptimize() error = %v", err)
	}
	if !result.Rewritten {
		t.Error("Rewritten = false, want true")
	}
	if result.Script != "better draft" {
		t.Errorf("Script = %q, want the improved rewrite", result.Script)
	}
	if result.Report.Overall != 65 {
		t.Errorf("Overall = %d, want 65", result.Report.Overall)
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
	if client.calls != 3 {
		t.Errorf("calls = %d, want 3 (no retry after an improvement)", client.calls)
	}
}

func TestAutoOptimizeScoreFailurePropagates(t *testing.T) {
	client := &scriptedClient{errs: []error{errors.New("llm down")}}
	engine := newEngine(t, client, passClassifier{})

	if _, err := engine.AutoOptimize(context.Background(), "script"); err == nil {
		t.Fatal("expected error when scoring fails")
	}
}
