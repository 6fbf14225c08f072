package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "storyreel/internal/errors"
)

type fakeClassifier struct {
	scores map[string]float64
	err    error
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (map[string]float64, error) {
	return f.scores, f.err
}

func TestCheckFlagsAboveThreshold(t *testing.T) {
	tests := []struct {
		name    string
		scores  map[string]float64
		flagged []string
	}{
		{
			"cleanText",
			map[string]float64{"violence": 0.10, "hate": 0.05},
			nil,
		},
		{
			"violenceBelowHighBar",
			map[string]float64{"violence": 0.80},
			nil,
		},
		{
			"violenceAboveHighBar",
			map[string]float64{"violence": 0.90},
			[]string{"violence"},
		},
		{
			"minorsCategoryTripsLow",
			map[string]float64{"sexual/minors": 0.02},
			[]string{"sexual/minors"},
		},
		{
			"unknownCategoryUsesDefault",
			map[string]float64{"novel-category": 0.60},
			[]string{"novel-category"},
		},
		{
			"multipleFlags",
			map[string]float64{"violence": 0.95, "hate": 0.85, "harassment": 0.10},
			[]string{"violence", "hate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&fakeClassifier{scores: tt.scores}, false)
			result, err := svc.Check(context.Background(), "some script")
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if result.Flagged != (len(tt.flagged) > 0) {
				t.Errorf("Flagged = %v, want %v", result.Flagged, len(tt.flagged) > 0)
			}
			if len(result.Categories) != len(tt.flagged) {
				t.Errorf("Categories = %v, want %v", result.Categories, tt.flagged)
			}
			for _, name := range tt.flagged {
				if _, ok := result.Categories[name]; !ok {
					t.Errorf("category %q not flagged", name)
				}
			}
		})
	}
}

func TestCheckClassifierFailureClosed(t *testing.T) {
	svc := NewService(&fakeClassifier{err: fmt.Errorf("upstream down")}, false)

	_, err := svc.Check(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error with fail_open=false")
	}
	if !apperrors.Is(err, apperrors.CodeProvider) {
		t.Errorf("error code = %v, want PROVIDER", apperrors.CodeOf(err))
	}
}

func TestCheckClassifierFailureOpen(t *testing.T) {
	svc := NewService(&fakeClassifier{err: fmt.Errorf("upstream down")}, true)

	result, err := svc.Check(context.Background(), "text")
	if err != nil {
		t.Fatalf("Check() error = %v, want nil with fail_open=true", err)
	}
	if result.Flagged {
		t.Error("fail-open result should be unflagged")
	}
}

func TestSetThresholdOverride(t *testing.T) {
	svc := NewService(&fakeClassifier{scores: map[string]float64{"violence": 0.50}}, false)
	svc.SetThreshold("violence", 0.40)

	result, err := svc.Check(context.Background(), "text")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !result.Flagged {
		t.Error("expected flag after lowering the violence threshold")
	}
}

func TestClientClassify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		var req moderationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Input != "check me" {
			t.Errorf("input = %q", req.Input)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{
				"flagged":         false,
				"category_scores": map[string]float64{"violence": 0.12, "hate": 0.03},
			}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", Model: "omni-moderation-latest"})
	client.SetBaseURL(server.URL)

	scores, err := client.Classify(context.Background(), "check me")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if scores["violence"] != 0.12 {
		t.Errorf("violence score = %v, want 0.12", scores["violence"])
	}
}

func TestClientClassifyErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "invalid api key"},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad"})
	client.SetBaseURL(server.URL)

	_, err := client.Classify(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error for 401")
	}
}

func TestClientClassifyEmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))
	defer server.Close()

	client := NewClient(Config{})
	client.SetBaseURL(server.URL)

	if _, err := client.Classify(context.Background(), "text"); err == nil {
		t.Fatal("expected error for empty results")
	}
}
