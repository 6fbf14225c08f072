package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "storyreel/internal/errors"
	"storyreel/internal/stock"
)

func testCandidates(n int) []stock.Candidate {
	candidates := make([]stock.Candidate, n)
	for i := range candidates {
		dur := 18.0 + float64(i)
		candidates[i] = stock.Candidate{
			Asset: stock.Asset{
				Provider: "pexels",
				ID:       fmt.Sprintf("vid-%d", i+1),
				Type:     stock.TypeVideo,
				URL:      fmt.Sprintf("https://example.com/%d.mp4", i+1),
				Duration: &dur,
				Width:    1920,
				Height:   1080,
				Tags:     []string{"city", "night"},
			},
			MatchedQuery: "city skyline",
			KeywordScore: 85,
			Ranking:      80 - float64(i),
		}
	}
	return candidates
}

func TestSaveAndListSuggestions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	p := processingProject(t, st)

	candidates := testCandidates(3)
	require.NoError(t, st.SaveSuggestions(ctx, "owner-1", p.ID, 2, candidates))

	got, err := st.ListSuggestions(ctx, "owner-1", p.ID, 2)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "vid-1", got[0].ID)
	assert.Equal(t, "city skyline", got[0].MatchedQuery)
	assert.Equal(t, 80.0, got[0].Ranking)
	require.NotNil(t, got[0].Duration)
	assert.Equal(t, 18.0, *got[0].Duration)

	// Another ordinal is untouched.
	other, err := st.ListSuggestions(ctx, "owner-1", p.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSaveSuggestionsReplaces(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	p := processingProject(t, st)

	require.NoError(t, st.SaveSuggestions(ctx, "owner-1", p.ID, 1, testCandidates(3)))
	require.NoError(t, st.SaveSuggestions(ctx, "owner-1", p.ID, 1, testCandidates(1)))

	got, err := st.ListSuggestions(ctx, "owner-1", p.ID, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSaveSuggestionsCrossOwner(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	p := processingProject(t, st)

	err := st.SaveSuggestions(ctx, "owner-2", p.ID, 1, testCandidates(1))
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
}

func TestAppendAndListJobRuns(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	p := processingProject(t, st)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stages := []string{"moderate", "segment", "rank"}
	for _, stage := range stages {
		require.NoError(t, st.AppendJobRun(ctx, JobRun{
			ProjectID:  p.ID,
			Stage:      stage,
			Status:     JobRunSucceeded,
			StartedAt:  start,
			FinishedAt: start.Add(time.Second),
		}))
	}
	require.NoError(t, st.AppendJobRun(ctx, JobRun{
		ProjectID:  p.ID,
		Stage:      "narrate",
		Status:     JobRunFailed,
		Detail:     "SYNTHESIS_FAILED: both providers exhausted",
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
	}))

	runs, err := st.ListJobRuns(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, runs, 4)
	for i, stage := range append(stages, "narrate") {
		assert.Equal(t, stage, runs[i].Stage)
		assert.NotEmpty(t, runs[i].ID)
	}
	assert.Equal(t, JobRunFailed, runs[3].Status)
	assert.Equal(t, start.Unix(), runs[3].StartedAt.Unix())

	// Runs for other projects stay invisible.
	other, err := st.ListJobRuns(ctx, "some-other-project")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestJobRunIDsSortInAppendOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	p := processingProject(t, st)

	// Many of these appends land in the same millisecond; the shared
	// monotonic entropy keeps their ids in append order regardless.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		require.NoError(t, st.AppendJobRun(ctx, JobRun{
			ProjectID:  p.ID,
			Stage:      fmt.Sprintf("stage-%02d", i),
			Status:     JobRunSucceeded,
			StartedAt:  now,
			FinishedAt: now,
		}))
	}

	runs, err := st.ListJobRuns(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, runs, 50)
	for i, run := range runs {
		assert.Equal(t, fmt.Sprintf("stage-%02d", i), run.Stage)
	}
}
