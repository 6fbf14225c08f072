package stock

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func ptr(f float64) *float64 { return &f }

type fakeProvider struct {
	name   string
	assets []Asset
	err    error
	calls  int
	mu     sync.Mutex
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, q Query) ([]Asset, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.assets, nil
}

type memCache struct {
	mu     sync.Mutex
	assets map[string]Asset
}

func newMemCache() *memCache { return &memCache{assets: map[string]Asset{}} }

func (m *memCache) PutAsset(ctx context.Context, a Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[a.Provider+"/"+a.ID] = a
	return nil
}

func (m *memCache) GetAsset(ctx context.Context, provider, id string) (*Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.assets[provider+"/"+id]; ok {
		return &a, nil
	}
	return nil, nil
}

func video(provider, id string, duration float64, w, h int, tags ...string) Asset {
	return Asset{
		Provider: provider,
		ID:       id,
		Type:     TypeVideo,
		URL:      "https://example.com/" + id,
		Duration: ptr(duration),
		Width:    w,
		Height:   h,
		Tags:     tags,
	}
}

func TestKeywordScore(t *testing.T) {
	tests := []struct {
		name  string
		query string
		asset Asset
		want  float64
	}{
		{
			"allTokensMatch",
			"city skyline night",
			Asset{Tags: []string{"city", "skyline", "night", "urban"}},
			100,
		},
		{
			"twoOfThree",
			"city skyline night",
			Asset{Tags: []string{"city", "skyline"}},
			70, // ratio 2/3 ≈ 0.667
		},
		{
			"halfMatch",
			"city skyline night dusk",
			Asset{Tags: []string{"city", "skyline"}},
			70,
		},
		{
			"oneOfFour",
			"city skyline night dusk",
			Asset{Tags: []string{"city"}},
			40,
		},
		{
			"shortTokensIgnored",
			"xy zq",
			Asset{Tags: []string{"anything"}},
			50, // no usable tokens (all ≤2 chars) → neutral
		},
		{
			"phraseOnlyInMetadata",
			"golden gate",
			Asset{Tags: []string{"bridge"}, Metadata: "view of golden gate bridge"},
			30,
		},
		{
			"nothingMatches",
			"volcano eruption",
			Asset{Tags: []string{"kitten"}, Metadata: "cute pets"},
			10,
		},
		{
			"emptyQuery",
			"",
			Asset{Tags: []string{"anything"}},
			50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeywordScore(tt.query, tt.asset); got != tt.want {
				t.Errorf("KeywordScore(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestQualityScore(t *testing.T) {
	base := Asset{Type: TypeImage}
	if got := QualityScore(base); got != 50 {
		t.Errorf("image with no metrics = %v, want 50", got)
	}

	vid := Asset{Type: TypeVideo}
	if got := QualityScore(vid); got != 55 {
		t.Errorf("video with no metrics = %v, want 55", got)
	}

	popular := Asset{Type: TypeVideo, Views: 1000000, Downloads: 10000, Likes: 1000}
	// 50 + 10*6 + 5*4 + 2*3 + 5 = 141 → capped
	if got := QualityScore(popular); got != 100 {
		t.Errorf("popular video = %v, want capped 100", got)
	}
}

func TestScoreComposite(t *testing.T) {
	a := video("pexels", "1", 20, 1920, 1080, "city", "skyline", "night")
	c := Score("city skyline night", a, 20)

	if c.KeywordScore != 100 || c.DurationScore != 100 || c.OrientationScore != 100 {
		t.Fatalf("sub-scores = %v/%v/%v, want 100 each", c.KeywordScore, c.DurationScore, c.OrientationScore)
	}
	want := 0.40*100 + 0.30*100 + 0.20*100 + 0.10*c.QualityScore
	if c.Ranking != want {
		t.Errorf("Ranking = %v, want %v", c.Ranking, want)
	}
}

func TestRankFiltersHardRejects(t *testing.T) {
	candidates := []Candidate{
		Score("city", video("pexels", "good", 20, 1920, 1080, "city"), 20),
		Score("city", video("pexels", "portrait", 20, 1080, 1920, "city"), 20), // orientation 0
		Score("city", video("pexels", "toolong", 45, 1920, 1080, "city"), 20),  // duration 0
	}

	ranked := Rank(candidates, 10)
	if len(ranked) != 1 {
		t.Fatalf("len(ranked) = %d, want 1", len(ranked))
	}
	if ranked[0].ID != "good" {
		t.Errorf("survivor = %q, want good", ranked[0].ID)
	}
}

func TestRankImagePassesDurationGate(t *testing.T) {
	img := Asset{Provider: "pixabay", ID: "img1", Type: TypeImage, Width: 1920, Height: 1080, Tags: []string{"city"}}
	ranked := Rank([]Candidate{Score("city", img, 20)}, 10)
	if len(ranked) != 1 {
		t.Fatalf("image should pass the duration gate, got %d results", len(ranked))
	}
	if ranked[0].DurationScore != 60 {
		t.Errorf("image duration score = %v, want neutral 60", ranked[0].DurationScore)
	}
}

func TestRankDeduplicatesKeepingHigher(t *testing.T) {
	a := video("pexels", "42", 20, 1920, 1080, "city", "skyline", "night")
	strong := Score("city skyline night", a, 20)
	weak := Score("unrelated terms here", a, 20)

	ranked := Rank([]Candidate{weak, strong}, 10)
	if len(ranked) != 1 {
		t.Fatalf("len(ranked) = %d, want 1 after dedupe", len(ranked))
	}
	if ranked[0].Ranking != strong.Ranking {
		t.Errorf("kept ranking %v, want the higher %v", ranked[0].Ranking, strong.Ranking)
	}
	if ranked[0].MatchedQuery != "city skyline night" {
		t.Errorf("MatchedQuery = %q, want the stronger query", ranked[0].MatchedQuery)
	}
}

func TestRankDeterministic(t *testing.T) {
	var candidates []Candidate
	for i := 0; i < 8; i++ {
		a := video("pexels", fmt.Sprintf("v%d", i), 18+float64(i), 1920, 1080, "city")
		candidates = append(candidates, Score("city", a, 20))
	}
	for i := 0; i < 8; i++ {
		a := video("pixabay", fmt.Sprintf("v%d", i), 18+float64(i), 1920, 1080, "city")
		candidates = append(candidates, Score("city", a, 20))
	}

	first := Rank(candidates, 5)
	for run := 0; run < 10; run++ {
		again := Rank(candidates, 5)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("ranking not deterministic: run %d differs", run)
		}
	}
}

func TestRankTopN(t *testing.T) {
	var candidates []Candidate
	for i := 0; i < 10; i++ {
		a := video("pexels", fmt.Sprintf("v%d", i), 20, 1920, 1080, "city")
		candidates = append(candidates, Score("city", a, 20))
	}
	if got := len(Rank(candidates, 3)); got != 3 {
		t.Errorf("len = %d, want 3", got)
	}
}

func TestSearchRankedProviderErrorDegrades(t *testing.T) {
	healthy := &fakeProvider{
		name:   "pexels",
		assets: []Asset{video("pexels", "1", 20, 1920, 1080, "city")},
	}
	broken := &fakeProvider{name: "pixabay", err: fmt.Errorf("rate limited")}

	engine := NewEngine([]Provider{healthy, broken}, nil, EngineOptions{})
	candidates := engine.SearchRanked(context.Background(), []string{"city"}, 20)

	if len(candidates) != 1 {
		t.Fatalf("len(candidates) = %d, want 1 from the healthy provider", len(candidates))
	}
	if broken.calls != 1 {
		t.Errorf("broken provider calls = %d, want 1 (always awaited)", broken.calls)
	}
}

func TestSearchRankedMultipleQueries(t *testing.T) {
	p := &fakeProvider{
		name:   "pexels",
		assets: []Asset{video("pexels", "1", 20, 1920, 1080, "city", "ocean")},
	}
	engine := NewEngine([]Provider{p}, nil, EngineOptions{})

	candidates := engine.SearchRanked(context.Background(), []string{"city", "ocean", "desert"}, 20)
	if p.calls != 3 {
		t.Errorf("provider calls = %d, want 3 (one per query)", p.calls)
	}
	// The same asset matched by several queries collapses to one candidate.
	if len(candidates) != 1 {
		t.Errorf("len(candidates) = %d, want 1 after dedupe", len(candidates))
	}
}

func TestSearchRankedWritesThroughCache(t *testing.T) {
	p := &fakeProvider{
		name:   "pexels",
		assets: []Asset{video("pexels", "7", 20, 1920, 1080, "city")},
	}
	cache := newMemCache()
	engine := NewEngine([]Provider{p}, cache, EngineOptions{})

	engine.SearchRanked(context.Background(), []string{"city"}, 20)

	got, err := engine.ResolveAsset(context.Background(), "pexels", "7")
	if err != nil {
		t.Fatalf("ResolveAsset() error = %v", err)
	}
	if got.ID != "7" {
		t.Errorf("resolved ID = %q, want 7", got.ID)
	}
}

func TestResolveAssetMissing(t *testing.T) {
	engine := NewEngine(nil, newMemCache(), EngineOptions{})
	if _, err := engine.ResolveAsset(context.Background(), "pexels", "nope"); err == nil {
		t.Fatal("expected not-found error")
	}
}
