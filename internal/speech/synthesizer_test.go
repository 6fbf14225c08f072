package speech

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "storyreel/internal/errors"
	"storyreel/internal/storage"
)

type memCache struct {
	mu      sync.Mutex
	entries map[string]Entry
	puts    int
}

func newMemCache() *memCache { return &memCache{entries: map[string]Entry{}} }

func (m *memCache) Get(ctx context.Context, key, presetID string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key+"|"+presetID]; ok {
		return &e, nil
	}
	return nil, nil
}

func (m *memCache) Put(ctx context.Context, entry Entry) (*Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	k := entry.Key + "|" + entry.PresetID
	if existing, ok := m.entries[k]; ok {
		return &existing, false, nil
	}
	m.entries[k] = entry
	return &entry, true, nil
}

type countingProvider struct {
	name     string
	failures int
	mu       sync.Mutex
	calls    int
}

func (p *countingProvider) Name() string { return p.name }

func (p *countingProvider) Synthesize(ctx context.Context, text string, preset Preset) ([]byte, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	p.mu.Unlock()
	if n <= p.failures {
		return nil, fmt.Errorf("%s transient failure %d", p.name, n)
	}
	return []byte("audio:" + text), nil
}

func newTestSynthesizer(t *testing.T, providers []Provider, cache Cache) *Synthesizer {
	t.Helper()
	store := storage.NewLocalStore(t.TempDir())
	return NewSynthesizer(providers, cache, store, nil, Options{BaseDelay: time.Millisecond})
}

var testPreset = Preset{ID: "narrator", ElevenLabsVoiceID: "v1", Stability: 0.5, Similarity: 0.5, Speed: 1.0}

func TestSynthesizeHappyPath(t *testing.T) {
	primary := &countingProvider{name: "primary"}
	s := newTestSynthesizer(t, []Provider{primary}, newMemCache())

	result, err := s.Synthesize(context.Background(), Request{Text: "hello world", Preset: testPreset})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if result.Cached {
		t.Error("first synthesis reported cached")
	}
	if result.Provider != "primary" {
		t.Errorf("Provider = %q, want primary", result.Provider)
	}
	if result.AudioURL == "" {
		t.Error("AudioURL empty")
	}
	if result.DurationSeconds <= 0 {
		t.Errorf("DurationSeconds = %v, want > 0 from size estimate", result.DurationSeconds)
	}
}

func TestSynthesizeCacheIdempotent(t *testing.T) {
	primary := &countingProvider{name: "primary"}
	cache := newMemCache()
	s := newTestSynthesizer(t, []Provider{primary}, cache)

	req := Request{Text: "same text", Preset: testPreset}
	first, err := s.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("first Synthesize() error = %v", err)
	}
	second, err := s.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("second Synthesize() error = %v", err)
	}

	if first.Cached {
		t.Error("first call reported cached")
	}
	if !second.Cached {
		t.Error("second call not served from cache")
	}
	if second.AudioURL != first.AudioURL {
		t.Errorf("cached AudioURL = %q, want %q", second.AudioURL, first.AudioURL)
	}
	if primary.calls != 1 {
		t.Errorf("provider calls = %d, want 1", primary.calls)
	}
	if len(cache.entries) != 1 {
		t.Errorf("cache entries = %d, want 1", len(cache.entries))
	}
}

func TestSynthesizeBypassCache(t *testing.T) {
	primary := &countingProvider{name: "primary"}
	s := newTestSynthesizer(t, []Provider{primary}, newMemCache())

	req := Request{Text: "text", Preset: testPreset}
	if _, err := s.Synthesize(context.Background(), req); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	req.BypassCache = true
	result, err := s.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("bypass Synthesize() error = %v", err)
	}
	if primary.calls != 2 {
		t.Errorf("provider calls = %d, want 2 with bypass", primary.calls)
	}
	// The bypass synthesis lost the cache insert to the first call, so the
	// cached row wins and the duplicate upload is discarded.
	if !result.Cached {
		t.Error("bypass loser should resolve to the cached row")
	}
}

func TestSynthesizeRetriesThenSucceeds(t *testing.T) {
	primary := &countingProvider{name: "primary", failures: 2}
	s := newTestSynthesizer(t, []Provider{primary}, newMemCache())

	result, err := s.Synthesize(context.Background(), Request{Text: "retry me", Preset: testPreset})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if primary.calls != 3 {
		t.Errorf("provider calls = %d, want 3", primary.calls)
	}
	if result.Provider != "primary" {
		t.Errorf("Provider = %q, want primary", result.Provider)
	}
}

func TestSynthesizeFailsOverToSecondary(t *testing.T) {
	primary := &countingProvider{name: "primary", failures: 99}
	secondary := &countingProvider{name: "secondary"}
	s := newTestSynthesizer(t, []Provider{primary, secondary}, newMemCache())

	result, err := s.Synthesize(context.Background(), Request{Text: "failover", Preset: testPreset})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if primary.calls != 3 {
		t.Errorf("primary calls = %d, want 3 before failover", primary.calls)
	}
	if result.Provider != "secondary" {
		t.Errorf("Provider = %q, want secondary", result.Provider)
	}
}

func TestSynthesizeBothProvidersExhausted(t *testing.T) {
	primary := &countingProvider{name: "primary", failures: 99}
	secondary := &countingProvider{name: "secondary", failures: 99}
	s := newTestSynthesizer(t, []Provider{primary, secondary}, newMemCache())

	_, err := s.Synthesize(context.Background(), Request{Text: "doomed", Preset: testPreset})
	if !apperrors.Is(err, apperrors.CodeSynthesisFailed) {
		t.Fatalf("error code = %v, want SYNTHESIS_FAILED", apperrors.CodeOf(err))
	}
	if primary.calls != 3 || secondary.calls != 3 {
		t.Errorf("calls = %d/%d, want 3/3", primary.calls, secondary.calls)
	}
}

func TestCacheKeyStability(t *testing.T) {
	a := CacheKey("  hello world  ", testPreset)
	b := CacheKey("hello world", testPreset)
	if a != b {
		t.Error("trimming changed the cache key")
	}

	other := testPreset
	other.ID = "different"
	if CacheKey("hello world", other) == b {
		t.Error("different presets share a cache key")
	}
	if CacheKey("other text", testPreset) == b {
		t.Error("different texts share a cache key")
	}
}

func TestSynthesizeBatchAlignment(t *testing.T) {
	primary := &countingProvider{name: "primary"}
	s := newTestSynthesizer(t, []Provider{primary}, newMemCache())

	reqs := make([]Request, 12)
	for i := range reqs {
		reqs[i] = Request{Text: fmt.Sprintf("segment %d text", i), Preset: testPreset}
	}

	items := s.SynthesizeBatch(context.Background(), reqs)
	if len(items) != len(reqs) {
		t.Fatalf("len(items) = %d, want %d", len(items), len(reqs))
	}
	for i, item := range items {
		if item.Err != nil {
			t.Errorf("items[%d].Err = %v", i, item.Err)
			continue
		}
		if item.Result == nil || item.Result.AudioURL == "" {
			t.Errorf("items[%d] missing result", i)
		}
	}
}

func TestSynthesizeBatchPerItemErrors(t *testing.T) {
	// All providers fail: every item carries its own error, none aborts
	// the batch.
	primary := &countingProvider{name: "primary", failures: 1 << 30}
	s := newTestSynthesizer(t, []Provider{primary}, newMemCache())

	items := s.SynthesizeBatch(context.Background(), []Request{
		{Text: "a", Preset: testPreset},
		{Text: "b", Preset: testPreset},
	})
	for i, item := range items {
		if item.Err == nil {
			t.Errorf("items[%d].Err = nil, want error", i)
		}
	}
}
