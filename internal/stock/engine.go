package stock

import (
	"context"
	"log/slog"
	"sort"

	apperrors "storyreel/internal/errors"
)

const (
	defaultTopN    = 3
	defaultPerPage = 15
)

// Engine fans queries out to every configured provider, scores and filters
// the merged results, and returns the top candidates per segment.
type Engine struct {
	providers []Provider
	cache     Cache
	topN      int
	perPage   int
}

// EngineOptions tunes the engine; zero values take the defaults.
type EngineOptions struct {
	TopN    int
	PerPage int
}

// NewEngine builds the search engine. cache may be nil, in which case
// fetched assets are not retained for later resolution.
func NewEngine(providers []Provider, cache Cache, opts EngineOptions) *Engine {
	if opts.TopN == 0 {
		opts.TopN = defaultTopN
	}
	if opts.PerPage == 0 {
		opts.PerPage = defaultPerPage
	}
	return &Engine{
		providers: providers,
		cache:     cache,
		topN:      opts.TopN,
		perPage:   opts.PerPage,
	}
}

type providerResult struct {
	provider string
	assets   []Asset
	err      error
}

// SearchRanked runs every query against every provider, merges the results,
// and returns the top candidates ranked against the target duration.
// Provider failures degrade to empty result sets with a warning; both
// providers are always awaited. Scoring and ordering are deterministic for
// identical inputs.
func (e *Engine) SearchRanked(ctx context.Context, queries []string, targetSeconds float64) []Candidate {
	var merged []Candidate
	for _, query := range queries {
		for _, asset := range e.fanOut(ctx, query, targetSeconds) {
			merged = append(merged, Score(query, asset, targetSeconds))
		}
	}

	return Rank(merged, e.topN)
}

// fanOut queries all providers concurrently for one term and joins the
// results. Fetched assets are written through to the cache best-effort.
func (e *Engine) fanOut(ctx context.Context, term string, targetSeconds float64) []Asset {
	q := Query{
		Term:        term,
		MinDuration: targetSeconds * 0.5,
		MaxDuration: targetSeconds * 1.5,
		PerPage:     e.perPage,
		Orientation: "landscape",
	}

	results := make(chan providerResult, len(e.providers))
	for _, p := range e.providers {
		go func(p Provider) {
			assets, err := p.Search(ctx, q)
			results <- providerResult{provider: p.Name(), assets: assets, err: err}
		}(p)
	}

	var assets []Asset
	for range e.providers {
		r := <-results
		if r.err != nil {
			slog.Warn("stock provider failed, degrading to empty result", "provider", r.provider, "query", term, "error", r.err)
			continue
		}
		assets = append(assets, r.assets...)
	}

	if e.cache != nil {
		for _, a := range assets {
			if err := e.cache.PutAsset(ctx, a); err != nil {
				slog.Debug("asset cache write failed", "provider", a.Provider, "id", a.ID, "error", err)
			}
		}
	}

	return assets
}

// Rank filters hard-rejected candidates, collapses duplicates to the
// highest-ranking instance, and returns the top n in descending ranking
// order with deterministic tie-breaks (provider, then id).
func Rank(candidates []Candidate, n int) []Candidate {
	best := make(map[[2]string]Candidate, len(candidates))
	for _, c := range candidates {
		if rejected(c) {
			continue
		}
		key := [2]string{c.Provider, c.ID}
		if prev, ok := best[key]; !ok || c.Ranking > prev.Ranking {
			best[key] = c
		}
	}

	ranked := make([]Candidate, 0, len(best))
	for _, c := range best {
		ranked = append(ranked, c)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Ranking != ranked[j].Ranking {
			return ranked[i].Ranking > ranked[j].Ranking
		}
		if ranked[i].Provider != ranked[j].Provider {
			return ranked[i].Provider < ranked[j].Provider
		}
		return ranked[i].ID < ranked[j].ID
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// ResolveAsset serves selection flows from the cache without re-querying
// providers.
func (e *Engine) ResolveAsset(ctx context.Context, provider, id string) (*Asset, error) {
	if e.cache == nil {
		return nil, apperrors.NewNotFound("asset", provider+"/"+id)
	}
	asset, err := e.cache.GetAsset(ctx, provider, id)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, apperrors.NewNotFound("asset", provider+"/"+id)
	}
	return asset, nil
}
