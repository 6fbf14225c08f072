package stock

import "context"

// Type distinguishes video footage from still images.
type Type string

const (
	TypeVideo Type = "video"
	TypeImage Type = "image"
)

// Asset is one normalized stock-provider result. Duration is nil for
// images. Metadata carries the provider's free-text description used by
// keyword matching alongside Tags. Metric counts are zero when a provider
// does not expose them.
type Asset struct {
	Provider  string
	ID        string
	Type      Type
	URL       string
	ThumbURL  string
	Duration  *float64
	Width     int
	Height    int
	Tags      []string
	Metadata  string
	Views     int
	Downloads int
	Likes     int
}

// Query is one provider search. Duration bounds and orientation are hints:
// providers honor them where their API allows and the engine filters the
// rest by score.
type Query struct {
	Term        string
	MinDuration float64
	MaxDuration float64
	PerPage     int
	Orientation string
}

// Provider searches one stock-footage backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Asset, error)
}

// Candidate is an asset with its sub-scores and composite ranking attached.
type Candidate struct {
	Asset
	MatchedQuery     string
	KeywordScore     float64
	DurationScore    float64
	OrientationScore float64
	QualityScore     float64
	Ranking          float64
}

// Cache persists fetched assets so selection flows can resolve them later
// without re-querying providers.
type Cache interface {
	PutAsset(ctx context.Context, a Asset) error
	GetAsset(ctx context.Context, provider, id string) (*Asset, error)
}
