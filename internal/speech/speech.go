// Package speech synthesizes narration audio with provider failover,
// bounded retries, and a content-addressed cache.
package speech

import "context"

// Preset is a reusable voice configuration. The provider-specific voice ids
// map it onto each backend's catalog; providers read only their own field.
type Preset struct {
	ID                string
	ElevenLabsVoiceID string
	FishAudioVoiceID  string
	Stability         float64
	Similarity        float64
	Speed             float64
}

// Provider turns text into raw audio bytes with one backend.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string, preset Preset) ([]byte, error)
}

// Request is one synthesis job. BypassCache forces a fresh synthesis even
// when a cached result exists.
type Request struct {
	Text        string
	Preset      Preset
	BypassCache bool
}

// Result is the outcome of one synthesis.
type Result struct {
	AudioURL        string
	DurationSeconds float64
	Provider        string
	Cached          bool
}

// Entry is one cached synthesis, keyed by (text hash, preset id).
type Entry struct {
	Key             string
	PresetID        string
	AudioURL        string
	StoragePath     string
	DurationSeconds float64
}

// Cache persists synthesis results. Put must be idempotent under
// concurrent writers: a duplicate-key insert resolves to the existing row.
// Put returns the winning entry and whether this call inserted it.
type Cache interface {
	Get(ctx context.Context, key, presetID string) (*Entry, error)
	Put(ctx context.Context, entry Entry) (*Entry, bool, error)
}
