package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apperrors "storyreel/internal/errors"
	"storyreel/internal/probe"
	"storyreel/internal/storage"
)

const (
	defaultAttempts  = 3
	defaultBaseDelay = time.Second
	maxDelay         = 10 * time.Second

	defaultEstimateBitrate = 128000
	defaultObjectPrefix    = "tts"
	defaultWorkers         = 5
)

// Synthesizer runs the full synthesis contract: cache lookup, primary
// provider with bounded retries, fallback provider under the same policy,
// duration measurement, storage upload, and idempotent cache write.
type Synthesizer struct {
	providers []Provider
	cache     Cache
	store     storage.ObjectStore
	prober    probe.Prober

	attempts        int
	baseDelay       time.Duration
	estimateBitrate int
	objectPrefix    string
	workers         int
}

// Options tunes the synthesizer; zero values take the defaults.
type Options struct {
	Attempts        int
	BaseDelay       time.Duration
	EstimateBitrate int
	ObjectPrefix    string
	Workers         int
}

// NewSynthesizer builds the service. providers are tried in order: the
// first is primary, the rest are fallbacks. prober may be nil, in which
// case durations always come from the bitrate estimate.
func NewSynthesizer(providers []Provider, cache Cache, store storage.ObjectStore, prober probe.Prober, opts Options) *Synthesizer {
	if opts.Attempts == 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.BaseDelay == 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.EstimateBitrate == 0 {
		opts.EstimateBitrate = defaultEstimateBitrate
	}
	if opts.ObjectPrefix == "" {
		opts.ObjectPrefix = defaultObjectPrefix
	}
	if opts.Workers == 0 {
		opts.Workers = defaultWorkers
	}

	return &Synthesizer{
		providers:       providers,
		cache:           cache,
		store:           store,
		prober:          prober,
		attempts:        opts.Attempts,
		baseDelay:       opts.BaseDelay,
		estimateBitrate: opts.EstimateBitrate,
		objectPrefix:    opts.ObjectPrefix,
		workers:         opts.Workers,
	}
}

// CacheKey is the stable content address for a (text, preset) pair.
func CacheKey(text string, preset Preset) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(text)))
	h.Write([]byte{0})
	h.Write([]byte(preset.ID))
	return hex.EncodeToString(h.Sum(nil))
}

// Synthesize produces audio for one request, serving from the cache when
// possible.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (*Result, error) {
	key := CacheKey(req.Text, req.Preset)

	if !req.BypassCache {
		entry, err := s.cache.Get(ctx, key, req.Preset.ID)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			return &Result{
				AudioURL:        entry.AudioURL,
				DurationSeconds: entry.DurationSeconds,
				Cached:          true,
			}, nil
		}
	}

	audio, provider, err := s.synthesizeWithFailover(ctx, req.Text, req.Preset)
	if err != nil {
		return nil, err
	}

	duration := s.measure(ctx, audio)

	path := fmt.Sprintf("%s/%s.mp3", s.objectPrefix, key)
	audioURL, err := s.store.Upload(ctx, path, audio, "audio/mpeg")
	if err != nil {
		return nil, fmt.Errorf("upload audio: %w", err)
	}

	winner, inserted, err := s.cache.Put(ctx, Entry{
		Key:             key,
		PresetID:        req.Preset.ID,
		AudioURL:        audioURL,
		StoragePath:     path,
		DurationSeconds: duration,
	})
	if err != nil {
		return nil, err
	}
	if !inserted && winner != nil {
		// Lost an insert race: another writer cached the same content
		// first. Serve theirs; the path is content-addressed, so our
		// upload only needs removing when it landed somewhere else.
		if winner.StoragePath != path {
			if delErr := s.store.Delete(ctx, path); delErr != nil {
				slog.Warn("failed to remove duplicate audio object", "path", path, "error", delErr)
			}
		}
		return &Result{
			AudioURL:        winner.AudioURL,
			DurationSeconds: winner.DurationSeconds,
			Provider:        provider,
			Cached:          true,
		}, nil
	}

	return &Result{
		AudioURL:        audioURL,
		DurationSeconds: duration,
		Provider:        provider,
	}, nil
}

// synthesizeWithFailover tries each provider in order, exhausting the retry
// budget on one before moving to the next.
func (s *Synthesizer) synthesizeWithFailover(ctx context.Context, text string, preset Preset) ([]byte, string, error) {
	var lastErr error
	for _, p := range s.providers {
		audio, err := s.synthesizeWithRetry(ctx, p, text, preset)
		if err == nil {
			return audio, p.Name(), nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		slog.Warn("speech provider exhausted, trying next", "provider", p.Name(), "error", err)
		lastErr = err
	}
	return nil, "", apperrors.NewSynthesisFailed(lastErr)
}

func (s *Synthesizer) synthesizeWithRetry(ctx context.Context, p Provider, text string, preset Preset) ([]byte, error) {
	var lastErr error
	delay := s.baseDelay

	for attempt := 1; attempt <= s.attempts; attempt++ {
		if attempt > 1 {
			slog.Debug("retrying synthesis", "provider", p.Name(), "attempt", attempt, "delay", delay)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			delay = min(delay*2, maxDelay)
		}

		audio, err := p.Synthesize(ctx, text, preset)
		if err == nil && len(audio) > 0 {
			return audio, nil
		}
		if err == nil {
			err = fmt.Errorf("%s returned empty audio", p.Name())
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}

	return nil, apperrors.NewRetryExhausted(p.Name(), s.attempts, lastErr)
}

// measure probes the audio duration, falling back to the bitrate estimate
// when the probe is unavailable or fails.
func (s *Synthesizer) measure(ctx context.Context, audio []byte) float64 {
	if s.prober != nil {
		dur, err := s.prober.Duration(ctx, audio)
		if err == nil && dur > 0 {
			return dur
		}
		if err != nil {
			slog.Warn("duration probe failed, falling back to size estimate", "error", err)
		}
	}
	return probe.Estimate(len(audio), s.estimateBitrate)
}
