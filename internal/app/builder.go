// Package app wires configuration into the running services: the store,
// the engines, and the orchestrator the commands drive.
package app

import (
	"context"
	"fmt"
	"time"

	"storyreel/internal/llm/groq"
	"storyreel/internal/moderation"
	"storyreel/internal/pipeline"
	"storyreel/internal/probe"
	"storyreel/internal/script"
	"storyreel/internal/speech"
	"storyreel/internal/speech/elevenlabs"
	"storyreel/internal/speech/fishaudio"
	"storyreel/internal/stock"
	"storyreel/internal/stock/pexels"
	"storyreel/internal/stock/pixabay"
	"storyreel/internal/storage"
	"storyreel/internal/store"
	"storyreel/pkg/config"
	"storyreel/pkg/prompts"
)

// Runtime bundles everything a command needs. Close releases the store.
type Runtime struct {
	Config       *config.Config
	Store        *store.Store
	Orchestrator *pipeline.Orchestrator
}

func (r *Runtime) Close() error {
	return r.Store.Close()
}

// Build constructs the full service graph from configuration. Providers
// without credentials are simply left out; Validate has already ensured the
// required ones are present.
func Build(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	p, err := prompts.Load()
	if err != nil {
		return nil, err
	}

	llmClient, err := groq.NewClient(cfg.GroqAPIKey, cfg.LLM.Model)
	if err != nil {
		return nil, err
	}

	classifier := moderation.NewClient(moderation.Config{
		APIKey:  cfg.ModerationAPIKey,
		Model:   cfg.Moderation.Model,
		BaseURL: cfg.Moderation.BaseURL,
	})
	scripts := script.NewEngine(llmClient,
		moderation.NewService(classifier, cfg.Moderation.FailOpen), p,
		script.Options{
			MinWords:       cfg.Script.MinWords,
			MaxWords:       cfg.Script.MaxWords,
			WordsPerMinute: cfg.Script.WordsPerMinute,
			Temperature:    cfg.LLM.Temperature,
			MaxTokens:      cfg.LLM.MaxTokens,
		})

	st, err := store.Open(cfg.DBPath, store.Options{
		AssetTTL: time.Duration(cfg.Cache.AssetTTLDays) * 24 * time.Hour,
		TTSTTL:   time.Duration(cfg.Cache.TTSTTLDays) * 24 * time.Hour,
	})
	if err != nil {
		return nil, err
	}

	searchTimeout := time.Duration(cfg.Stock.SearchTimeoutSecs) * time.Second
	var stockProviders []stock.Provider
	if cfg.PexelsAPIKey != "" {
		stockProviders = append(stockProviders, pexels.NewClient(pexels.Config{
			APIKey:     cfg.PexelsAPIKey,
			Timeout:    searchTimeout,
			WithPhotos: true,
		}))
	}
	if cfg.PixabayAPIKey != "" {
		stockProviders = append(stockProviders, pixabay.NewClient(pixabay.Config{
			APIKey:     cfg.PixabayAPIKey,
			Timeout:    searchTimeout,
			WithImages: true,
		}))
	}
	stocks := stock.NewEngine(stockProviders, st, stock.EngineOptions{
		TopN:    cfg.Stock.TopN,
		PerPage: cfg.Stock.PerPage,
	})

	objects, err := buildObjectStore(ctx, cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	synthTimeout := time.Duration(cfg.Speech.SynthTimeoutSecs) * time.Second
	var speechProviders []speech.Provider
	if cfg.ElevenLabsAPIKey != "" {
		speechProviders = append(speechProviders, elevenlabs.NewClient(elevenlabs.Config{
			APIKey:  cfg.ElevenLabsAPIKey,
			Model:   cfg.Speech.ElevenLabsModel,
			Timeout: synthTimeout,
		}))
	}
	if cfg.FishAudioAPIKey != "" {
		speechProviders = append(speechProviders, fishaudio.NewClient(fishaudio.Config{
			APIKey:  cfg.FishAudioAPIKey,
			Model:   cfg.Speech.FishAudioModel,
			Timeout: synthTimeout,
		}))
	}
	if len(speechProviders) == 0 {
		speechProviders = append(speechProviders, speech.NewStubProvider("stub"))
	}
	voice := speech.NewSynthesizer(speechProviders, st, objects, probe.NewFFProbe(),
		speech.Options{
			Workers:         cfg.Speech.Workers,
			EstimateBitrate: cfg.Speech.EstimateBitrate,
			ObjectPrefix:    cfg.Storage.ObjectPrefix,
		})

	orch := pipeline.NewOrchestrator(st, scripts, stocks, voice, objects, pipeline.Pacing{
		SegmentDelay: time.Duration(cfg.Pipeline.SegmentDelayMs) * time.Millisecond,
	})

	return &Runtime{Config: cfg, Store: st, Orchestrator: orch}, nil
}

func buildObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	switch cfg.Storage.Backend {
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("storage backend gcs requires GCS_BUCKET")
		}
		return storage.NewGCSStore(ctx, cfg.GCSBucket)
	default:
		return storage.NewLocalStore(cfg.Storage.LocalDir), nil
	}
}
