package pipeline

import (
	"context"
	"log/slog"
)

// SweepReport counts what a cache sweep removed.
type SweepReport struct {
	Assets int
	TTS    int
}

// Sweep expires both caches. Asset rows are plain deletes; TTS entries drop
// their storage object first so a failed object delete retries next sweep.
func (o *Orchestrator) Sweep(ctx context.Context) (*SweepReport, error) {
	assets, err := o.store.SweepAssetCache(ctx)
	if err != nil {
		return nil, err
	}

	tts, err := o.store.SweepTTSCache(ctx, o.objects)
	if err != nil {
		return nil, err
	}

	slog.Info("cache sweep done", "assets", assets, "tts", tts)
	return &SweepReport{Assets: assets, TTS: tts}, nil
}
