package speech

import (
	"context"
	"sync"
)

// BatchItem is one slot of a batch result. Err is set per item; a single
// failed synthesis does not abort the batch.
type BatchItem struct {
	Result *Result
	Err    error
}

// SynthesizeBatch runs the requests through a bounded worker pool.
// Completion order is unspecified, but the returned slice is aligned to the
// input order.
func (s *Synthesizer) SynthesizeBatch(ctx context.Context, reqs []Request) []BatchItem {
	items := make([]BatchItem, len(reqs))
	sem := make(chan struct{}, s.workers)

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := s.Synthesize(ctx, req)
			items[i] = BatchItem{Result: result, Err: err}
		}(i, req)
	}
	wg.Wait()

	return items
}
