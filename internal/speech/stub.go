package speech

import (
	"context"
	"strings"
)

const stubWordsPerMinute = 150.0

// StubProvider fabricates deterministic audio without any network call, for
// development without speech credentials and for tests. The payload size
// tracks the text's estimated spoken duration so bitrate estimates stay
// plausible.
type StubProvider struct {
	name           string
	wordsPerMinute float64
	err            error
}

func NewStubProvider(name string) *StubProvider {
	return &StubProvider{name: name, wordsPerMinute: stubWordsPerMinute}
}

// Fail makes every Synthesize call return err, for failover tests.
func (p *StubProvider) Fail(err error) *StubProvider {
	p.err = err
	return p
}

func (p *StubProvider) Name() string { return p.name }

func (p *StubProvider) Synthesize(ctx context.Context, text string, preset Preset) ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}

	words := len(strings.Fields(text))
	seconds := float64(words) / p.wordsPerMinute * 60
	if seconds < 1 {
		seconds = 1
	}

	// 128 kbit/s worth of placeholder bytes per second of speech.
	size := int(seconds * 16000)
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data, nil
}
