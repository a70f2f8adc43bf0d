package synth

import (
	"context"
	"strings"
	"time"
)

// mockSynth produces silent PCM sized by a fixed speaking rate. Used for
// tests and offline runs.
type mockSynth struct {
	sampleRate int
	channels   int
	perWord    time.Duration
}

func NewMockSynth(sampleRate, channels int) Synthesizer {
	return &mockSynth{sampleRate: sampleRate, channels: channels, perWord: 150 * time.Millisecond}
}

func (m *mockSynth) Synthesize(ctx context.Context, req Request) (Clip, error) {
	select {
	case <-ctx.Done():
		return Clip{}, ctx.Err()
	default:
	}
	words := len(strings.Fields(req.Text))
	dur := time.Duration(words) * m.perWord
	samples := int(dur * time.Duration(m.sampleRate) / time.Second)
	return Clip{
		Index:      req.Index,
		PCM:        make([]byte, samples*2*m.channels),
		SampleRate: m.sampleRate,
		Channels:   m.channels,
	}, nil
}
