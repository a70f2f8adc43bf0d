package synth

import (
	"context"
	"fmt"
	"time"

	"github.com/diacast/diacast/internal/transcript"
)

// Request contains parameters to synthesize one segment of speech.
type Request struct {
	Index    int
	Speaker  string
	Voice    string
	Text     string
	Emphasis []transcript.Span
}

// Clip is raw synthesized PCM (s16le) for one segment.
type Clip struct {
	Index      int
	PCM        []byte
	SampleRate int
	Channels   int
}

// Duration derives the clip length from its PCM payload.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	samples := len(c.PCM) / (2 * c.Channels)
	return time.Duration(samples) * time.Second / time.Duration(c.SampleRate)
}

// Synthesizer is the contract for the external speech provider.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Clip, error)
}

// Error reports a synthesis failure after retry exhaustion, carrying the
// failing segment's index and speaker.
type Error struct {
	Index   int
	Speaker string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("synthesis failed for segment %d (speaker %s): %v", e.Index, e.Speaker, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
