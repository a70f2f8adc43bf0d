package synth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/diacast/diacast/internal/transcript"
)

const retryInitialInterval = 100 * time.Millisecond

// Dispatcher fans segments out to a bounded worker pool and joins the
// resulting clips in original segment index order. Segments with no text
// trigger no provider call and yield a nil clip.
type Dispatcher struct {
	synth       Synthesizer
	workers     int
	callTimeout time.Duration
	maxRetries  int
	log         *slog.Logger
}

func NewDispatcher(synth Synthesizer, workers int, callTimeout time.Duration, maxRetries int, log *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		synth:       synth,
		workers:     workers,
		callTimeout: callTimeout,
		maxRetries:  maxRetries,
		log:         log.With(slog.String("component", "synthesis-dispatcher")),
	}
}

// Dispatch synthesizes every non-silent segment. The returned slice is
// parallel to segs; silent-only segments map to nil. The first failure
// cancels all in-flight calls and is returned as *Error.
func (d *Dispatcher) Dispatch(ctx context.Context, segs []transcript.Segment, voiceFor func(speaker string) string) ([]*Clip, error) {
	clips := make([]*Clip, len(segs))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	workers := d.workers
	if workers > len(segs) {
		workers = len(segs)
	}
	if workers < 1 {
		workers = 1
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				seg := segs[idx]
				clip, err := d.synthesizeWithRetry(ctx, Request{
					Index:    idx,
					Speaker:  seg.Speaker,
					Voice:    voiceFor(seg.Speaker),
					Text:     seg.Text,
					Emphasis: seg.Emphasis,
				})
				if err != nil {
					fail(&Error{Index: idx, Speaker: seg.Speaker, Err: err})
					return
				}
				clips[idx] = &clip
			}
		}()
	}

feed:
	for i, seg := range segs {
		if seg.Text == "" {
			continue
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return clips, nil
}

func (d *Dispatcher) synthesizeWithRetry(ctx context.Context, req Request) (Clip, error) {
	attempt := 0
	op := func() (Clip, error) {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
		defer cancel()
		clip, err := d.synth.Synthesize(callCtx, req)
		if err != nil {
			d.log.Warn("synthesis attempt failed",
				slog.Int("segment", req.Index),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
		}
		return clip, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(d.maxRetries+1)),
	)
}
