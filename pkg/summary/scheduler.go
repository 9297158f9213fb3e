package summary

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"meetscribe/pkg/models"
)

// Scheduler samples the transcript on a fixed interval and refreshes the
// rolling summary view. Invariant: at most one summarization call is in
// flight; a tick that lands while one is outstanding is skipped
// entirely, never queued.
type Scheduler struct {
	summarizer  Summarizer
	source      func() []models.TranscriptSegment
	window      int
	minSegments int
	interval    time.Duration

	inFlight atomic.Bool

	mu      sync.Mutex
	current models.RollingSummary
	status  string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler builds a scheduler over a segment source. The source is
// sampled at each tick; only the newest window segments are sent.
func NewScheduler(s Summarizer, source func() []models.TranscriptSegment, window, minSegments int, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		summarizer:  s,
		source:      source,
		window:      window,
		minSegments: minSegments,
		interval:    interval,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start runs an immediate pass and then ticks until Stop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Tick()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Tick()
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

// Tick runs one summarization pass unless one is already outstanding.
func (s *Scheduler) Tick() {
	if !s.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer s.inFlight.Store(false)

	segments := s.source()
	if len(segments) < s.minSegments {
		return
	}
	if len(segments) > s.window {
		segments = segments[len(segments)-s.window:]
	}

	result, err := s.summarizer.Summarize(s.ctx, segments)
	if err != nil {
		if s.ctx.Err() != nil {
			// Session moved past stopping; discard quietly.
			return
		}
		log.Printf("summary: rolling summarization failed: %v", err)
		s.mu.Lock()
		s.status = "Summary unavailable"
		s.mu.Unlock()
		return
	}

	if s.ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	s.current = result
	s.status = ""
	s.mu.Unlock()
}

// Current returns the latest rolling summary and a transient status
// string describing the last failure, if any.
func (s *Scheduler) Current() (models.RollingSummary, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.status
}

// Stop cancels the ticker and any in-flight call's context. A call that
// completes after Stop has its result discarded.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}
