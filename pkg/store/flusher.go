package store

import (
	"log"
	"sync"
	"time"

	"meetscribe/pkg/models"
)

// Flusher coalesces transcript writes. Each change schedules a debounced
// flush that supersedes any pending one, so a burst of segments becomes
// one write. An independent autosave ticks while the session is live to
// bound data loss on ungraceful termination. Both are cancelled together
// by Stop.
type Flusher struct {
	store    *Store
	debounce time.Duration
	snapshot func() *models.StoredTranscript
	onTrim   func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewFlusher builds a flusher around a snapshot function. onTrim fires
// when a save had to drop old segments; it may be nil.
func NewFlusher(s *Store, debounce, autosave time.Duration, snapshot func() *models.StoredTranscript, onTrim func()) *Flusher {
	f := &Flusher{
		store:    s,
		debounce: debounce,
		snapshot: snapshot,
		onTrim:   onTrim,
		stopCh:   make(chan struct{}),
	}

	f.wg.Add(1)
	go f.autosave(autosave)
	return f
}

// Schedule arms the debounce timer, replacing any pending flush.
func (f *Flusher) Schedule() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return
	}
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.debounce, f.Flush)
}

// Flush writes the current snapshot immediately. Storage errors are
// logged and swallowed; the next debounce tick retries.
func (f *Flusher) Flush() {
	t := f.snapshot()
	if t == nil {
		return
	}
	trimmed, err := f.store.SaveTranscript(t)
	if err != nil {
		log.Printf("store: transcript flush failed (will retry on next change): %v", err)
		return
	}
	if trimmed && f.onTrim != nil {
		f.onTrim()
	}
}

func (f *Flusher) autosave(interval time.Duration) {
	defer f.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.Flush()
		case <-f.stopCh:
			return
		}
	}
}

// Stop cancels the pending debounce flush and the autosave ticker. It
// does not write; session finalization persists explicitly.
func (f *Flusher) Stop() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.mu.Unlock()

	close(f.stopCh)
	f.wg.Wait()
}
