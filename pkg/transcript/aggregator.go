// Package transcript reassembles the recognition event stream into an
// ordered, correctable transcript. The segment log is append-only; speaker
// corrections live in an overlay applied at read time so history is never
// rewritten in place.
package transcript

import (
	"strings"
	"sync"
	"time"

	"meetscribe/pkg/models"
	"meetscribe/pkg/protocol"
)

// Aggregator is single-writer: only the streaming link's event handler
// calls Apply. Readers (persistence, summarization) take snapshots.
type Aggregator struct {
	sessionID string
	startedAt time.Time

	mu         sync.Mutex
	segments   []models.TranscriptSegment
	speakers   map[int64]string
	partial    string
	sawSegment bool

	// onChange fires after any durable mutation; the session layer uses
	// it to schedule a persistence flush.
	onChange func()
}

func NewAggregator(sessionID string, onChange func()) *Aggregator {
	return &Aggregator{
		sessionID: sessionID,
		startedAt: time.Now(),
		speakers:  make(map[int64]string),
		onChange:  onChange,
	}
}

// Apply folds one recognition event into the transcript.
func (a *Aggregator) Apply(ev protocol.Event) {
	switch ev := ev.(type) {
	case protocol.Partial:
		a.mu.Lock()
		a.partial = ev.Text
		a.mu.Unlock()

	case protocol.Segment:
		a.mu.Lock()
		offset := ev.Start
		if offset == 0 && ev.End == 0 {
			offset = time.Since(a.startedAt).Seconds()
		}
		a.segments = append(a.segments, models.TranscriptSegment{
			ID:        ev.ID,
			SessionID: a.sessionID,
			Speaker:   ev.Speaker,
			Offset:    offset,
			End:       ev.End,
			Text:      ev.Text,
		})
		a.sawSegment = true
		a.partial = ""
		a.mu.Unlock()
		a.changed()

	case protocol.SpeakerUpdate:
		a.mu.Lock()
		updated := false
		for _, seg := range a.segments {
			if seg.ID == ev.ID {
				if a.effectiveSpeaker(seg) != ev.Speaker {
					a.speakers[ev.ID] = ev.Speaker
					updated = true
				}
				break
			}
		}
		a.mu.Unlock()
		if updated {
			a.changed()
		}

	case protocol.Final:
		// Workers with segment support also emit a trailing bare final;
		// once any segment has been seen it would only duplicate text.
		a.mu.Lock()
		if a.sawSegment || strings.TrimSpace(ev.Text) == "" {
			a.mu.Unlock()
			return
		}
		a.segments = append(a.segments, models.TranscriptSegment{
			SessionID: a.sessionID,
			Offset:    time.Since(a.startedAt).Seconds(),
			Text:      ev.Text,
		})
		a.partial = ""
		a.mu.Unlock()
		a.changed()

	case protocol.Meta, protocol.ErrorEvent:
		// Informational; the session layer surfaces these as status.
	}
}

func (a *Aggregator) changed() {
	if a.onChange != nil {
		a.onChange()
	}
}

func (a *Aggregator) effectiveSpeaker(seg models.TranscriptSegment) string {
	if seg.ID != 0 {
		if sp, ok := a.speakers[seg.ID]; ok {
			return sp
		}
	}
	return seg.Speaker
}

// Segments returns a snapshot of the transcript with speaker corrections
// applied.
func (a *Aggregator) Segments() []models.TranscriptSegment {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.TranscriptSegment, len(a.segments))
	for i, seg := range a.segments {
		seg.Speaker = a.effectiveSpeaker(seg)
		out[i] = seg
	}
	return out
}

// Window returns the newest n segments with corrections applied.
func (a *Aggregator) Window(n int) []models.TranscriptSegment {
	segs := a.Segments()
	if len(segs) > n {
		segs = segs[len(segs)-n:]
	}
	return segs
}

// Len returns the number of finalized segments.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.segments)
}

// Partial returns the current provisional "typing" text.
func (a *Aggregator) Partial() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.partial
}

// StartedAt returns the wall-clock start of the session.
func (a *Aggregator) StartedAt() time.Time { return a.startedAt }
