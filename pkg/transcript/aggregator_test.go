package transcript

import (
	"testing"

	"meetscribe/pkg/protocol"
)

func TestSegmentsAppendInArrivalOrder(t *testing.T) {
	agg := NewAggregator("sess-1", nil)

	agg.Apply(protocol.Segment{ID: 1, Start: 1.0, End: 2.0, Text: "hello", Speaker: "Speaker 1"})
	agg.Apply(protocol.Segment{ID: 2, Start: 2.0, End: 3.0, Text: "world", Speaker: "Speaker 1"})

	segs := agg.Segments()
	if len(segs) != 2 {
		t.Fatalf("len = %d, want 2", len(segs))
	}
	if segs[0].Text != "hello" || segs[1].Text != "world" {
		t.Errorf("order = [%q, %q]", segs[0].Text, segs[1].Text)
	}
	if segs[0].Offset != 1.0 {
		t.Errorf("offset = %v, want 1.0", segs[0].Offset)
	}
}

func TestSegmentClearsPartial(t *testing.T) {
	agg := NewAggregator("sess-1", nil)

	agg.Apply(protocol.Partial{Text: "hel"})
	if agg.Partial() != "hel" {
		t.Errorf("partial = %q, want %q", agg.Partial(), "hel")
	}

	agg.Apply(protocol.Segment{ID: 1, Start: 1, End: 2, Text: "hello", Speaker: "Speaker 1"})
	if agg.Partial() != "" {
		t.Errorf("partial = %q after segment, want empty", agg.Partial())
	}
}

func TestSpeakerCorrectionScenario(t *testing.T) {
	agg := NewAggregator("sess-1", nil)

	agg.Apply(protocol.Segment{ID: 1, Start: 1, End: 2, Text: "hello", Speaker: "Speaker 1"})
	agg.Apply(protocol.Segment{ID: 2, Start: 2, End: 3, Text: "world", Speaker: "Speaker 1"})
	agg.Apply(protocol.SpeakerUpdate{ID: 1, Speaker: "Alice"})

	segs := agg.Segments()
	if segs[0].Speaker != "Alice" {
		t.Errorf("segment 1 speaker = %q, want %q", segs[0].Speaker, "Alice")
	}
	if segs[1].Speaker != "Speaker 1" {
		t.Errorf("segment 2 speaker = %q, want %q", segs[1].Speaker, "Speaker 1")
	}
	// Position and text untouched.
	if segs[0].Text != "hello" || segs[1].Text != "world" {
		t.Errorf("texts = [%q, %q]", segs[0].Text, segs[1].Text)
	}
}

func TestSpeakerCorrectionIdempotent(t *testing.T) {
	changes := 0
	agg := NewAggregator("sess-1", func() { changes++ })

	agg.Apply(protocol.Segment{ID: 1, Start: 1, End: 2, Text: "hello", Speaker: "Speaker 1"})
	agg.Apply(protocol.SpeakerUpdate{ID: 1, Speaker: "Alice"})
	after := changes
	agg.Apply(protocol.SpeakerUpdate{ID: 1, Speaker: "Alice"})

	if changes != after {
		t.Error("duplicate speaker update triggered another change")
	}
	if got := agg.Segments()[0].Speaker; got != "Alice" {
		t.Errorf("speaker = %q, want %q", got, "Alice")
	}
}

func TestSpeakerUpdateUnknownIDIsNoop(t *testing.T) {
	agg := NewAggregator("sess-1", nil)
	agg.Apply(protocol.Segment{ID: 1, Start: 1, End: 2, Text: "hello", Speaker: "Speaker 1"})

	agg.Apply(protocol.SpeakerUpdate{ID: 99, Speaker: "Bob"})

	if got := agg.Segments()[0].Speaker; got != "Speaker 1" {
		t.Errorf("speaker = %q, want unchanged", got)
	}
}

func TestFinalSuppressedAfterSegment(t *testing.T) {
	agg := NewAggregator("sess-1", nil)

	agg.Apply(protocol.Segment{ID: 1, Start: 1, End: 2, Text: "hello", Speaker: "Speaker 1"})
	agg.Apply(protocol.Final{Text: "hello again as one blob"})

	if n := agg.Len(); n != 1 {
		t.Errorf("len = %d, want 1 (bare final must not duplicate)", n)
	}
}

func TestFinalSynthesizesSegmentWithoutSegmentSupport(t *testing.T) {
	agg := NewAggregator("sess-1", nil)

	agg.Apply(protocol.Partial{Text: "the whole thi"})
	agg.Apply(protocol.Final{Text: "the whole thing"})

	segs := agg.Segments()
	if len(segs) != 1 {
		t.Fatalf("len = %d, want 1", len(segs))
	}
	if segs[0].Text != "the whole thing" {
		t.Errorf("text = %q", segs[0].Text)
	}
	if agg.Partial() != "" {
		t.Errorf("partial = %q, want cleared", agg.Partial())
	}
}

func TestEmptyFinalIgnored(t *testing.T) {
	agg := NewAggregator("sess-1", nil)
	agg.Apply(protocol.Final{Text: "   "})
	if agg.Len() != 0 {
		t.Error("blank final should not synthesize a segment")
	}
}

func TestOffsetDerivedFromElapsedWhenMissing(t *testing.T) {
	agg := NewAggregator("sess-1", nil)
	agg.Apply(protocol.Segment{ID: 1, Text: "untimed", Speaker: "Speaker 1"})

	segs := agg.Segments()
	if segs[0].Offset < 0 {
		t.Errorf("offset = %v, want >= 0", segs[0].Offset)
	}
}

func TestWindowReturnsNewest(t *testing.T) {
	agg := NewAggregator("sess-1", nil)
	for i := 1; i <= 10; i++ {
		agg.Apply(protocol.Segment{ID: int64(i), Start: float64(i), Text: "seg", Speaker: "Speaker 1"})
	}

	win := agg.Window(3)
	if len(win) != 3 {
		t.Fatalf("len = %d, want 3", len(win))
	}
	if win[0].ID != 8 || win[2].ID != 10 {
		t.Errorf("window ids = [%d..%d], want [8..10]", win[0].ID, win[2].ID)
	}
}

func TestChangeHookFiresOnAppend(t *testing.T) {
	changes := 0
	agg := NewAggregator("sess-1", func() { changes++ })

	agg.Apply(protocol.Partial{Text: "not durable"})
	if changes != 0 {
		t.Error("partial should not schedule persistence")
	}

	agg.Apply(protocol.Segment{ID: 1, Start: 1, Text: "durable", Speaker: "Speaker 1"})
	if changes != 1 {
		t.Errorf("changes = %d, want 1", changes)
	}
}
