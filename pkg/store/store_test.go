package store

import (
	"fmt"
	"testing"
	"time"

	"meetscribe/pkg/config"
	"meetscribe/pkg/models"
)

func openTestStore(t *testing.T, cfg config.StoreConfig) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeSegments(n int) []models.TranscriptSegment {
	segs := make([]models.TranscriptSegment, n)
	for i := range segs {
		segs[i] = models.TranscriptSegment{
			ID:        int64(i + 1),
			SessionID: "sess-1",
			Speaker:   "Speaker 1",
			Offset:    float64(i),
			Text:      fmt.Sprintf("segment number %d with some padding text to take up room", i+1),
		}
	}
	return segs
}

func TestSaveAndLoadTranscript(t *testing.T) {
	s := openTestStore(t, config.StoreConfig{MaxTranscriptBytes: 4 << 20, MaxSegments: 500})

	in := models.NewStoredTranscript("meeting-1", "Weekly sync")
	in.Segments = makeSegments(5)

	trimmed, err := s.SaveTranscript(in)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if trimmed {
		t.Error("small transcript should not be trimmed")
	}

	out, err := s.LoadTranscript("meeting-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.MeetingTitle != "Weekly sync" {
		t.Errorf("title = %q", out.MeetingTitle)
	}
	if len(out.Segments) != 5 {
		t.Errorf("segments = %d, want 5", len(out.Segments))
	}
}

func TestLoadMissingTranscript(t *testing.T) {
	s := openTestStore(t, config.StoreConfig{MaxTranscriptBytes: 4 << 20, MaxSegments: 500})

	if _, err := s.LoadTranscript("nope"); err != ErrTranscriptNotFound {
		t.Errorf("err = %v, want ErrTranscriptNotFound", err)
	}
}

func TestSaveSupersedesPrevious(t *testing.T) {
	s := openTestStore(t, config.StoreConfig{MaxTranscriptBytes: 4 << 20, MaxSegments: 500})

	first := models.NewStoredTranscript("meeting-1", "")
	first.Segments = makeSegments(3)
	if _, err := s.SaveTranscript(first); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := models.NewStoredTranscript("meeting-1", "")
	second.Segments = makeSegments(7)
	if _, err := s.SaveTranscript(second); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := s.LoadTranscript("meeting-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out.Segments) != 7 {
		t.Errorf("segments = %d, want 7 (second save supersedes)", len(out.Segments))
	}
}

func TestRetentionTrimsOldestFirst(t *testing.T) {
	// Budget small enough that 500 segments still exceed it, forcing the
	// second retry at half.
	s := openTestStore(t, config.StoreConfig{MaxTranscriptBytes: 30000, MaxSegments: 500})

	in := models.NewStoredTranscript("meeting-1", "")
	in.Segments = makeSegments(1000)

	trimmed, err := s.SaveTranscript(in)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !trimmed {
		t.Fatal("expected trim to be reported")
	}

	out, err := s.LoadTranscript("meeting-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out.Segments) > 500 {
		t.Fatalf("retained %d segments, want <= 500", len(out.Segments))
	}
	// Retained segments are exactly the newest by append order.
	last := out.Segments[len(out.Segments)-1]
	if last.ID != 1000 {
		t.Errorf("newest retained id = %d, want 1000", last.ID)
	}
	first := out.Segments[0]
	if int(first.ID) != 1000-len(out.Segments)+1 {
		t.Errorf("oldest retained id = %d, want %d", first.ID, 1000-len(out.Segments)+1)
	}
}

func TestRetentionLeavesOriginalIntact(t *testing.T) {
	s := openTestStore(t, config.StoreConfig{MaxTranscriptBytes: 30000, MaxSegments: 500})

	in := models.NewStoredTranscript("meeting-1", "")
	in.Segments = makeSegments(1000)

	if _, err := s.SaveTranscript(in); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(in.Segments) != 1000 {
		t.Errorf("caller's transcript mutated to %d segments", len(in.Segments))
	}
}

func TestDeleteTranscript(t *testing.T) {
	s := openTestStore(t, config.StoreConfig{MaxTranscriptBytes: 4 << 20, MaxSegments: 500})

	in := models.NewStoredTranscript("meeting-1", "")
	in.Segments = makeSegments(1)
	if _, err := s.SaveTranscript(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := s.DeleteTranscript("meeting-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.LoadTranscript("meeting-1"); err != ErrTranscriptNotFound {
		t.Errorf("err = %v, want ErrTranscriptNotFound", err)
	}
}

func TestFlusherDebounceCoalesces(t *testing.T) {
	s := openTestStore(t, config.StoreConfig{MaxTranscriptBytes: 4 << 20, MaxSegments: 500})

	saves := 0
	snapshot := func() *models.StoredTranscript {
		saves++
		tr := models.NewStoredTranscript("meeting-1", "")
		tr.Segments = makeSegments(2)
		return tr
	}

	f := NewFlusher(s, 50*time.Millisecond, time.Hour, snapshot, nil)
	defer f.Stop()

	for i := 0; i < 5; i++ {
		f.Schedule()
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(200 * time.Millisecond)

	if saves != 1 {
		t.Errorf("saves = %d, want 1 (burst must coalesce)", saves)
	}
}

func TestFlusherStopCancelsPendingFlush(t *testing.T) {
	s := openTestStore(t, config.StoreConfig{MaxTranscriptBytes: 4 << 20, MaxSegments: 500})

	saves := 0
	snapshot := func() *models.StoredTranscript {
		saves++
		return nil
	}

	f := NewFlusher(s, 50*time.Millisecond, time.Hour, snapshot, nil)
	f.Schedule()
	f.Stop()
	time.Sleep(100 * time.Millisecond)

	if saves != 0 {
		t.Errorf("saves = %d, want 0 after Stop", saves)
	}
}

func TestFlusherReportsTrim(t *testing.T) {
	s := openTestStore(t, config.StoreConfig{MaxTranscriptBytes: 30000, MaxSegments: 500})

	trims := 0
	snapshot := func() *models.StoredTranscript {
		tr := models.NewStoredTranscript("meeting-1", "")
		tr.Segments = makeSegments(1000)
		return tr
	}

	f := NewFlusher(s, time.Hour, time.Hour, snapshot, func() { trims++ })
	defer f.Stop()

	f.Flush()
	if trims != 1 {
		t.Errorf("trims = %d, want 1", trims)
	}
}
