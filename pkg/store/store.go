// Package store persists transcripts to a local badger database so a
// session survives reloads and crashes. Retention is lossy-oldest-first:
// a transcript over budget is trimmed to its newest segments, never its
// oldest.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"

	"meetscribe/pkg/config"
	"meetscribe/pkg/models"
)

var ErrTranscriptNotFound = fmt.Errorf("transcript not found")

const trimSegments = 500

type Store struct {
	db  *badger.DB
	cfg config.StoreConfig
}

func Open(path string, cfg config.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	opts := badger.DefaultOptions(filepath.Join(path, "badger"))
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &Store{db: db, cfg: cfg}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func transcriptKey(meetingID string) []byte {
	return []byte("transcript:" + meetingID)
}

// SaveTranscript writes the transcript under its meeting key, superseding
// any previous save. If the serialized form exceeds the byte budget the
// transcript is retried with only the newest segments: first the newest
// 500, then the newest 250. The returned flag reports whether anything
// was dropped so the UI can warn the user.
func (s *Store) SaveTranscript(t *models.StoredTranscript) (trimmed bool, err error) {
	data, err := json.Marshal(t)
	if err != nil {
		return false, fmt.Errorf("marshal transcript: %w", err)
	}

	keep := s.cfg.MaxSegments
	if keep <= 0 {
		keep = trimSegments
	}
	for try := 0; try < 2 && s.cfg.MaxTranscriptBytes > 0 && len(data) > s.cfg.MaxTranscriptBytes; try++ {
		cut := *t
		if len(cut.Segments) > keep {
			cut.Segments = cut.Segments[len(cut.Segments)-keep:]
			trimmed = true
		}
		t = &cut
		if data, err = json.Marshal(t); err != nil {
			return trimmed, fmt.Errorf("marshal trimmed transcript: %w", err)
		}
		keep = keep / 2
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(transcriptKey(t.MeetingID), data)
	})
	if err != nil {
		return trimmed, fmt.Errorf("store transcript: %w", err)
	}
	return trimmed, nil
}

// LoadTranscript reads the transcript saved for a meeting. Absence is
// reported as ErrTranscriptNotFound; callers treat it as an empty
// starting transcript, not a failure.
func (s *Store) LoadTranscript(meetingID string) (*models.StoredTranscript, error) {
	var t models.StoredTranscript

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(transcriptKey(meetingID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &t)
		})
	})

	if err == badger.ErrKeyNotFound {
		return nil, ErrTranscriptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	return &t, nil
}

// DeleteTranscript removes a stored transcript. Missing keys are fine.
func (s *Store) DeleteTranscript(meetingID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(transcriptKey(meetingID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}
