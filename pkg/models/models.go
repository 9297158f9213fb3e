package models

import (
	"time"

	"github.com/google/uuid"
)

// TranscriptSegment is the durable unit of transcript text. Once appended
// its offset, text, and position never change; only Speaker may be
// corrected in place by a later speaker update.
type TranscriptSegment struct {
	ID        int64   `json:"id,omitempty"`
	SessionID string  `json:"session_id"`
	Speaker   string  `json:"speaker"`
	Offset    float64 `json:"offset"`
	End       float64 `json:"end,omitempty"`
	Text      string  `json:"text"`
}

// StoredTranscript is the artifact written to durable local storage,
// keyed by meeting identifier. A new save under the same key supersedes
// the previous one.
type StoredTranscript struct {
	MeetingID    string              `json:"meeting_id"`
	MeetingTitle string              `json:"meeting_title,omitempty"`
	StartedAt    time.Time           `json:"started_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Segments     []TranscriptSegment `json:"segments"`
}

// RollingSummary is the output of the live summarization collaborator.
type RollingSummary struct {
	Topic   string   `json:"topic"`
	Summary string   `json:"summary"`
	Bullets []string `json:"bullets"`
}

// IngestResult is returned by the transcript-ingestion collaborator
// after a session is finalized.
type IngestResult struct {
	Summary     string   `json:"summary,omitempty"`
	ActionItems []string `json:"action_items,omitempty"`
}

func NewStoredTranscript(meetingID, title string) *StoredTranscript {
	now := time.Now()
	return &StoredTranscript{
		MeetingID:    meetingID,
		MeetingTitle: title,
		StartedAt:    now,
		UpdatedAt:    now,
	}
}

// NewSessionID returns a fresh identifier for a capture session.
func NewSessionID() string {
	return uuid.New().String()
}
