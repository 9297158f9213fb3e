// Package meeting talks to the external meeting-record service. Both
// operations are opaque remote calls with their own failure modes; the
// session layer degrades to local-only persistence when they fail.
package meeting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"meetscribe/pkg/models"
)

// Service is the narrow surface the pipeline consumes.
type Service interface {
	CreateMeeting(ctx context.Context, title string, start, end time.Time) (string, error)
	IngestTranscript(ctx context.Context, meetingID string, segments []models.TranscriptSegment, startedAt, endedAt time.Time, summarize bool) (models.IngestResult, error)
}

// HTTPClient implements Service against the meeting-assistant backend.
type HTTPClient struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type createMeetingRequest struct {
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type createMeetingResponse struct {
	MeetingID string `json:"meeting_id"`
}

func (c *HTTPClient) CreateMeeting(ctx context.Context, title string, start, end time.Time) (string, error) {
	var resp createMeetingResponse
	err := c.post(ctx, "/meetings", createMeetingRequest{Title: title, StartTime: start, EndTime: end}, &resp)
	if err != nil {
		return "", err
	}
	if resp.MeetingID == "" {
		return "", fmt.Errorf("meeting service returned no meeting id")
	}
	return resp.MeetingID, nil
}

type ingestRequest struct {
	Segments  []models.TranscriptSegment `json:"segments"`
	StartedAt time.Time                  `json:"started_at"`
	EndedAt   time.Time                  `json:"ended_at"`
	Summarize bool                       `json:"summarize"`
}

func (c *HTTPClient) IngestTranscript(ctx context.Context, meetingID string, segments []models.TranscriptSegment, startedAt, endedAt time.Time, summarize bool) (models.IngestResult, error) {
	var resp models.IngestResult
	path := fmt.Sprintf("/meetings/%s/transcript", meetingID)
	err := c.post(ctx, path, ingestRequest{
		Segments:  segments,
		StartedAt: startedAt,
		EndedAt:   endedAt,
		Summarize: summarize,
	}, &resp)
	return resp, err
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("calling meeting service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading meeting service response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("meeting service error (HTTP %d): %s", resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parsing meeting service response: %w", err)
		}
	}
	return nil
}
