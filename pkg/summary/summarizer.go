// Package summary keeps a rolling topic/summary view of the live
// transcript fresh by periodically calling the external summarization
// collaborator.
package summary

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

// Summarizer is the external summarization collaborator, opaque to the
// pipeline. Transport and parse failures are its own failure modes.
type Summarizer interface {
	Summarize(ctx context.Context, segments []models.TranscriptSegment) (models.RollingSummary, error)
}

// HTTPSummarizer posts transcript segments to a summarization endpoint
// and decodes the {topic, summary, bullets} triple it returns.
type HTTPSummarizer struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPSummarizer(endpoint string) *HTTPSummarizer {
	return &HTTPSummarizer{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type summarizeRequest struct {
	Segments []models.TranscriptSegment `json:"segments"`
}

func (s *HTTPSummarizer) Summarize(ctx context.Context, segments []models.TranscriptSegment) (models.RollingSummary, error) {
	body, err := json.Marshal(summarizeRequest{Segments: segments})
	if err != nil {
		return models.RollingSummary{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return models.RollingSummary{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return models.RollingSummary{}, fmt.Errorf("calling summarizer: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.RollingSummary{}, fmt.Errorf("reading summarizer response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.RollingSummary{}, fmt.Errorf("summarizer error (HTTP %d): %s", resp.StatusCode, respBody)
	}

	var out models.RollingSummary
	if err := json.Unmarshal(respBody, &out); err != nil {
		return models.RollingSummary{}, fmt.Errorf("parsing summarizer response: %w", err)
	}
	return out, nil
}

// LocalSummarizer is the degraded, offline fallback used when no
// collaborator is reachable during finalization: a crude extract rather
// than a real summary, but better than nothing.
type LocalSummarizer struct{}

func (LocalSummarizer) Summarize(_ context.Context, segments []models.TranscriptSegment) (models.RollingSummary, error) {
	if len(segments) == 0 {
		return models.RollingSummary{}, fmt.Errorf("no segments to summarize")
	}

	var bullets []string
	for _, seg := range segments {
		if len(seg.Text) > 40 {
			bullets = append(bullets, seg.Text)
		}
		if len(bullets) == 5 {
			break
		}
	}

	return models.RollingSummary{
		Topic:   "Meeting notes",
		Summary: fmt.Sprintf("Transcript with %d segments, saved locally.", len(segments)),
		Bullets: bullets,
	}, nil
}
