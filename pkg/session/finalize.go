package session

import (
	"context"
	"log"
	"time"

	"meetscribe/pkg/protocol"
	"meetscribe/pkg/summary"
)

// Statuses reported by the stop workflow. Losing a transcript is worse
// than losing a remote summary, so every remote failure degrades to a
// local save plus one of these, never a hard error.
const (
	statusSavedLocally    = "Saved locally instead"
	statusNotEnough       = "Not enough transcript to summarize"
	statusIngestFailed    = "Failed to save transcript to meeting history"
	statusSaved           = "Transcript saved"
	statusLocalSaveFailed = "Could not save transcript locally"
)

// Stop runs the finalization workflow: tear down the link and audio
// graph, persist locally, resolve the backing meeting record, and hand
// the transcript to the ingestion collaborator. It returns the status
// strings produced along the way and never an error: no failure past
// this boundary.
func (c *Controller) Stop(ctx context.Context) []string {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.mu.Unlock()

	// 1. Streaming link and audio graph go first. Best-effort end
	// control lets the worker flush; then the link closes regardless.
	if err := c.link.SendControl(endControl()); err == nil {
		select {
		case <-c.link.Done():
		case <-time.After(2 * time.Second):
		}
	}
	c.link.Close()
	c.wg.Wait()

	// 2. Timers die together; in-flight summarization results are
	// discarded past this point.
	c.flusher.Stop()
	c.scheduler.Stop()

	var statuses []string
	report := func(msg string) {
		statuses = append(statuses, msg)
		c.status(msg)
	}

	// 3. Unconditional local persistence: cheap and must happen before
	// any remote call can fail.
	snapshot := c.Snapshot()
	if _, err := c.store.SaveTranscript(snapshot); err != nil {
		log.Printf("session: final local save failed: %v", err)
		report(statusLocalSaveFailed)
	}

	endedAt := time.Now()
	segments := snapshot.Segments
	enough := len(segments) >= c.cfg.Summary.MinSegments

	// 4. Resolve the backing meeting record.
	if c.meetingID == "" {
		if !enough {
			report(statusNotEnough)
			return statuses
		}
		id, err := c.meetings.CreateMeeting(ctx, c.defaultTitle(), c.startedAt, endedAt)
		if err != nil {
			log.Printf("session: create meeting failed: %v", err)
			report(statusSavedLocally)
			c.localSummaryPass(ctx)
			return statuses
		}
		c.meetingID = id
		// Re-key the local copy under the meeting it now belongs to.
		snapshot.MeetingID = id
		if _, err := c.store.SaveTranscript(snapshot); err != nil {
			log.Printf("session: re-keyed local save failed: %v", err)
		}
	}

	// 5. Ship the full transcript; summarize only with enough content.
	result, err := c.meetings.IngestTranscript(ctx, c.meetingID, segments, c.startedAt, endedAt, enough)
	if err != nil {
		log.Printf("session: transcript ingest failed: %v", err)
		report(statusIngestFailed)
		return statuses
	}

	report(statusSaved)
	if result.Summary != "" {
		report("Summary: " + result.Summary)
	}
	for _, item := range result.ActionItems {
		report("Action item: " + item)
	}
	return statuses
}

func endControl() protocol.ControlMessage {
	return protocol.ControlMessage{Cmd: protocol.CmdEnd}
}

// localSummaryPass is the degraded path when no backing meeting could be
// created: a best-effort local summarization so the user still gets
// something, with failures only logged.
func (c *Controller) localSummaryPass(ctx context.Context) {
	segs := c.agg.Segments()
	if len(segs) < c.cfg.Summary.MinSegments {
		return
	}
	result, err := summary.LocalSummarizer{}.Summarize(ctx, segs)
	if err != nil {
		log.Printf("session: local summary pass failed: %v", err)
		return
	}
	if result.Summary != "" {
		c.status("Summary: " + result.Summary)
	}
}
