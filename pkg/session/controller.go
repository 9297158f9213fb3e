package session

import (
	"fmt"
	"log"
	"sync"
	"time"

	"meetscribe/pkg/audio"
	"meetscribe/pkg/config"
	"meetscribe/pkg/meeting"
	"meetscribe/pkg/models"
	"meetscribe/pkg/protocol"
	"meetscribe/pkg/store"
	"meetscribe/pkg/summary"
	"meetscribe/pkg/transcript"
)

// Options configure a capture session before it starts.
type Options struct {
	// MeetingID links the session to an existing backing meeting. Empty
	// means one is created (or the session stays local) at stop time.
	MeetingID string
	// MeetingName is used as the title when a backing meeting is
	// created; empty falls back to a timestamp-based default.
	MeetingName string
	// CaptureRate is the native sample rate of the capture sources.
	CaptureRate int
	// Status receives short human-readable strings for UI display. May
	// be nil.
	Status func(string)
}

// Controller owns all transient state of one capture session and is
// destroyed on stop.
type Controller struct {
	cfg        *config.Config
	store      *store.Store
	summarizer summary.Summarizer
	meetings   meeting.Service
	opts       Options

	sessionID string
	meetingID string

	chain     *audio.Chain
	link      *Link
	agg       *transcript.Aggregator
	flusher   *store.Flusher
	scheduler *summary.Scheduler

	// prior holds segments loaded from a previous save of the same
	// meeting; the durable snapshot prepends them.
	prior     []models.TranscriptSegment
	startedAt time.Time

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func NewController(cfg *config.Config, st *store.Store, sum summary.Summarizer, meetings meeting.Service, opts Options) *Controller {
	if opts.CaptureRate == 0 {
		opts.CaptureRate = 48000
	}
	return &Controller{
		cfg:        cfg,
		store:      st,
		summarizer: sum,
		meetings:   meetings,
		opts:       opts,
		meetingID:  opts.MeetingID,
	}
}

// Start opens the streaming link and brings up the processing graph,
// aggregator, persistence, and summarization. Link-open failure is
// blocking: the session does not start.
func (c *Controller) Start() error {
	c.sessionID = models.NewSessionID()
	c.startedAt = time.Now()

	// Re-selecting a meeting resumes its saved transcript; absence is
	// just an empty start.
	if c.meetingID != "" {
		if prev, err := c.store.LoadTranscript(c.meetingID); err == nil {
			c.prior = prev.Segments
			c.startedAt = prev.StartedAt
		} else if err != store.ErrTranscriptNotFound {
			log.Printf("session: loading previous transcript: %v", err)
		}
	}

	link, err := Dial(c.cfg.Client.ServerURL)
	if err != nil {
		return err
	}
	c.link = link

	c.chain = audio.NewChain(c.opts.CaptureRate, protocol.TargetSampleRate)
	c.agg = transcript.NewAggregator(c.sessionID, func() {
		c.flusher.Schedule()
	})
	c.flusher = store.NewFlusher(c.store,
		c.cfg.Client.FlushDebounce, c.cfg.Client.AutosaveInterval,
		c.Snapshot,
		func() { c.status("Transcript too large, oldest segments trimmed") })

	c.scheduler = summary.NewScheduler(c.summarizer, c.agg.Segments,
		c.cfg.Summary.Window, c.cfg.Summary.MinSegments, c.cfg.Summary.Interval)
	c.scheduler.Start()

	c.wg.Add(1)
	go c.consumeEvents()
	return nil
}

// ProcessAudio is the hard-real-time callback: mix, resample, convert,
// and attempt a non-blocking send. Nothing here blocks or errors.
func (c *Controller) ProcessAudio(sources ...[]float32) {
	frame := c.chain.Process(sources...)
	if frame == nil {
		return
	}
	c.link.SendFrame(frame)
}

// Reconfigure asks the server to hot-swap the recognition worker.
func (c *Controller) Reconfigure(device, model, computeType string) error {
	return c.link.SendControl(protocol.ControlMessage{
		Cmd:         protocol.CmdSet,
		Device:      device,
		Model:       model,
		ComputeType: computeType,
	})
}

func (c *Controller) consumeEvents() {
	defer c.wg.Done()
	for ev := range c.link.Events() {
		c.agg.Apply(ev)
	}
	// Link closed under us: if the session is still live, tell the user
	// transcription stopped.
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if !stopped {
		c.status("Transcription stopped")
	}
}

// Snapshot materializes the durable transcript artifact: previously
// saved segments plus everything aggregated this session.
func (c *Controller) Snapshot() *models.StoredTranscript {
	segs := c.agg.Segments()
	all := make([]models.TranscriptSegment, 0, len(c.prior)+len(segs))
	all = append(all, c.prior...)
	all = append(all, segs...)

	return &models.StoredTranscript{
		MeetingID:    c.storageKey(),
		MeetingTitle: c.opts.MeetingName,
		StartedAt:    c.startedAt,
		UpdatedAt:    time.Now(),
		Segments:     all,
	}
}

func (c *Controller) storageKey() string {
	if c.meetingID != "" {
		return c.meetingID
	}
	return c.sessionID
}

// Topic returns the aggregator's running topic label.
func (c *Controller) Topic() string { return c.agg.Topic() }

// RollingSummary returns the latest live summary and transient status.
func (c *Controller) RollingSummary() (models.RollingSummary, string) {
	return c.scheduler.Current()
}

// Partial returns the current provisional recognition text.
func (c *Controller) Partial() string { return c.agg.Partial() }

func (c *Controller) status(msg string) {
	if c.opts.Status != nil {
		c.opts.Status(msg)
	}
}

func (c *Controller) defaultTitle() string {
	if c.opts.MeetingName != "" {
		return c.opts.MeetingName
	}
	return fmt.Sprintf("Meeting %s", c.startedAt.Format("2006-01-02 15:04"))
}
