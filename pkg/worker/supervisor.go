// Package worker owns the lifecycle of the external speech-recognition
// process: one worker per streaming link, fed raw PCM on stdin, emitting
// line-delimited JSON events on stdout. The engine is a capability, not a
// library; everything here is testable against a stub command.
package worker

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os/exec"
	"sync"
	"sync/atomic"

	"meetscribe/pkg/config"
	"meetscribe/pkg/protocol"
)

// Params override the configured worker defaults for one spawn. Empty
// fields keep the default.
type Params struct {
	Device      string
	Model       string
	ComputeType string
}

func (p Params) merged(cfg config.WorkerConfig) Params {
	if p.Device == "" {
		p.Device = cfg.Device
	}
	if p.Model == "" {
		p.Model = cfg.Model
	}
	if p.ComputeType == "" {
		p.ComputeType = cfg.ComputeType
	}
	return p
}

// Supervisor manages exactly one live worker process at a time. It is the
// sole owner of the process's stdio; no other component writes its stdin
// or reads its stdout.
type Supervisor struct {
	cfg config.WorkerConfig

	mu      sync.Mutex
	proc    *process
	params  Params
	lastErr string

	events   chan protocol.Event
	done     chan struct{}
	doneOnce sync.Once
}

type process struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	alive    atomic.Bool
	detached atomic.Bool
}

func NewSupervisor(cfg config.WorkerConfig) *Supervisor {
	return &Supervisor{
		cfg:    cfg,
		events: make(chan protocol.Event, 64),
		done:   make(chan struct{}),
	}
}

// Events returns the stream of recognition events from the live worker.
// The channel is never closed; consumers watch Done for termination and
// drain whatever is still buffered.
func (s *Supervisor) Events() <-chan protocol.Event { return s.events }

// Done is closed once the live worker has exited and will not be
// replaced; the streaming link closes on it.
func (s *Supervisor) Done() <-chan struct{} { return s.done }

// Alive reports whether a worker is currently accepting audio.
func (s *Supervisor) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil && s.proc.alive.Load()
}

// Params returns the parameters of the current worker.
func (s *Supervisor) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// Spawn starts a fresh worker with the given overrides merged over the
// configured defaults.
func (s *Supervisor) Spawn(overrides Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc != nil && s.proc.alive.Load() {
		return fmt.Errorf("worker already running")
	}
	return s.spawnLocked(overrides)
}

func (s *Supervisor) spawnLocked(overrides Params) error {
	params := overrides.merged(s.cfg)
	cmdline := fmt.Sprintf("%s --device %s --model %s --compute-type %s",
		s.cfg.Command, params.Device, params.Model, params.ComputeType)

	cmd := exec.Command("sh", "-c", cmdline)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("worker stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("worker stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	p := &process{cmd: cmd, stdin: stdin}
	p.alive.Store(true)
	s.proc = p
	s.params = params
	s.lastErr = ""

	log.Printf("supervisor: worker started pid=%d device=%s model=%s compute=%s",
		cmd.Process.Pid, params.Device, params.Model, params.ComputeType)

	go s.pumpEvents(p, stdout)
	go pumpStderr(stderr)
	return nil
}

// pumpEvents relays worker stdout lines as events until EOF, then reaps
// the process. A detached process (replaced by Reconfigure) is reaped
// silently without touching the link.
func (s *Supervisor) pumpEvents(p *process, stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		ev, err := protocol.ParseEvent(line)
		if err != nil {
			log.Printf("supervisor: dropping malformed worker line: %v", err)
			continue
		}
		if p.detached.Load() {
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			// Link already gone; keep reading to EOF so the process
			// can be reaped below.
		}
	}

	err := p.cmd.Wait()
	p.alive.Store(false)
	if p.detached.Load() {
		return
	}

	if err != nil {
		log.Printf("supervisor: worker exited abnormally: %v", err)
		select {
		case s.events <- protocol.ErrorEvent{Text: fmt.Sprintf("transcription worker exited: %v", err)}:
		default:
		}
	}
	s.doneOnce.Do(func() { close(s.done) })
}

func pumpStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		log.Printf("supervisor: worker stderr: %s", scanner.Text())
	}
}

// Feed writes one audio frame to the worker's stdin. If the worker is
// gone the frame is dropped silently; the real-time audio path must
// never block or see an error. A broken pipe is logged once and marks
// the worker dead.
func (s *Supervisor) Feed(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.proc
	if p == nil || !p.alive.Load() {
		return
	}
	if _, err := p.stdin.Write(frame); err != nil {
		if err.Error() != s.lastErr {
			log.Printf("supervisor: dropping audio, worker pipe closed: %v", err)
			s.lastErr = err.Error()
		}
		p.alive.Store(false)
	}
}

// Reconfigure hot-swaps the worker: the old process is detached from the
// link and killed, a replacement starts with the new parameters, and the
// client is told what it is now talking to. Audio in flight to the old
// process is lost, which is acceptable for a user-initiated swap.
func (s *Supervisor) Reconfigure(overrides Params) error {
	s.mu.Lock()
	if p := s.proc; p != nil {
		p.detached.Store(true)
		p.alive.Store(false)
		p.stdin.Close()
		if p.cmd.Process != nil {
			p.cmd.Process.Kill()
		}
	}
	err := s.spawnLocked(overrides)
	params := s.params
	s.mu.Unlock()
	if err != nil {
		return err
	}

	select {
	case s.events <- protocol.Meta{Info: fmt.Sprintf("switched to %s on %s", params.Model, params.Device)}:
	default:
	}
	return nil
}

// Shutdown closes the worker's stdin so it can flush pending output and
// exit on its own; the exit then closes the link from the server side.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.proc
	if p == nil {
		s.doneOnce.Do(func() { close(s.done) })
		return
	}
	p.alive.Store(false)
	p.stdin.Close()
}

// Kill tears the worker down without waiting for it to flush. Used when
// the link drops out from under the session.
func (s *Supervisor) Kill() {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.proc
	if p != nil {
		p.detached.Store(true)
		p.alive.Store(false)
		p.stdin.Close()
		if p.cmd.Process != nil {
			p.cmd.Process.Kill()
		}
	}
	s.doneOnce.Do(func() { close(s.done) })
}
