package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"meetscribe/pkg/models"
	"meetscribe/pkg/protocol"
	"meetscribe/pkg/worker"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// link is the server end of one streaming connection. All writes to the
// websocket go through the writer goroutine; the read loop and control
// handling push server-originated events into local.
type link struct {
	conn  *websocket.Conn
	sup   *worker.Supervisor
	local chan protocol.Event
}

// StreamHandler is the server end of the streaming link: binary frames
// are raw audio fed to the session's worker, text frames are control
// messages, and worker events flow back as one JSON text message each.
func (h *Handlers) StreamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sup := worker.NewSupervisor(h.cfg.Worker)
	if err := sup.Spawn(worker.Params{}); err != nil {
		log.Printf("link: failed to spawn worker: %v", err)
		data, _ := protocol.EncodeEvent(protocol.ErrorEvent{Text: "transcription backend unavailable"})
		conn.WriteMessage(websocket.TextMessage, data)
		return
	}
	// Whatever path the link closes by, the worker must not outlive it.
	defer sup.Kill()

	sessionID := models.NewSessionID()
	params := sup.Params()
	h.registry.Add(&LinkInfo{
		SessionID: sessionID,
		Device:    params.Device,
		Model:     params.Model,
		OpenedAt:  time.Now(),
	})
	defer h.registry.Remove(sessionID)

	log.Printf("link: open session=%s model=%s device=%s", sessionID, params.Model, params.Device)

	l := &link{conn: conn, sup: sup, local: make(chan protocol.Event, 8)}
	writerDone := make(chan struct{})
	go l.writeLoop(writerDone)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			// Client gone; tear down hard, nothing left to flush to.
			sup.Kill()
			break
		}

		switch msgType {
		case websocket.BinaryMessage:
			sup.Feed(data)
		case websocket.TextMessage:
			l.handleControl(data)
		}
	}

	<-writerDone
	log.Printf("link: closed session=%s", sessionID)
}

func (l *link) handleControl(data []byte) {
	msg, err := protocol.ParseControl(data)
	if err != nil {
		log.Printf("link: bad control message: %v", err)
		l.send(protocol.ErrorEvent{Text: "bad control message"})
		return
	}

	switch msg.Cmd {
	case protocol.CmdSet:
		err := l.sup.Reconfigure(worker.Params{
			Device:      msg.Device,
			Model:       msg.Model,
			ComputeType: msg.ComputeType,
		})
		if err != nil {
			log.Printf("link: reconfigure failed: %v", err)
			l.send(protocol.ErrorEvent{Text: "failed to switch transcription model"})
		}
	case protocol.CmdEnd:
		// Close the worker's stdin; it flushes pending output, exits,
		// and the exit closes the link from this side.
		l.sup.Shutdown()
	}
}

func (l *link) send(ev protocol.Event) {
	select {
	case l.local <- ev:
	default:
	}
}

// writeLoop forwards worker and server events to the client until the
// worker is done, then drains whatever is still buffered and closes the
// link from this side.
func (l *link) writeLoop(done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case ev := <-l.sup.Events():
			if !l.write(ev) {
				return
			}
		case ev := <-l.local:
			if !l.write(ev) {
				return
			}
		case <-l.sup.Done():
			for {
				select {
				case ev := <-l.sup.Events():
					if !l.write(ev) {
						return
					}
				case ev := <-l.local:
					if !l.write(ev) {
						return
					}
				default:
					l.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					l.conn.Close()
					return
				}
			}
		}
	}
}

func (l *link) write(ev protocol.Event) bool {
	data, err := protocol.EncodeEvent(ev)
	if err != nil {
		log.Printf("link: failed to encode event: %v", err)
		return true
	}
	if err := l.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return false
	}
	return true
}
