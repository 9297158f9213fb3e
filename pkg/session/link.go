// Package session is the client side of the pipeline: it owns the
// capture/processing graph, the streaming link, the transcript
// aggregator, persistence, live summarization, and the stop workflow.
package session

import (
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"meetscribe/pkg/protocol"
)

// sendBuffer bounds how many frames may queue behind a slow link. The
// audio callback never blocks; audio past the buffer is dropped.
const sendBuffer = 32

type outFrame struct {
	msgType int
	data    []byte
}

// Link is the client end of the streaming connection: audio frames out,
// recognition events in. Audio and control share one ordered outbound
// queue, so a control message sent after a burst of audio queues behind
// it.
type Link struct {
	conn   *websocket.Conn
	out    chan outFrame
	events chan protocol.Event
	done   chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Dial opens the streaming link. A failure here is a blocking,
// user-facing error; the session never starts.
func Dial(url string) (*Link, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("open streaming link: %w", err)
	}

	l := &Link{
		conn:   conn,
		out:    make(chan outFrame, sendBuffer),
		events: make(chan protocol.Event, 64),
		done:   make(chan struct{}),
	}

	l.wg.Add(2)
	go l.readLoop()
	go l.writeLoop()
	return l, nil
}

// SendFrame queues one audio frame. Never blocks: if the link cannot
// keep up the frame is dropped, at-most-once delivery.
func (l *Link) SendFrame(samples []int16) {
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.out <- outFrame{websocket.BinaryMessage, protocol.EncodeFrame(samples)}:
	default:
	}
}

// SendControl queues a control message. Unlike audio it is never
// dropped; callers are off the real-time path, so blocking briefly
// behind queued audio is fine.
func (l *Link) SendControl(msg protocol.ControlMessage) error {
	data, err := protocol.EncodeControl(msg)
	if err != nil {
		return err
	}
	select {
	case l.out <- outFrame{websocket.TextMessage, data}:
		return nil
	case <-l.done:
		return fmt.Errorf("link closed")
	}
}

// Events returns the stream of recognition events from the server. The
// channel closes when the link does.
func (l *Link) Events() <-chan protocol.Event { return l.events }

// Done is closed when the link has shut down in either direction.
func (l *Link) Done() <-chan struct{} { return l.done }

func (l *Link) readLoop() {
	defer l.wg.Done()
	defer close(l.events)
	defer l.shutdown()

	for {
		msgType, data, err := l.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		ev, err := protocol.ParseEvent(data)
		if err != nil {
			log.Printf("link: dropping malformed event: %v", err)
			continue
		}
		select {
		case l.events <- ev:
		case <-l.done:
			return
		}
	}
}

func (l *Link) writeLoop() {
	defer l.wg.Done()
	for {
		select {
		case frame := <-l.out:
			if err := l.conn.WriteMessage(frame.msgType, frame.data); err != nil {
				l.shutdown()
				return
			}
		case <-l.done:
			return
		}
	}
}

func (l *Link) shutdown() {
	l.closeOnce.Do(func() {
		close(l.done)
		l.conn.Close()
	})
}

// Close tears the link down from the client side.
func (l *Link) Close() {
	l.shutdown()
	l.wg.Wait()
}
