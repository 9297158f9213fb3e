// Package protocol defines the framed messages carried over the streaming
// link: JSON control messages from the client, raw PCM audio frames, and
// line-delimited JSON recognition events from the worker back to the client.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// TargetSampleRate is the sample rate of all audio on the wire.
const TargetSampleRate = 16000

// Control commands understood by the server side of the link.
const (
	CmdSet = "set"
	CmdEnd = "end"
)

// ControlMessage is a text frame sent from the client. CmdSet hot-swaps
// the recognition worker; CmdEnd asks for a graceful end of stream.
type ControlMessage struct {
	Type        string `json:"type"`
	Cmd         string `json:"cmd"`
	Device      string `json:"device,omitempty"`
	Model       string `json:"model,omitempty"`
	ComputeType string `json:"compute_type,omitempty"`
}

// ParseControl decodes a client text frame. Frames whose type is not
// "control" are rejected.
func ParseControl(data []byte) (ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ControlMessage{}, fmt.Errorf("decode control message: %w", err)
	}
	if msg.Type != "control" {
		return ControlMessage{}, fmt.Errorf("unexpected frame type %q", msg.Type)
	}
	switch msg.Cmd {
	case CmdSet, CmdEnd:
		return msg, nil
	default:
		return ControlMessage{}, fmt.Errorf("unknown control command %q", msg.Cmd)
	}
}

// EncodeControl serializes a control message for the client-to-server
// direction, filling in the frame type.
func EncodeControl(msg ControlMessage) ([]byte, error) {
	msg.Type = "control"
	return json.Marshal(msg)
}

// Event is one recognition event emitted by the worker and relayed to the
// client, one JSON object per line.
type Event interface {
	event()
	Kind() string
}

// Partial is provisional, not-yet-finalized recognition text.
type Partial struct {
	Text string `json:"text"`
}

// Segment is a finalized, speaker-attributed unit of transcript text.
type Segment struct {
	ID      int64   `json:"id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker"`
}

// SpeakerUpdate retroactively corrects the speaker of an earlier segment.
type SpeakerUpdate struct {
	ID      int64  `json:"id"`
	Speaker string `json:"speaker"`
}

// Final is the trailing full-text event emitted by workers that do not
// support incremental segments.
type Final struct {
	Text string `json:"text"`
}

// Meta carries informational payloads (device/model announcements and the
// like) that the client may display but never acts on.
type Meta struct {
	Info   string         `json:"info,omitempty"`
	Fields map[string]any `json:"-"`
}

// ErrorEvent reports a worker-side failure to the client.
type ErrorEvent struct {
	Text string `json:"text"`
}

func (Partial) event()       {}
func (Segment) event()       {}
func (SpeakerUpdate) event() {}
func (Final) event()         {}
func (Meta) event()          {}
func (ErrorEvent) event()    {}

func (Partial) Kind() string       { return "partial" }
func (Segment) Kind() string       { return "segment" }
func (SpeakerUpdate) Kind() string { return "speaker" }
func (Final) Kind() string         { return "final" }
func (Meta) Kind() string          { return "meta" }
func (ErrorEvent) Kind() string    { return "error" }

type tagged struct {
	Type string `json:"type"`
}

// ParseEvent decodes one line of worker output. Unknown event types and
// malformed JSON are errors; callers log and drop such lines.
func ParseEvent(line []byte) (Event, error) {
	var tag tagged
	if err := json.Unmarshal(line, &tag); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	switch tag.Type {
	case "partial":
		var ev Partial
		err := json.Unmarshal(line, &ev)
		return ev, err
	case "segment":
		var ev Segment
		err := json.Unmarshal(line, &ev)
		return ev, err
	case "speaker":
		var ev SpeakerUpdate
		err := json.Unmarshal(line, &ev)
		return ev, err
	case "final":
		var ev Final
		err := json.Unmarshal(line, &ev)
		return ev, err
	case "meta", "info":
		var fields map[string]any
		if err := json.Unmarshal(line, &fields); err != nil {
			return nil, err
		}
		ev := Meta{Fields: fields}
		if info, ok := fields["info"].(string); ok {
			ev.Info = info
		}
		return ev, nil
	case "error":
		var ev ErrorEvent
		err := json.Unmarshal(line, &ev)
		return ev, err
	default:
		return nil, fmt.Errorf("unknown event type %q", tag.Type)
	}
}

// EncodeEvent serializes an event for the server-to-client direction,
// restoring the type tag.
func EncodeEvent(ev Event) ([]byte, error) {
	switch v := ev.(type) {
	case Partial:
		return json.Marshal(struct {
			Type string `json:"type"`
			Partial
		}{"partial", v})
	case Segment:
		return json.Marshal(struct {
			Type string `json:"type"`
			Segment
		}{"segment", v})
	case SpeakerUpdate:
		return json.Marshal(struct {
			Type string `json:"type"`
			SpeakerUpdate
		}{"speaker", v})
	case Final:
		return json.Marshal(struct {
			Type string `json:"type"`
			Final
		}{"final", v})
	case Meta:
		fields := make(map[string]any, len(v.Fields)+2)
		for k, val := range v.Fields {
			fields[k] = val
		}
		fields["type"] = "info"
		if v.Info != "" {
			fields["info"] = v.Info
		}
		return json.Marshal(fields)
	case ErrorEvent:
		return json.Marshal(struct {
			Type string `json:"type"`
			ErrorEvent
		}{"error", v})
	default:
		return nil, fmt.Errorf("unknown event %T", ev)
	}
}

// EncodeFrame converts PCM samples to the little-endian wire form.
func EncodeFrame(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// DecodeFrame converts wire bytes back to PCM samples. A trailing odd
// byte is ignored.
func DecodeFrame(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}
