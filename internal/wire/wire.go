// Package wire defines the JSON events exchanged between the event server and
// the transport client. Each WebSocket text frame carries one flat JSON object
// discriminated by its "type" field.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/matheus3301/chatline/internal/fault"
)

// Type discriminates wire events.
type Type string

const (
	TypeNewMessage   Type = "NEW_MESSAGE"
	TypeHeartbeat    Type = "HEARTBEAT"
	TypeHeartbeatAck Type = "HEARTBEAT_ACK"
)

// NewMessage is pushed by the server for every generated message.
type NewMessage struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	TS        int64  `json:"ts"`
	Sender    string `json:"sender"`
	Body      string `json:"body"`
}

// Heartbeat is pushed by the server on a fixed interval.
type Heartbeat struct {
	Timestamp int64 `json:"timestamp"`
}

// HeartbeatAck is the client's reply to a Heartbeat.
type HeartbeatAck struct {
	Timestamp int64 `json:"timestamp"`
}

// Event is a decoded frame. Exactly one payload pointer matching Type is set.
type Event struct {
	Type         Type
	NewMessage   *NewMessage
	Heartbeat    *Heartbeat
	HeartbeatAck *HeartbeatAck
}

// frame mirrors the flat wire layout. Pointers record field presence.
type frame struct {
	Type      Type    `json:"type"`
	ChatID    *string `json:"chatId,omitempty"`
	MessageID *string `json:"messageId,omitempty"`
	TS        *int64  `json:"ts,omitempty"`
	Sender    *string `json:"sender,omitempty"`
	Body      *string `json:"body,omitempty"`
	Timestamp *int64  `json:"timestamp,omitempty"`
}

// EncodeNewMessage serializes a NEW_MESSAGE frame.
func EncodeNewMessage(m NewMessage) ([]byte, error) {
	return json.Marshal(frame{
		Type:      TypeNewMessage,
		ChatID:    &m.ChatID,
		MessageID: &m.MessageID,
		TS:        &m.TS,
		Sender:    &m.Sender,
		Body:      &m.Body,
	})
}

// EncodeHeartbeat serializes a HEARTBEAT frame.
func EncodeHeartbeat(h Heartbeat) ([]byte, error) {
	return json.Marshal(frame{Type: TypeHeartbeat, Timestamp: &h.Timestamp})
}

// EncodeHeartbeatAck serializes a HEARTBEAT_ACK frame.
func EncodeHeartbeatAck(a HeartbeatAck) ([]byte, error) {
	return json.Marshal(frame{Type: TypeHeartbeatAck, Timestamp: &a.Timestamp})
}

// Decode parses a frame. Invalid JSON, unknown types and missing required
// fields yield an error wrapping fault.ErrMalformed.
func Decode(data []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Event{}, fmt.Errorf("%w: %v", fault.ErrMalformed, err)
	}

	switch f.Type {
	case TypeNewMessage:
		if f.ChatID == nil || *f.ChatID == "" || f.MessageID == nil || *f.MessageID == "" || f.TS == nil {
			return Event{}, fmt.Errorf("%w: %s missing chatId, messageId or ts", fault.ErrMalformed, f.Type)
		}
		m := &NewMessage{ChatID: *f.ChatID, MessageID: *f.MessageID, TS: *f.TS}
		if f.Sender != nil {
			m.Sender = *f.Sender
		}
		if f.Body != nil {
			m.Body = *f.Body
		}
		return Event{Type: f.Type, NewMessage: m}, nil
	case TypeHeartbeat:
		if f.Timestamp == nil {
			return Event{}, fmt.Errorf("%w: %s missing timestamp", fault.ErrMalformed, f.Type)
		}
		return Event{Type: f.Type, Heartbeat: &Heartbeat{Timestamp: *f.Timestamp}}, nil
	case TypeHeartbeatAck:
		if f.Timestamp == nil {
			return Event{}, fmt.Errorf("%w: %s missing timestamp", fault.ErrMalformed, f.Type)
		}
		return Event{Type: f.Type, HeartbeatAck: &HeartbeatAck{Timestamp: *f.Timestamp}}, nil
	case "":
		return Event{}, fmt.Errorf("%w: missing type", fault.ErrMalformed)
	default:
		return Event{}, fmt.Errorf("%w: unknown type %q", fault.ErrMalformed, f.Type)
	}
}
