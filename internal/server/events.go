package server

import (
	"encoding/json"
	"time"
)

// Inbound event names.
const (
	EventProductAdded = "productoAgregado"
	EventMessageSent  = "mensajeEnviado"
)

// Outbound event names.
const (
	EventProductInvalid   = "productInvalido"
	EventProductsRefresh  = "productosRefresh"
	EventChatRefresh      = "chatRefresh"
	EventMessageInvalid   = "mensajeInvalido"
	EventRateLimitReached = "rateLimited"
)

type EventKind int

const (
	KindProductAdded EventKind = iota + 1
	KindMessageSent
)

func (k EventKind) String() string {
	switch k {
	case KindProductAdded:
		return EventProductAdded
	case KindMessageSent:
		return EventMessageSent
	default:
		return "unknown"
	}
}

func kindOf(name string) (EventKind, bool) {
	switch name {
	case EventProductAdded:
		return KindProductAdded, true
	case EventMessageSent:
		return KindMessageSent, true
	default:
		return 0, false
	}
}

// Event is one decoded inbound frame, queued on its connection's inbound channel.
type Event struct {
	Kind       EventKind
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// Frame is the wire envelope in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ErrorPayload is carried by the rejection events.
type ErrorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func encodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

// DecodeFrame parses an inbound websocket message.
func DecodeFrame(raw []byte) (Frame, error) {
	var f Frame
	err := json.Unmarshal(raw, &f)
	return f, err
}
