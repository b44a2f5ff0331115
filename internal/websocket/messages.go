package websocket

import (
	"encoding/json"
	"time"

	"github.com/avalonlabs/vesper/domain/entities"
)

// EventType defines the type of event pushed to UI clients.
type EventType string

// Supported event types
const (
	EventTypeLog      EventType = "log"
	EventTypeState    EventType = "state"
	EventTypeNavigate EventType = "navigate"
	EventTypePong     EventType = "pong"
	EventTypeError    EventType = "error"
)

// Event is the envelope for every message pushed over the UI socket.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// LogPayload carries one system log entry.
type LogPayload struct {
	Entry entities.SystemLogEntry `json:"entry"`
}

// StatePayload carries a connection state transition.
type StatePayload struct {
	State entities.ConnectionState `json:"state"`
}

// NavigatePayload carries a model-requested UI navigation.
type NavigatePayload struct {
	View      string `json:"view"`
	Highlight string `json:"highlight,omitempty"`
}

// ErrorPayload carries a client-facing error.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newEvent(eventType EventType, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:      eventType,
		Timestamp: time.Now().Format(time.RFC3339),
		Payload:   raw,
	}, nil
}

// NewLogEvent wraps a log entry for broadcast.
func NewLogEvent(entry entities.SystemLogEntry) (Event, error) {
	return newEvent(EventTypeLog, LogPayload{Entry: entry})
}

// NewStateEvent wraps a state transition for broadcast.
func NewStateEvent(state entities.ConnectionState) (Event, error) {
	return newEvent(EventTypeState, StatePayload{State: state})
}

// NewNavigateEvent wraps a navigation request for broadcast.
func NewNavigateEvent(view, highlight string) (Event, error) {
	return newEvent(EventTypeNavigate, NavigatePayload{View: view, Highlight: highlight})
}

// NewErrorEvent wraps an error for a single client.
func NewErrorEvent(code, message string) (Event, error) {
	return newEvent(EventTypeError, ErrorPayload{Code: code, Message: message})
}
