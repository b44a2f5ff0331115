package entities

import (
	"time"

	"github.com/google/uuid"
)

// LogKind tags a SystemLogEntry with its severity or category.
type LogKind string

const (
	LogInfo    LogKind = "info"
	LogWarning LogKind = "warning"
	LogError   LogKind = "error"
	LogSuccess LogKind = "success"
	LogCommand LogKind = "command"
)

// SystemLogEntry is one line of the append-only audit trail. Entries are
// produced on every externally observable event and never mutated after
// creation.
type SystemLogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      LogKind   `json:"kind"`
	Message   string    `json:"message"`
}

// NewLogEntry stamps a fresh entry with an id and the current time.
func NewLogEntry(kind LogKind, message string) SystemLogEntry {
	return SystemLogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Kind:      kind,
		Message:   message,
	}
}
