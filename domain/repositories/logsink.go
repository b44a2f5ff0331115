package repositories

import "github.com/avalonlabs/vesper/domain/entities"

// LogSink receives the append-only audit trail. Every component appends
// an entry for every externally observable event.
type LogSink interface {
	Append(entry entities.SystemLogEntry)
}

// LogSinkFunc adapts a function to the LogSink interface.
type LogSinkFunc func(entities.SystemLogEntry)

func (f LogSinkFunc) Append(entry entities.SystemLogEntry) { f(entry) }
