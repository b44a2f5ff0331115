// Package audit keeps the rolling system log: every message the
// assistant surfaces to the user lands here and is fanned out to
// subscribers (the UI event hub).
package audit

import (
	"sync"

	"go.uber.org/zap"

	"github.com/avalonlabs/vesper/domain/entities"
)

// DefaultCapacity bounds the in-memory log. Older entries are evicted
// first.
const DefaultCapacity = 500

// Store is an append-only, capacity-bounded log of system entries. It
// implements repositories.LogSink.
type Store struct {
	logger *zap.Logger

	mu          sync.RWMutex
	entries     []entities.SystemLogEntry
	capacity    int
	subscribers map[int]func(entities.SystemLogEntry)
	nextSub     int
}

// NewStore creates a store with the given capacity. Zero or negative
// capacity falls back to DefaultCapacity.
func NewStore(capacity int, logger *zap.Logger) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		logger:      logger,
		capacity:    capacity,
		subscribers: make(map[int]func(entities.SystemLogEntry)),
	}
}

// Append records an entry and notifies subscribers. Subscriber
// callbacks run outside the lock so a slow consumer cannot stall the
// session pipeline.
func (s *Store) Append(entry entities.SystemLogEntry) {
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	if len(s.entries) > s.capacity {
		overflow := len(s.entries) - s.capacity
		s.entries = append([]entities.SystemLogEntry(nil), s.entries[overflow:]...)
	}
	subs := make([]func(entities.SystemLogEntry), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(entry)
	}
}

// List returns a snapshot of the log, oldest first.
func (s *Store) List() []entities.SystemLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.SystemLogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clear drops every stored entry. Subscribers are kept.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
}

// Subscribe registers a callback for future entries and returns an
// unsubscribe function.
func (s *Store) Subscribe(fn func(entities.SystemLogEntry)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}
