package genailive

import (
	"context"
	"fmt"
	"sync"

	"github.com/avalonlabs/vesper/domain/entities"
	"github.com/avalonlabs/vesper/domain/repositories"
)

// MockTransport implements repositories.LiveTransport in memory so the
// session core can be exercised without a network.
type MockTransport struct {
	mu sync.Mutex

	// OpenErr makes Open fail when set.
	OpenErr error

	Sessions []*MockSession
}

func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (t *MockTransport) Open(ctx context.Context, config repositories.SessionConfig, callbacks repositories.SessionCallbacks) (repositories.LiveSession, error) {
	if t.OpenErr != nil {
		return nil, t.OpenErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess := &MockSession{Config: config, Callbacks: callbacks}
	t.mu.Lock()
	t.Sessions = append(t.Sessions, sess)
	t.mu.Unlock()
	return sess, nil
}

// Last returns the most recently opened session, or nil.
func (t *MockTransport) Last() *MockSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.Sessions) == 0 {
		return nil
	}
	return t.Sessions[len(t.Sessions)-1]
}

// MockSession records outbound traffic and lets tests drive the
// callbacks as the remote endpoint would.
type MockSession struct {
	Config    repositories.SessionConfig
	Callbacks repositories.SessionCallbacks

	// CloseErr makes Close fail, for teardown tolerance tests.
	CloseErr error

	mu      sync.Mutex
	frames  []string
	results []entities.ToolCallResult
	closed  bool
}

func (s *MockSession) SendAudioFrame(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("session is closed")
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *MockSession) SendToolResult(result entities.ToolCallResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("session is closed")
	}
	s.results = append(s.results, result)
	return nil
}

func (s *MockSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.CloseErr
}

func (s *MockSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *MockSession) Frames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.frames...)
}

func (s *MockSession) Results() []entities.ToolCallResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entities.ToolCallResult(nil), s.results...)
}

// EmitOpen simulates the remote endpoint reporting the channel open.
func (s *MockSession) EmitOpen() {
	if s.Callbacks.OnOpen != nil {
		s.Callbacks.OnOpen()
	}
}

// Emit delivers one server message.
func (s *MockSession) Emit(msg repositories.ServerMessage) {
	if s.Callbacks.OnMessage != nil {
		s.Callbacks.OnMessage(msg)
	}
}

// EmitClose simulates a remote close.
func (s *MockSession) EmitClose() {
	if s.Callbacks.OnClose != nil {
		s.Callbacks.OnClose()
	}
}

// EmitError simulates a transport error.
func (s *MockSession) EmitError(err error) {
	if s.Callbacks.OnError != nil {
		s.Callbacks.OnError(err)
	}
}
