// Package session implements the realtime voice session core: the
// connection lifecycle state machine, the microphone capture pipeline,
// the gapless playback scheduler, and the permission-gated tool
// dispatcher.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/avalonlabs/vesper/domain/entities"
	"github.com/avalonlabs/vesper/domain/repositories"
)

var (
	// ErrMissingCredential is returned by Connect when no API credential
	// is configured. No resource is acquired and no network attempt is
	// made in that case.
	ErrMissingCredential = errors.New("api credential is not configured")

	// ErrSessionActive is returned by Connect while a session attempt is
	// already connecting or connected.
	ErrSessionActive = errors.New("a session is already active")
)

// Options carries the optional collaborators of a Manager.
type Options struct {
	// APIKey is the credential guarding Connect.
	APIKey string
	// OnNavigate handles showSystemView tool calls.
	OnNavigate NavigateFunc
	// OnStateChange observes every connection state transition.
	OnStateChange func(entities.ConnectionState)
	// Scan performs the system scan behind performSystemScan.
	Scan ScanFunc
}

// Manager owns at most one live session attempt at a time. All resource
// handles stay private to the attempt; callers only see Connect,
// Disconnect and State.
type Manager struct {
	transport repositories.LiveTransport
	device    repositories.AudioDevice
	logs      repositories.LogSink
	opts      Options
	logger    *zap.Logger

	mu      sync.Mutex
	state   entities.ConnectionState
	current *attempt
}

// attempt tracks the resources of one connect cycle. Fields are set
// progressively under Manager.mu while the handshake advances; a stale
// attempt (no longer current) releases whatever it acquired and is
// otherwise ignored.
type attempt struct {
	cancel context.CancelFunc

	input      repositories.InputStream
	output     repositories.OutputContext
	sess       repositories.LiveSession
	capture    *capturePipeline
	player     *playbackScheduler
	dispatcher *toolDispatcher
	opened     bool
}

// NewManager wires the session core to its external collaborators.
func NewManager(
	transport repositories.LiveTransport,
	device repositories.AudioDevice,
	logs repositories.LogSink,
	logger *zap.Logger,
	opts Options,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		transport: transport,
		device:    device,
		logs:      logs,
		opts:      opts,
		logger:    logger,
		state:     entities.StateDisconnected,
	}
}

// State returns the current connection state.
func (m *Manager) State() entities.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect starts a session attempt for the given profile. The profile is
// snapshotted immediately; later edits require a reconnect. Connect
// returns once the attempt is underway — the handshake completes
// asynchronously and surfaces through State and the log stream.
func (m *Manager) Connect(profile *entities.UserProfile) error {
	if m.opts.APIKey == "" {
		m.logs.Append(entities.NewLogEntry(entities.LogError, "API Key missing."))
		return ErrMissingCredential
	}

	m.mu.Lock()
	if m.state == entities.StateConnecting || m.state == entities.StateConnected {
		m.mu.Unlock()
		return ErrSessionActive
	}
	ctx, cancel := context.WithCancel(context.Background())
	at := &attempt{cancel: cancel}
	m.current = at
	m.state = entities.StateConnecting
	m.mu.Unlock()

	m.notify(entities.StateConnecting)
	m.logs.Append(entities.NewLogEntry(entities.LogInfo,
		fmt.Sprintf("Initializing %s for %s...", profile.AIName, profile.Name)))

	snapshot := *profile
	go m.establish(ctx, at, &snapshot)
	return nil
}

// Disconnect tears the active attempt down. Idempotent and callable from
// any state, including mid-handshake: resources acquired so far are
// released and anything the stale handshake acquires afterwards is
// released by the handshake goroutine itself.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	at := m.current
	m.current = nil
	changed := m.state != entities.StateDisconnected
	m.state = entities.StateDisconnected
	m.mu.Unlock()

	if at != nil {
		at.cancel()
		m.release(at)
	}
	if changed {
		m.notify(entities.StateDisconnected)
	}
	if at != nil || changed {
		m.logs.Append(entities.NewLogEntry(entities.LogInfo, "System Disconnected."))
	}
}

// establish runs the asynchronous part of connect: device acquisition,
// config derivation and the transport handshake.
func (m *Manager) establish(ctx context.Context, at *attempt, profile *entities.UserProfile) {
	input, err := m.device.AcquireInput(InputSampleRate)
	if err != nil {
		m.failAttempt(at, fmt.Sprintf("Failed to initialize core systems: %v", err))
		return
	}
	output, err := m.device.AcquireOutput(OutputSampleRate)
	if err != nil {
		if cerr := input.Close(); cerr != nil {
			m.logger.Warn("Error releasing input stream", zap.Error(cerr))
		}
		m.failAttempt(at, fmt.Sprintf("Failed to initialize core systems: %v", err))
		return
	}

	m.mu.Lock()
	if m.current != at {
		m.mu.Unlock()
		m.closeQuietly(input, output, nil)
		return
	}
	at.input = input
	at.output = output
	at.player = newPlaybackScheduler(output, m.logs, m.logger)
	at.dispatcher = newToolDispatcher(profile.Permissions, m.logs, m.opts.OnNavigate, m.opts.Scan, m.logger)
	m.mu.Unlock()

	config := BuildConfig(profile)
	callbacks := repositories.SessionCallbacks{
		OnOpen:    func() { m.handleOpen(at) },
		OnMessage: func(msg repositories.ServerMessage) { m.handleMessage(at, msg) },
		OnClose:   func() { m.handleClose(at) },
		OnError:   func(err error) { m.handleError(at, err) },
	}

	sess, err := m.transport.Open(ctx, config, callbacks)
	if err != nil {
		m.failAttempt(at, fmt.Sprintf("Failed to initialize core systems: %v", err))
		return
	}

	m.mu.Lock()
	if m.current != at {
		m.mu.Unlock()
		m.closeQuietly(nil, nil, sess)
		return
	}
	at.sess = sess
	start := at.opened && at.capture == nil
	if start {
		at.capture = newCapturePipeline(at.input, sess, m.logger)
	}
	m.mu.Unlock()

	if start {
		m.startCapture(at)
	}
}

// handleOpen transitions to CONNECTED and starts the capture pipeline.
// The transport may report open before Open itself returns, in which
// case capture starts as soon as the session handle lands.
func (m *Manager) handleOpen(at *attempt) {
	m.mu.Lock()
	if m.current != at {
		m.mu.Unlock()
		return
	}
	at.opened = true
	start := at.sess != nil && at.capture == nil
	if start {
		at.capture = newCapturePipeline(at.input, at.sess, m.logger)
	}
	m.state = entities.StateConnected
	m.mu.Unlock()

	m.notify(entities.StateConnected)
	m.logs.Append(entities.NewLogEntry(entities.LogSuccess, "Neural Link Established. Online."))
	if start {
		m.startCapture(at)
	}
}

func (m *Manager) startCapture(at *attempt) {
	if err := at.capture.start(); err != nil {
		m.logger.Error("Failed to start capture pipeline", zap.Error(err))
		m.handleError(at, fmt.Errorf("capture pipeline: %w", err))
	}
}

// handleMessage routes one remote event by content kind: tool calls to
// the dispatcher, audio to the playback scheduler, interruption to the
// flush path. A single message may carry all three.
func (m *Manager) handleMessage(at *attempt, msg repositories.ServerMessage) {
	m.mu.Lock()
	if m.current != at || at.sess == nil {
		m.mu.Unlock()
		return
	}
	sess, player, dispatcher := at.sess, at.player, at.dispatcher
	m.mu.Unlock()

	if len(msg.ToolCalls) > 0 {
		dispatcher.Dispatch(sess, msg.ToolCalls)
	}
	if msg.AudioChunk != "" {
		if err := player.Play(msg.AudioChunk); err != nil {
			// Decode anomalies are tolerated, not surfaced as errors.
			m.logger.Debug("Skipping audio chunk", zap.Error(err))
		}
	}
	if msg.Interrupted {
		player.Interrupt()
	}
}

func (m *Manager) handleClose(at *attempt) {
	m.mu.Lock()
	if m.current != at {
		m.mu.Unlock()
		return
	}
	m.current = nil
	m.state = entities.StateDisconnected
	m.mu.Unlock()

	m.release(at)
	m.notify(entities.StateDisconnected)
	m.logs.Append(entities.NewLogEntry(entities.LogInfo, "Connection Closed."))
}

func (m *Manager) handleError(at *attempt, err error) {
	m.mu.Lock()
	if m.current != at {
		m.mu.Unlock()
		return
	}
	m.current = nil
	m.state = entities.StateError
	m.mu.Unlock()

	m.release(at)
	m.notify(entities.StateError)
	m.logs.Append(entities.NewLogEntry(entities.LogError, fmt.Sprintf("Connection Error: %v", err)))
}

// failAttempt handles a failure before the session opened. A stale
// attempt only releases its resources; the current one also surfaces the
// ERROR state.
func (m *Manager) failAttempt(at *attempt, message string) {
	m.mu.Lock()
	current := m.current == at
	if current {
		m.current = nil
		m.state = entities.StateError
	}
	m.mu.Unlock()

	m.release(at)
	if current {
		m.notify(entities.StateError)
		m.logs.Append(entities.NewLogEntry(entities.LogError, message))
	}
}

// release frees every resource the attempt acquired, best effort: the
// capture tap first so no frame outlives teardown, then the remote
// session (a failing close is logged and ignored), then playback.
func (m *Manager) release(at *attempt) {
	m.mu.Lock()
	input, output, sess := at.input, at.output, at.sess
	capture, player := at.capture, at.player
	at.input, at.output, at.sess, at.capture = nil, nil, nil, nil
	m.mu.Unlock()

	if capture != nil {
		if err := capture.stop(); err != nil {
			m.logger.Warn("Error stopping capture pipeline", zap.Error(err))
		}
	} else if input != nil {
		if err := input.Close(); err != nil {
			m.logger.Warn("Error releasing input stream", zap.Error(err))
		}
	}
	if sess != nil {
		if err := sess.Close(); err != nil {
			m.logger.Warn("Error closing session", zap.Error(err))
		}
	}
	if player != nil {
		player.stopAll()
	}
	if output != nil {
		if err := output.Close(); err != nil {
			m.logger.Warn("Error releasing output context", zap.Error(err))
		}
	}
}

// closeQuietly disposes resources acquired by a handshake that lost the
// race against Disconnect.
func (m *Manager) closeQuietly(input repositories.InputStream, output repositories.OutputContext, sess repositories.LiveSession) {
	if input != nil {
		_ = input.Close()
	}
	if output != nil {
		_ = output.Close()
	}
	if sess != nil {
		_ = sess.Close()
	}
}

func (m *Manager) notify(state entities.ConnectionState) {
	if m.opts.OnStateChange != nil {
		m.opts.OnStateChange(state)
	}
}
