package repositories

import (
	"context"

	"github.com/avalonlabs/vesper/domain/entities"
)

// SessionConfig is derived once per connect attempt from the active
// profile and stays immutable for the lifetime of the session.
type SessionConfig struct {
	// SystemInstruction is the persona text built from the profile.
	SystemInstruction string
	// Voice is the resolved synthesis voice. Custom-voice ids never
	// appear here, only base models or standard voices.
	Voice string
	// Language preference, advisory.
	Language string
	// Tools offered to the remote model.
	Tools []entities.ToolDeclaration
}

// ServerMessage is one event from the remote endpoint. A single message
// may carry tool calls, an audio chunk, and an interruption flag in any
// combination.
type ServerMessage struct {
	ToolCalls []entities.ToolCallRequest
	// AudioChunk is a base64 envelope of 16-bit PCM at the output rate,
	// empty when the message carries no audio.
	AudioChunk string
	// Interrupted signals barge-in: pending playback must be flushed.
	Interrupted bool
}

// SessionCallbacks receive transport events. Implementations of
// LiveTransport must invoke them sequentially, never concurrently.
type SessionCallbacks struct {
	OnOpen    func()
	OnMessage func(ServerMessage)
	OnClose   func()
	OnError   func(error)
}

// LiveSession is an open bidirectional audio/control channel.
type LiveSession interface {
	// SendAudioFrame pushes one base64-encoded PCM frame upstream.
	// Fire-and-forget: the capture pipeline never waits on delivery.
	SendAudioFrame(frame string) error
	// SendToolResult reports a correlated tool outcome back to the model.
	SendToolResult(result entities.ToolCallResult) error
	Close() error
}

// LiveTransport opens streaming sessions against the remote
// conversational endpoint.
type LiveTransport interface {
	Open(ctx context.Context, config SessionConfig, callbacks SessionCallbacks) (LiveSession, error)
}
