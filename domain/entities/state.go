package entities

// ConnectionState is the externally observable state of the voice session.
// Exactly one instance exists per session manager; only the session
// lifecycle mutates it.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "DISCONNECTED"
	StateConnecting   ConnectionState = "CONNECTING"
	StateConnected    ConnectionState = "CONNECTED"
	StateError        ConnectionState = "ERROR"
)
