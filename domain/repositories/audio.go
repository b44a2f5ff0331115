package repositories

// InputStream is an acquired microphone tap producing fixed-size frames
// of float32 samples at the input rate.
type InputStream interface {
	// Start installs the frame handler and begins capture. The handler
	// is invoked from the device timeline; it must not block.
	Start(onFrame func(frame []float32)) error
	// Close disconnects the tap and releases the device. No frame is
	// delivered after Close returns.
	Close() error
}

// PlaybackHandle is one scheduled audio segment.
type PlaybackHandle interface {
	// Stop cancels playback immediately. Safe to call after the segment
	// has ended.
	Stop()
}

// OutputContext is an audio rendering context at a fixed output rate.
type OutputContext interface {
	// Now is the context's monotonic clock in seconds.
	Now() float64
	// Schedule queues samples to start playing at the given clock time,
	// which must not be in the past. onEnded fires once on natural
	// completion, not when the handle is stopped.
	Schedule(samples []float32, at float64, onEnded func()) (PlaybackHandle, error)
	Close() error
}

// AudioDevice acquires microphone and playback resources. Each acquired
// stream or context is exclusively owned by one session attempt.
type AudioDevice interface {
	AcquireInput(sampleRate int) (InputStream, error)
	AcquireOutput(sampleRate int) (OutputContext, error)
}
