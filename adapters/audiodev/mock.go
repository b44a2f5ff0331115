package audiodev

import (
	"fmt"
	"sync"

	"github.com/avalonlabs/vesper/domain/repositories"
)

// MockDevice implements repositories.AudioDevice against a manually
// advanced clock, for tests and for running without audio hardware.
type MockDevice struct {
	mu    sync.Mutex
	clock float64

	FailInput  bool
	FailOutput bool

	Inputs  []*MockInput
	Outputs []*MockOutput
}

// NewMockDevice creates a device whose clock starts at zero.
func NewMockDevice() *MockDevice {
	return &MockDevice{}
}

// Advance moves the output clock forward.
func (d *MockDevice) Advance(seconds float64) {
	d.mu.Lock()
	d.clock += seconds
	d.mu.Unlock()
}

func (d *MockDevice) now() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clock
}

// AcquireInput returns a new mock microphone stream.
func (d *MockDevice) AcquireInput(sampleRate int) (repositories.InputStream, error) {
	if d.FailInput {
		return nil, fmt.Errorf("microphone unavailable")
	}
	in := &MockInput{Rate: sampleRate}
	d.mu.Lock()
	d.Inputs = append(d.Inputs, in)
	d.mu.Unlock()
	return in, nil
}

// AcquireOutput returns a new mock rendering context on the shared clock.
func (d *MockDevice) AcquireOutput(sampleRate int) (repositories.OutputContext, error) {
	if d.FailOutput {
		return nil, fmt.Errorf("output device unavailable")
	}
	out := &MockOutput{device: d, Rate: sampleRate}
	d.mu.Lock()
	d.Outputs = append(d.Outputs, out)
	d.mu.Unlock()
	return out, nil
}

// MockInput is a microphone stream fed by the test via Push.
type MockInput struct {
	Rate int

	mu      sync.Mutex
	handler func([]float32)
	closed  bool
}

func (i *MockInput) Start(onFrame func(frame []float32)) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return fmt.Errorf("input stream is closed")
	}
	i.handler = onFrame
	return nil
}

func (i *MockInput) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	i.handler = nil
	return nil
}

// Push delivers one captured frame, dropped silently once closed.
func (i *MockInput) Push(frame []float32) {
	i.mu.Lock()
	handler := i.handler
	i.mu.Unlock()
	if handler != nil {
		handler(frame)
	}
}

// Started reports whether a frame handler is installed.
func (i *MockInput) Started() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.handler != nil
}

func (i *MockInput) Closed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closed
}

// MockOutput records scheduled segments instead of playing them.
type MockOutput struct {
	device *MockDevice
	Rate   int

	mu       sync.Mutex
	closed   bool
	Segments []*MockHandle
}

func (o *MockOutput) Now() float64 {
	return o.device.now()
}

func (o *MockOutput) Schedule(samples []float32, at float64, onEnded func()) (repositories.PlaybackHandle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, fmt.Errorf("output context is closed")
	}
	handle := &MockHandle{Samples: samples, StartAt: at, onEnded: onEnded}
	o.Segments = append(o.Segments, handle)
	return handle, nil
}

func (o *MockOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

func (o *MockOutput) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// MockHandle is one scheduled segment.
type MockHandle struct {
	Samples []float32
	StartAt float64

	mu      sync.Mutex
	stopped bool
	ended   bool
	onEnded func()
}

func (h *MockHandle) Stop() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
}

// Complete simulates natural end of playback. Stopped handles never
// report completion.
func (h *MockHandle) Complete() {
	h.mu.Lock()
	if h.stopped || h.ended {
		h.mu.Unlock()
		return
	}
	h.ended = true
	onEnded := h.onEnded
	h.mu.Unlock()
	if onEnded != nil {
		onEnded()
	}
}

func (h *MockHandle) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopped
}
