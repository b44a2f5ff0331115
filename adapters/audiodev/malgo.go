// Package audiodev provides the audio device implementations behind the
// session core: a miniaudio-backed device for real hardware and an
// in-memory mock.
package audiodev

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/avalonlabs/vesper/domain/repositories"
)

// captureFrameSamples is the fixed outbound frame size delivered to the
// capture tap.
const captureFrameSamples = 4096

// MalgoDevice implements repositories.AudioDevice on top of miniaudio.
type MalgoDevice struct {
	ctx    *malgo.AllocatedContext
	logger *zap.Logger
}

// NewMalgoDevice initializes the platform audio backend once; acquired
// streams and contexts share it.
func NewMalgoDevice(logger *zap.Logger) (*MalgoDevice, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("miniaudio", zap.String("message", message))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio backend: %w", err)
	}
	return &MalgoDevice{ctx: ctx, logger: logger}, nil
}

// Close releases the backend. Call only after every acquired stream and
// context is closed.
func (d *MalgoDevice) Close() error {
	if err := d.ctx.Uninit(); err != nil {
		return fmt.Errorf("failed to uninit audio backend: %w", err)
	}
	d.ctx.Free()
	return nil
}

// AcquireInput opens the default capture device at the given rate.
func (d *MalgoDevice) AcquireInput(sampleRate int) (repositories.InputStream, error) {
	return &malgoInput{parent: d, sampleRate: sampleRate}, nil
}

// AcquireOutput opens the default playback device at the given rate.
func (d *MalgoDevice) AcquireOutput(sampleRate int) (repositories.OutputContext, error) {
	out := &malgoOutput{parent: d, sampleRate: sampleRate}
	if err := out.open(); err != nil {
		return nil, err
	}
	return out, nil
}

// malgoInput frames the capture callback's sample flow into fixed-size
// blocks for the pipeline.
type malgoInput struct {
	parent     *MalgoDevice
	sampleRate int

	mu      sync.Mutex
	device  *malgo.Device
	pending []float32
	closed  bool
}

func (i *malgoInput) Start(onFrame func(frame []float32)) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return fmt.Errorf("input stream is closed")
	}
	if i.device != nil {
		return fmt.Errorf("input stream already started")
	}

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.Capture.Format = malgo.FormatS16
	config.Capture.Channels = 1
	config.SampleRate = uint32(i.sampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			i.onSamples(input, onFrame)
		},
	}

	device, err := malgo.InitDevice(i.parent.ctx.Context, config, callbacks)
	if err != nil {
		return fmt.Errorf("failed to open capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	i.device = device
	return nil
}

func (i *malgoInput) onSamples(input []byte, onFrame func(frame []float32)) {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	for off := 0; off+1 < len(input); off += 2 {
		sample := int16(binary.LittleEndian.Uint16(input[off:]))
		i.pending = append(i.pending, float32(sample)/32768)
	}
	var frames [][]float32
	for len(i.pending) >= captureFrameSamples {
		frame := make([]float32, captureFrameSamples)
		copy(frame, i.pending[:captureFrameSamples])
		i.pending = i.pending[captureFrameSamples:]
		frames = append(frames, frame)
	}
	i.mu.Unlock()

	for _, frame := range frames {
		onFrame(frame)
	}
}

func (i *malgoInput) Close() error {
	i.mu.Lock()
	device := i.device
	i.device = nil
	i.closed = true
	i.pending = nil
	i.mu.Unlock()

	if device != nil {
		device.Uninit()
	}
	return nil
}

// malgoOutput renders scheduled segments through a playback device. The
// context clock is the number of samples rendered so far; segment start
// times are honored by offsetting into the render timeline.
type malgoOutput struct {
	parent     *MalgoDevice
	sampleRate int

	mu       sync.Mutex
	device   *malgo.Device
	rendered int64
	segments []*malgoSegment
	closed   bool
}

type malgoSegment struct {
	samples []float32
	start   float64
	pos     int
	stopped bool
	done    bool
	onEnded func()
}

func (o *malgoOutput) open() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = uint32(o.sampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(output, _ []byte, frameCount uint32) {
			o.render(output, int(frameCount))
		},
	}

	device, err := malgo.InitDevice(o.parent.ctx.Context, config, callbacks)
	if err != nil {
		return fmt.Errorf("failed to open playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	o.device = device
	return nil
}

func (o *malgoOutput) Now() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return float64(o.rendered) / float64(o.sampleRate)
}

func (o *malgoOutput) Schedule(samples []float32, at float64, onEnded func()) (repositories.PlaybackHandle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, fmt.Errorf("output context is closed")
	}
	segment := &malgoSegment{samples: samples, start: at, onEnded: onEnded}
	o.segments = append(o.segments, segment)
	return &malgoHandle{output: o, segment: segment}, nil
}

func (o *malgoOutput) Close() error {
	o.mu.Lock()
	device := o.device
	o.device = nil
	o.closed = true
	o.segments = nil
	o.mu.Unlock()

	if device != nil {
		device.Uninit()
	}
	return nil
}

// render mixes every active segment into the output buffer and fires
// completion callbacks outside the lock.
func (o *malgoOutput) render(output []byte, frameCount int) {
	var completed []func()

	o.mu.Lock()
	rate := float64(o.sampleRate)
	for i := 0; i < frameCount; i++ {
		t := float64(o.rendered+int64(i)) / rate
		var sum float32
		for _, seg := range o.segments {
			if seg.stopped || seg.done || t < seg.start || seg.pos >= len(seg.samples) {
				continue
			}
			sum += seg.samples[seg.pos]
			seg.pos++
			if seg.pos >= len(seg.samples) {
				seg.done = true
				if seg.onEnded != nil {
					completed = append(completed, seg.onEnded)
				}
			}
		}
		if sum > 1 {
			sum = 1
		} else if sum < -1 {
			sum = -1
		}
		binary.LittleEndian.PutUint16(output[i*2:], uint16(int16(sum*math.MaxInt16)))
	}
	o.rendered += int64(frameCount)

	// Compact finished segments.
	active := o.segments[:0]
	for _, seg := range o.segments {
		if !seg.done && !seg.stopped {
			active = append(active, seg)
		}
	}
	o.segments = active
	o.mu.Unlock()

	for _, onEnded := range completed {
		onEnded()
	}
}

type malgoHandle struct {
	output  *malgoOutput
	segment *malgoSegment
}

func (h *malgoHandle) Stop() {
	h.output.mu.Lock()
	h.segment.stopped = true
	h.output.mu.Unlock()
}
