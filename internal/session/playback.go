package session

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/avalonlabs/vesper/domain/entities"
	"github.com/avalonlabs/vesper/domain/repositories"
	"github.com/avalonlabs/vesper/internal/audio"
)

// playbackScheduler plays synthesized segments back-to-back on the output
// context and flushes everything on barge-in. The cursor is the earliest
// time the next segment may start; it never moves backwards except on an
// interruption, which resets it to the output clock.
type playbackScheduler struct {
	out    repositories.OutputContext
	logs   repositories.LogSink
	logger *zap.Logger

	mu      sync.Mutex
	cursor  float64
	sources map[int]repositories.PlaybackHandle
	nextID  int
}

func newPlaybackScheduler(out repositories.OutputContext, logs repositories.LogSink, logger *zap.Logger) *playbackScheduler {
	return &playbackScheduler{
		out:     out,
		logs:    logs,
		logger:  logger,
		sources: make(map[int]repositories.PlaybackHandle),
	}
}

// Play decodes one inbound chunk and schedules it gaplessly after
// whatever is already queued. Empty chunks are skipped silently.
func (p *playbackScheduler) Play(chunk string) error {
	samples, err := audio.DecodeChunk(chunk)
	if err != nil {
		return fmt.Errorf("undecodable audio chunk: %w", err)
	}
	if len(samples) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	start := p.cursor
	if now := p.out.Now(); now > start {
		start = now
	}

	id := p.nextID
	p.nextID++

	handle, err := p.out.Schedule(samples, start, func() {
		p.mu.Lock()
		delete(p.sources, id)
		p.mu.Unlock()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule segment: %w", err)
	}

	p.sources[id] = handle
	p.cursor = start + audio.Duration(len(samples), OutputSampleRate)

	p.logger.Debug("Scheduled audio segment",
		zap.Int("samples", len(samples)),
		zap.Float64("start", start),
		zap.Float64("cursor", p.cursor))
	return nil
}

// Interrupt handles barge-in: every pending or playing segment stops
// immediately and the cursor snaps back to the current clock so the next
// chunk schedules fresh. The session itself stays open.
func (p *playbackScheduler) Interrupt() {
	p.mu.Lock()
	for id, handle := range p.sources {
		handle.Stop()
		delete(p.sources, id)
	}
	p.cursor = p.out.Now()
	p.mu.Unlock()

	p.logs.Append(entities.NewLogEntry(entities.LogWarning, "Input interrupted."))
}

// stopAll silences the scheduler during teardown without logging an
// interruption.
func (p *playbackScheduler) stopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, handle := range p.sources {
		handle.Stop()
		delete(p.sources, id)
	}
}

// activeCount reports how many handles are currently registered.
func (p *playbackScheduler) activeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sources)
}
