// Package monitor samples host health for the system monitor view and
// backs the diagnostic scan tool.
package monitor

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/avalonlabs/vesper/domain/entities"
	"github.com/avalonlabs/vesper/domain/repositories"
)

// Stats is one snapshot of host health.
type Stats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	MemoryTotalMB uint64  `json:"memory_total_mb"`
	TemperatureC  float64 `json:"temperature_c"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
	SampledAt     int64   `json:"sampled_at"`
}

// Sampler abstracts the host probes so scans can be tested without
// touching real hardware.
type Sampler interface {
	Sample() (Stats, error)
}

// HostSampler reads live host stats through gopsutil.
type HostSampler struct{}

func (HostSampler) Sample() (Stats, error) {
	var stats Stats
	stats.SampledAt = time.Now().Unix()

	percents, err := cpu.Percent(0, false)
	if err != nil {
		return stats, fmt.Errorf("failed to sample cpu: %w", err)
	}
	if len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return stats, fmt.Errorf("failed to sample memory: %w", err)
	}
	stats.MemoryPercent = vm.UsedPercent
	stats.MemoryUsedMB = vm.Used / (1024 * 1024)
	stats.MemoryTotalMB = vm.Total / (1024 * 1024)

	if uptime, err := host.Uptime(); err == nil {
		stats.UptimeSeconds = uptime
	}

	// Sensor support varies wildly by platform; a missing sensor is
	// not an error, the reading just stays at zero.
	if sensors, err := host.SensorsTemperatures(); err == nil {
		for _, sensor := range sensors {
			if sensor.Temperature > stats.TemperatureC {
				stats.TemperatureC = sensor.Temperature
			}
		}
	}

	return stats, nil
}

// Monitor serves stats snapshots and runs diagnostic scans requested
// through the assistant's tool channel.
type Monitor struct {
	sampler Sampler
	logs    repositories.LogSink
	logger  *zap.Logger
}

func New(sampler Sampler, logs repositories.LogSink, logger *zap.Logger) *Monitor {
	if sampler == nil {
		sampler = HostSampler{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{sampler: sampler, logs: logs, logger: logger}
}

// Stats returns a fresh snapshot.
func (m *Monitor) Stats() (Stats, error) {
	return m.sampler.Sample()
}

// Scan runs one diagnostic pass and reports findings to the system log.
// scanType comes straight from the model ("quick", "full", ...) and only
// flavors the report.
func (m *Monitor) Scan(scanType string) error {
	stats, err := m.sampler.Sample()
	if err != nil {
		m.logs.Append(entities.NewLogEntry(entities.LogError,
			fmt.Sprintf("Scan aborted: %v", err)))
		return err
	}

	m.logs.Append(entities.NewLogEntry(entities.LogInfo,
		fmt.Sprintf("Scan [%s]: CPU %.1f%%, Memory %.1f%% (%d/%d MB)",
			scanType, stats.CPUPercent, stats.MemoryPercent,
			stats.MemoryUsedMB, stats.MemoryTotalMB)))

	verdict := "All systems nominal."
	kind := entities.LogSuccess
	if stats.CPUPercent > 90 || stats.MemoryPercent > 90 {
		verdict = "Warning: resource pressure detected."
		kind = entities.LogWarning
	}
	m.logs.Append(entities.NewLogEntry(kind, verdict))

	m.logger.Info("Diagnostic scan completed",
		zap.String("scanType", scanType),
		zap.Float64("cpuPercent", stats.CPUPercent),
		zap.Float64("memoryPercent", stats.MemoryPercent))
	return nil
}
