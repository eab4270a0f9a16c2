// Package sysmonitor periodically samples process CPU, memory and
// goroutine counts so a host can log or export them alongside
// protocol-level metrics.
package sysmonitor

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot is a single point-in-time reading of process resource
// usage.
type Snapshot struct {
	CPUPercent  float64
	MemoryBytes uint64
	Goroutines  int
	Timestamp   time.Time
}

// Monitor samples process metrics on an interval and keeps the latest
// reading available for concurrent callers.
type Monitor struct {
	proc   *process.Process
	logger zerolog.Logger

	mu       sync.RWMutex
	snapshot Snapshot

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Monitor for the current process. Sampling does not
// start until Run is called.
func New(logger zerolog.Logger) (*Monitor, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Monitor{
		proc:   proc,
		logger: logger.With().Str("component", "sysmonitor").Logger(),
	}, nil
}

// Run starts periodic sampling. It blocks until ctx is cancelled, so
// callers typically invoke it in its own goroutine.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	defer m.wg.Done()

	m.sample()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sample()
		case <-ctx.Done():
			m.logger.Info().Msg("sysmonitor stopped")
			return
		}
	}
}

// Stop cancels the running sampling loop, if any, and waits for it to
// exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) sample() {
	cpuPercent, err := m.proc.CPUPercent()
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to read CPU percent")
		cpuPercent = 0
	}

	memInfo, err := m.proc.MemoryInfo()
	var memBytes uint64
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to read memory info")
	} else if memInfo != nil {
		memBytes = memInfo.RSS
	}

	snap := Snapshot{
		CPUPercent:  cpuPercent,
		MemoryBytes: memBytes,
		Goroutines:  runtime.NumGoroutine(),
		Timestamp:   time.Now(),
	}

	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()
}

// Latest returns the most recent snapshot taken. It is the zero value
// until the first sample completes.
func (m *Monitor) Latest() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
