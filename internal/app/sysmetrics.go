package service

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/okian/deuce/pkg/logger"
	"github.com/okian/deuce/pkg/metrics"
)

// SystemMetrics samples process resource usage into the metrics registry.
type SystemMetrics struct {
	proc   *process.Process
	logger logger.Logger
}

// NewSystemMetrics attaches to the current process.
func NewSystemMetrics(ctx context.Context, log logger.Logger) (*SystemMetrics, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())) //nolint:gosec // pids fit in int32
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SystemMetrics{proc: proc, logger: log}, nil
}

// Run samples every interval until ctx is done.
func (m *SystemMetrics) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Sample(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Sample(ctx)
		}
	}
}

// Sample records one reading. Readings the platform cannot provide are
// skipped.
func (m *SystemMetrics) Sample(ctx context.Context) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	metrics.UpdateSystemMemoryUsage(ms.HeapInuse)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if mem, err := m.proc.MemoryInfoWithContext(ctx); err == nil {
		metrics.UpdateSystemResidentMemory(mem.RSS)
	} else {
		m.logger.Debug(ctx, "memory info unavailable", logger.Error(err))
	}
	if pct, err := m.proc.PercentWithContext(ctx, 0); err == nil {
		metrics.UpdateSystemCPUPercent(pct)
	} else {
		m.logger.Debug(ctx, "cpu percent unavailable", logger.Error(err))
	}
}
