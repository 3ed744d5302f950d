package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// SystemMetrics samples Go runtime health into OpenTelemetry instruments.
type SystemMetrics struct {
	goRoutines      metric.Int64Gauge
	memoryAllocated metric.Int64Gauge
	memorySystem    metric.Int64Gauge
	gcCount         metric.Int64Counter
	gcPause         metric.Float64Histogram
	uptime          metric.Float64Gauge

	start  time.Time
	lastGC uint32
}

// NewSystemMetrics creates a runtime metrics collector on the given meter.
func NewSystemMetrics(meter metric.Meter) (*SystemMetrics, error) {
	goRoutines, err := meter.Int64Gauge(
		"system_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, err
	}

	memoryAllocated, err := meter.Int64Gauge(
		"system_memory_allocated_bytes",
		metric.WithDescription("Heap memory allocated by the Go runtime"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	memorySystem, err := meter.Int64Gauge(
		"system_memory_system_bytes",
		metric.WithDescription("Memory obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gcCount, err := meter.Int64Counter(
		"system_gc_total",
		metric.WithDescription("Completed GC cycles"),
	)
	if err != nil {
		return nil, err
	}

	gcPause, err := meter.Float64Histogram(
		"system_gc_pause_seconds",
		metric.WithDescription("GC pause duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	uptime, err := meter.Float64Gauge(
		"system_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &SystemMetrics{
		goRoutines:      goRoutines,
		memoryAllocated: memoryAllocated,
		memorySystem:    memorySystem,
		gcCount:         gcCount,
		gcPause:         gcPause,
		uptime:          uptime,
		start:           time.Now(),
	}, nil
}

// Start samples runtime metrics on the given interval until ctx is canceled.
func (s *SystemMetrics) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.record(ctx)
			}
		}
	}()
}

func (s *SystemMetrics) record(ctx context.Context) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	s.goRoutines.Record(ctx, int64(runtime.NumGoroutine()))
	s.memoryAllocated.Record(ctx, int64(stats.Alloc))
	s.memorySystem.Record(ctx, int64(stats.Sys))
	s.uptime.Record(ctx, time.Since(s.start).Seconds())

	if stats.NumGC > s.lastGC {
		s.gcCount.Add(ctx, int64(stats.NumGC-s.lastGC))
		// Most recent pause lives at (NumGC+255)%256 in the circular buffer.
		pause := stats.PauseNs[(stats.NumGC+255)%256]
		s.gcPause.Record(ctx, time.Duration(pause).Seconds())
		s.lastGC = stats.NumGC
	}
}
