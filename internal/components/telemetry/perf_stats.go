package telemetry

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
	"go.opentelemetry.io/otel"
)

const PERF_STATS_INTERVAL = 30 * time.Second

// InstrumentPerfStats records cpu, resident memory and goroutine gauges every
// PERF_STATS_INTERVAL until ctx is done.
func InstrumentPerfStats(ctx context.Context, tel API) {
	meter := otel.Meter("partwatch/perf_stats")
	cpuGauge, _ := meter.Float64Gauge("cpu_usage_percent")
	rssGauge, _ := meter.Int64Gauge("resident_memory_mb")
	goroutineGauge, _ := meter.Int64Gauge("goroutines")

	self, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		tel.ReportWarning("perf_stats.process", err)
	}

	go func() {
		ticker := time.NewTicker(PERF_STATS_INTERVAL)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			usage, err := cpu.PercentWithContext(ctx, 0, false)
			if err != nil {
				tel.ReportWarning("perf_stats.cpu", err)
			} else if len(usage) > 0 {
				cpuGauge.Record(ctx, usage[0])
			}

			if self != nil {
				mem, err := self.MemoryInfoWithContext(ctx)
				if err == nil {
					rssGauge.Record(ctx, int64(mem.RSS/1_000_000))
				}
			}
			goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
		}
	}()
}
