package telemetry

import (
	"log"

	"silkweaver/logging"
)

// Metric keys published by the simulation loop.
const (
	MetricTicks         = "sim.ticks"
	MetricTickOverruns  = "sim.tick_overruns"
	MetricLastTickNanos = "sim.last_tick_nanos"
	MetricBridges       = "silk.bridges"
	MetricActors        = "silk.actors"
	MetricImpacts       = "silk.impacts"
)

// Logger is the printf-style diagnostics sink used outside the event router.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger. A nil logger discards output.
func WrapLogger(logger *log.Logger) Logger {
	return LoggerFunc(func(format string, args ...any) {
		if logger == nil {
			return
		}
		logger.Printf(format, args...)
	})
}

// Metrics receives counters and gauges.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// WrapMetrics adapts the router-owned metric set. A nil set discards values.
func WrapMetrics(metrics *logging.Metrics) Metrics {
	return metricsAdapter{metrics: metrics}
}

type metricsAdapter struct {
	metrics *logging.Metrics
}

func (m metricsAdapter) Add(key string, delta uint64) {
	m.metrics.TelemetryAdd(key, delta)
}

func (m metricsAdapter) Store(key string, value uint64) {
	m.metrics.TelemetryStore(key, value)
}
