// internal/monitor/metrics.go
package monitor

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "robot"

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	PendingRequests prometheus.Gauge

	// Link metrics
	Connected     prometheus.Gauge
	Connections   prometheus.Counter
	LinesReceived prometheus.Counter
	LinesDropped  *prometheus.CounterVec
	BytesReceived prometheus.Counter

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Runtime metrics
	GoroutineCount prometheus.Gauge
	MemoryUsage    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands sent to the controller by verb and outcome",
		}, []string{"verb", "outcome"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time from registration to resolution of a command",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
		}, []string{"verb"}),
		PendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_requests",
			Help:      "Requests awaiting a response",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "1 while a controller connection is open",
		}),
		Connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Connections opened",
		}),
		LinesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_received_total",
			Help:      "Lines decoded from the controller",
		}),
		LinesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_dropped_total",
			Help:      "Lines discarded by reason",
		}, []string{"reason"}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Bytes read from the transport",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		GoroutineCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goroutines",
			Help:      "Current goroutine count",
		}),
		MemoryUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_usage_bytes",
			Help:      "Heap bytes allocated",
		}),
	}

	reg.MustRegister(
		m.CommandsTotal,
		m.CommandDuration,
		m.PendingRequests,
		m.Connected,
		m.Connections,
		m.LinesReceived,
		m.LinesDropped,
		m.BytesReceived,
		m.HTTPRequests,
		m.HTTPDuration,
		m.GoroutineCount,
		m.MemoryUsage,
	)

	return m
}

// ObserveCommand records one resolved command
func (m *Metrics) ObserveCommand(verb, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(verb, outcome).Inc()
	m.CommandDuration.WithLabelValues(verb).Observe(d.Seconds())
}

// SetPending sets the pending request gauge
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.PendingRequests.Set(float64(n))
}

// SetConnected flips the connection gauge
func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.Connected.Set(1)
		m.Connections.Inc()
		return
	}
	m.Connected.Set(0)
}

// LineReceived counts a decoded line
func (m *Metrics) LineReceived() {
	if m == nil {
		return
	}
	m.LinesReceived.Inc()
}

// LineDropped counts a discarded line
func (m *Metrics) LineDropped(reason string) {
	if m == nil {
		return
	}
	m.LinesDropped.WithLabelValues(reason).Inc()
}

// AddBytes counts bytes read from the link
func (m *Metrics) AddBytes(n int) {
	if m == nil {
		return
	}
	m.BytesReceived.Add(float64(n))
}

// ObserveHTTP records one HTTP request
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler exposes the gatherer in Prometheus text format
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// StartRuntimeMonitor samples goroutines and heap until ctx is done
func (m *Metrics) StartRuntimeMonitor(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	if m == nil {
		return
	}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var memStats runtime.MemStats
				runtime.ReadMemStats(&memStats)

				m.GoroutineCount.Set(float64(runtime.NumGoroutine()))
				m.MemoryUsage.Set(float64(memStats.Alloc))

				logger.Debug("Runtime sample",
					zap.Int("goroutines", runtime.NumGoroutine()),
					zap.Float64("memory_mb", float64(memStats.Alloc)/1024/1024),
				)
			}
		}
	}()
}
