package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcome labels
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// SessionMetrics holds the Prometheus collectors describing one client session. A nil
// *SessionMetrics is valid and records nothing.
type SessionMetrics struct {
	connectionAttempts *prometheus.CounterVec
	reconnections      prometheus.Counter
	reconnectDelay     prometheus.Histogram
	connected          prometheus.Gauge
	pending            prometheus.Gauge
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	errorTotal         *prometheus.CounterVec
}

// NewSessionMetrics creates the session collectors and registers them with reg.
// An empty namespace defaults to "mcp".
func NewSessionMetrics(reg prometheus.Registerer, namespace string) (*SessionMetrics, error) {
	if namespace == "" {
		namespace = "mcp"
	}
	const subsystem = "client"

	m := &SessionMetrics{
		connectionAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "connection_attempts_total",
				Help:      "Session negotiations started, by outcome",
			},
			[]string{"status"},
		),
		reconnections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reconnections_scheduled_total",
				Help:      "Reconnections scheduled after a connection failure",
			},
		),
		reconnectDelay: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reconnect_delay_seconds",
				Help:      "Backoff delay of scheduled reconnections",
				Buckets:   []float64{0.5, 1, 2, 4, 8, 16},
			},
		),
		connected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "connected",
				Help:      "1 while a negotiated session is live",
			},
		),
		pending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pending_requests",
				Help:      "Requests awaiting a response",
			},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "request_duration_milliseconds",
				Help:      "Duration of MCP requests in milliseconds",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
			},
			[]string{"method", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "request_total",
				Help:      "Total number of MCP requests",
			},
			[]string{"method", "status"},
		),
		errorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "errors_total",
				Help:      "Classified failures reported to the error observer",
			},
			[]string{"kind"},
		),
	}

	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	return m, nil
}

func (m *SessionMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.connectionAttempts,
		m.reconnections,
		m.reconnectDelay,
		m.connected,
		m.pending,
		m.requestDuration,
		m.requestTotal,
		m.errorTotal,
	}
}

// RecordConnectionAttempt counts one negotiation with its outcome
func (m *SessionMetrics) RecordConnectionAttempt(status string) {
	if m == nil {
		return
	}
	m.connectionAttempts.WithLabelValues(status).Inc()
}

// RecordReconnect counts a scheduled reconnection and its delay
func (m *SessionMetrics) RecordReconnect(delay time.Duration) {
	if m == nil {
		return
	}
	m.reconnections.Inc()
	m.reconnectDelay.Observe(delay.Seconds())
}

// SetConnected records whether a session is live
func (m *SessionMetrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}

// SetPending records the size of the pending table
func (m *SessionMetrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

// RecordRequest records one completed request
func (m *SessionMetrics) RecordRequest(method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, status).Observe(float64(duration.Milliseconds()))
	m.requestTotal.WithLabelValues(method, status).Inc()
}

// RecordError counts one classified failure
func (m *SessionMetrics) RecordError(kind string) {
	if m == nil {
		return
	}
	m.errorTotal.WithLabelValues(kind).Inc()
}

// MetricsHandler serves the metrics gathered by g in the Prometheus text format
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
