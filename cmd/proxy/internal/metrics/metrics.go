// Package metrics exports proxy connection and traffic counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eo_proxy"

// Connection results.
const (
	ResultAccepted           = "accepted"
	ResultHandshakeFailed    = "handshake_failed"
	ResultBackendUnavailable = "backend_unavailable"
)

// Traffic directions.
const (
	DirectionClientToBackend = "client_to_backend"
	DirectionBackendToClient = "backend_to_client"
)

// Metrics groups the collectors of one proxy instance.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// connectionsTotal counts accepted TCP connections by how far they got:
	//   - accepted: upgraded and bridged to a backend
	//   - handshake_failed: WebSocket upgrade failed
	//   - backend_unavailable: backend could not be resolved or dialed
	connectionsTotal *prometheus.CounterVec

	// bridgesActive is the number of running bridges.
	bridgesActive prometheus.Gauge

	// messagesTotal counts forwarded messages. Backend packets with a zero
	// length are not counted since nothing is forwarded.
	messagesTotal *prometheus.CounterVec

	// bytesTotal counts forwarded payload bytes, excluding framing.
	bytesTotal *prometheus.CounterVec

	// bridgeDurationSeconds observes bridge lifetimes. Game sessions last
	// from seconds to hours.
	bridgeDurationSeconds prometheus.Histogram
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connections_total",
				Help:      "Total number of client connections, labeled by result.",
			},
			[]string{"result"},
		),
		bridgesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "bridges_active",
				Help:      "Number of client/backend bridges currently running.",
			},
		),
		messagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_total",
				Help:      "Total number of forwarded messages, labeled by direction.",
			},
			[]string{"direction"},
		),
		bytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_total",
				Help:      "Total number of forwarded payload bytes, labeled by direction.",
			},
			[]string{"direction"},
		),
		bridgeDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bridge_duration_seconds",
				Help:      "Histogram of bridge lifetimes in seconds.",
				Buckets:   []float64{1, 10, 60, 300, 1800, 3600, 14400},
			},
		),
	}

	m.registry.MustRegister(
		m.connectionsTotal,
		m.bridgesActive,
		m.messagesTotal,
		m.bytesTotal,
		m.bridgeDurationSeconds,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Connection(result string) {
	if m == nil {
		return
	}
	m.connectionsTotal.WithLabelValues(result).Inc()
}

// BridgeStarted marks a bridge as running and returns the func to call when
// it ends.
func (m *Metrics) BridgeStarted() func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	m.bridgesActive.Inc()
	return func() {
		m.bridgesActive.Dec()
		m.bridgeDurationSeconds.Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Forwarded(direction string, size int) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(direction).Inc()
	m.bytesTotal.WithLabelValues(direction).Add(float64(size))
}
