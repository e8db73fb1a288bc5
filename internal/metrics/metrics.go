// Package metrics provides Prometheus metrics for the chat relay
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Turn outcomes recorded by ObserveTurn.
const (
	StatusOK             = "ok"
	StatusInvalidInput   = "invalid_input"
	StatusInferenceError = "inference_error"
	StatusStorageError   = "storage_error"
)

// Metrics holds all Prometheus metrics for the chat relay
type Metrics struct {
	TurnsTotal        *prometheus.CounterVec
	InferenceDuration prometheus.Histogram
	StorageOpsTotal   *prometheus.CounterVec
	Sessions          prometheus.Gauge
	ClearsTotal       prometheus.Counter
}

// New creates the metrics and registers them with reg. A nil reg registers
// with the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_turns_total",
				Help: "Total number of chat turns by outcome",
			},
			[]string{"status"},
		),
		InferenceDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chat_inference_duration_seconds",
				Help:    "Duration of inference calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		StorageOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_storage_operations_total",
				Help: "Total number of session storage operations",
			},
			[]string{"operation", "status"},
		),
		Sessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "chat_sessions",
				Help: "Number of sessions held in memory",
			},
		),
		ClearsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "chat_clears_total",
				Help: "Total number of conversation clears",
			},
		),
	}
}

// The record helpers below are nil-safe so callers can run without metrics.

func (m *Metrics) ObserveTurn(status string) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveInference(d time.Duration) {
	if m == nil {
		return
	}
	m.InferenceDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveStorage(operation string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.StorageOpsTotal.WithLabelValues(operation, status).Inc()
}

func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.Sessions.Set(float64(n))
}

func (m *Metrics) ObserveClear() {
	if m == nil {
		return
	}
	m.ClearsTotal.Inc()
}
