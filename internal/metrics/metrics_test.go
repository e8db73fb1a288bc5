package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveTurn(StatusOK)
	m.ObserveTurn(StatusOK)
	m.ObserveTurn(StatusInferenceError)
	m.ObserveStorage("save", nil)
	m.ObserveStorage("save", errors.New("disk full"))
	m.ObserveInference(150 * time.Millisecond)
	m.SetSessions(3)
	m.ObserveClear()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TurnsTotal.WithLabelValues(StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsTotal.WithLabelValues(StatusInferenceError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StorageOpsTotal.WithLabelValues("save", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StorageOpsTotal.WithLabelValues("save", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Sessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClearsTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(m.InferenceDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTurn(StatusOK)
		m.ObserveInference(time.Second)
		m.ObserveStorage("load", nil)
		m.SetSessions(1)
		m.ObserveClear()
	})
}
