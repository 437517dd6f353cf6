package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	assert.NoError(t, m.Track("warmup").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("warmup").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("warmup", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("warmup", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("warmup")))
}

func TestAddWarmed(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddWarmed(true, 3)
	m.AddWarmed(false, 1)
	m.AddWarmed(true, 0)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.warmed.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.warmed.WithLabelValues("error")))
}

func TestNilMetricsTrackerPassesErrorThrough(t *testing.T) {
	var m *Metrics
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("x").End(boom), boom)
	m.AddWarmed(true, 1)
}
