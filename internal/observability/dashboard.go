package observability

import "github.com/prometheus/client_golang/prometheus"

// DashboardMetrics instruments dashboard page loads. It satisfies the
// dashboard LoadRecorder and ProgressIndicator capabilities.
type DashboardMetrics struct {
	loads    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func newDashboardMetrics(registerer prometheus.Registerer) *DashboardMetrics {
	loads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_loads_total",
		Help: "Dashboard data loads by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_load_duration_seconds",
		Help:    "Time from load start to settle, by outcome.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"outcome"})
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_loads_in_flight",
		Help: "Dashboard loads currently holding the progress indicator.",
	})
	registerer.MustRegister(loads, duration, inFlight)
	return &DashboardMetrics{loads: loads, duration: duration, inFlight: inFlight}
}

// RecordLoad counts a settled load.
func (d *DashboardMetrics) RecordLoad(outcome string, seconds float64) {
	if d == nil {
		return
	}
	d.loads.WithLabelValues(outcome).Inc()
	d.duration.WithLabelValues(outcome).Observe(seconds)
}

// Freeze marks a load as in flight. The message is ignored.
func (d *DashboardMetrics) Freeze(string) {
	if d == nil {
		return
	}
	d.inFlight.Inc()
}

// Unfreeze releases one in-flight load.
func (d *DashboardMetrics) Unfreeze() {
	if d == nil {
		return
	}
	d.inFlight.Dec()
}
