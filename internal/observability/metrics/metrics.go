package metrics

import "github.com/prometheus/client_golang/prometheus"

// UpstreamMetrics exposes counters/histograms for Checkfront API calls.
type UpstreamMetrics struct {
	callsTotal  *prometheus.CounterVec
	callLatency *prometheus.HistogramVec
}

func NewUpstreamMetrics(reg prometheus.Registerer) *UpstreamMetrics {
	m := &UpstreamMetrics{
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkfront",
			Subsystem: "upstream",
			Name:      "calls_total",
			Help:      "Total Checkfront API calls",
		}, []string{"path", "outcome"}),
		callLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "checkfront",
			Subsystem: "upstream",
			Name:      "call_latency_seconds",
			Help:      "Latency of Checkfront API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.callsTotal, m.callLatency)
	return m
}

func (m *UpstreamMetrics) ObserveCall(path, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.callsTotal.WithLabelValues(path, outcome).Inc()
	m.callLatency.WithLabelValues(path).Observe(seconds)
}
