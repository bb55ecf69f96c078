package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/concernlab/dialog-platform/internal/intent"
)

// DialogMetrics exposes counters/histograms for the dialog pipeline.
type DialogMetrics struct {
	turnsTotal    *prometheus.CounterVec
	turnLatency   *prometheus.HistogramVec
	oracleTotal   *prometheus.CounterVec
	oracleLatency *prometheus.HistogramVec
}

func NewDialogMetrics(reg prometheus.Registerer) *DialogMetrics {
	m := &DialogMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dialog",
			Subsystem: "manager",
			Name:      "turns_total",
			Help:      "Total processed dialog turns",
		}, []string{"language", "intent"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dialog",
			Subsystem: "manager",
			Name:      "turn_latency_seconds",
			Help:      "Latency of full turn processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"language"}),
		oracleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dialog",
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "Total scoring oracle calls",
		}, []string{"oracle"}),
		oracleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dialog",
			Subsystem: "oracle",
			Name:      "call_latency_seconds",
			Help:      "Latency of scoring oracle calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"oracle"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.turnLatency, m.oracleTotal, m.oracleLatency)
	return m
}

// ObserveTurn records one completed dialog turn.
func (m *DialogMetrics) ObserveTurn(languageCode string, label intent.Label, duration time.Duration) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(languageCode, string(label)).Inc()
	m.turnLatency.WithLabelValues(languageCode).Observe(duration.Seconds())
}

// ObserveOracleCall records one scoring oracle round trip.
func (m *DialogMetrics) ObserveOracleCall(oracle string, seconds float64) {
	if m == nil {
		return
	}
	m.oracleTotal.WithLabelValues(oracle).Inc()
	m.oracleLatency.WithLabelValues(oracle).Observe(seconds)
}
