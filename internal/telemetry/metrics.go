// Package telemetry holds the Prometheus collectors shared by the learning
// engine and the performance monitor. A nil *Metrics is valid and records
// nothing, so components can be constructed without a registry in tests.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "adaptive_core"

// Metrics groups every collector exported by the service.
type Metrics struct {
	insightsGenerated   *prometheus.CounterVec
	insightFallbacks    *prometheus.CounterVec
	analyses            *prometheus.CounterVec
	generatorLatency    prometheus.Histogram
	monitorChecks       *prometheus.CounterVec
	optimizationActions *prometheus.CounterVec
	breakerState        *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		insightsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insights_generated_total",
			Help:      "Insights produced, by generation path and metric.",
		}, []string{"source", "metric"}),
		insightFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insight_fallbacks_total",
			Help:      "Insights that used the deterministic fallback, by reason.",
		}, []string{"reason"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaign_analyses_total",
			Help:      "Campaign analyses, by result.",
		}, []string{"result"}),
		generatorLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "insight_generator_seconds",
			Help:      "Latency of insight text generation calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),
		monitorChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "performance_checks_total",
			Help:      "Campaign performance checks, by resulting status.",
		}, []string{"status"}),
		optimizationActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimization_actions_total",
			Help:      "Optimization actions, by type and execution status.",
		}, []string{"action_type", "status"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"name"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.insightsGenerated,
			m.insightFallbacks,
			m.analyses,
			m.generatorLatency,
			m.monitorChecks,
			m.optimizationActions,
			m.breakerState,
		)
	}
	return m
}

func (m *Metrics) InsightGenerated(source, metric string) {
	if m == nil {
		return
	}
	m.insightsGenerated.WithLabelValues(source, metric).Inc()
}

func (m *Metrics) InsightFallback(reason string) {
	if m == nil {
		return
	}
	m.insightFallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) Analysis(result string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveGenerator(d time.Duration) {
	if m == nil {
		return
	}
	m.generatorLatency.Observe(d.Seconds())
}

func (m *Metrics) MonitorCheck(status string) {
	if m == nil {
		return
	}
	m.monitorChecks.WithLabelValues(status).Inc()
}

func (m *Metrics) OptimizationAction(actionType, status string) {
	if m == nil {
		return
	}
	m.optimizationActions.WithLabelValues(actionType, status).Inc()
}

func (m *Metrics) BreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(state)
}
