// Package metrics provides Prometheus metrics for scene executions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricExecutionsTotal    = "scenegrid_executions_total"
	MetricPhaseDuration      = "scenegrid_phase_duration_seconds"
	MetricIssuesTotal        = "scenegrid_validation_issues_total"
	MetricDatablocksCreated  = "scenegrid_datablocks_created_total"
	MetricCleanupErrorsTotal = "scenegrid_cleanup_errors_total"
)

// Phase labels.
const (
	PhaseValidate = "validate"
	PhaseBuild    = "build"
	PhaseCommit   = "commit"
	PhaseRollback = "rollback"
)

// Metrics contains Prometheus metrics for executions. Safe for concurrent use.
type Metrics struct {
	executions    *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	issues        *prometheus.CounterVec
	datablocks    prometheus.Counter
	cleanupErrors prometheus.Counter
}

// NewMetrics creates the collectors. They are not registered; call Register.
func NewMetrics() *Metrics {
	return &Metrics{
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricExecutionsTotal,
				Help: "Total number of scene executions by domain and final state",
			},
			[]string{"domain", "state"},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricPhaseDuration,
				Help:    "Histogram of execution phase duration in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"phase"},
		),
		issues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricIssuesTotal,
				Help: "Total number of validation issues by kind and severity",
			},
			[]string{"kind", "severity"},
		),
		datablocks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricDatablocksCreated,
				Help: "Total number of host datablocks created during building",
			},
		),
		cleanupErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricCleanupErrorsTotal,
				Help: "Total number of errors raised while releasing datablocks on rollback",
			},
		),
	}
}

// Register registers all metrics with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncExecutions counts a finished execution.
func (m *Metrics) IncExecutions(domain, state string) {
	m.executions.WithLabelValues(domain, state).Inc()
}

// ObservePhase records how long a phase took.
func (m *Metrics) ObservePhase(phase string, seconds float64) {
	m.phaseDuration.WithLabelValues(phase).Observe(seconds)
}

func (m *Metrics) IncIssues(kind, severity string) {
	m.issues.WithLabelValues(kind, severity).Inc()
}

func (m *Metrics) AddDatablocks(n int) {
	m.datablocks.Add(float64(n))
}

func (m *Metrics) AddCleanupErrors(n int) {
	m.cleanupErrors.Add(float64(n))
}

// Collectors returns all collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.executions,
		m.phaseDuration,
		m.issues,
		m.datablocks,
		m.cleanupErrors,
	}
}
