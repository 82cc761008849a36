package ecs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PromClientCollector implements PrometheusCollector against a real
// prometheus/client_golang registry, for deployments that expose /metrics
// via promhttp instead of scraping PrometheusTextCollector's hand-rolled
// text output.
type PromClientCollector struct {
	duration  *prometheus.HistogramVec
	run       *prometheus.CounterVec
	skipped   *prometheus.CounterVec
	errors    *prometheus.CounterVec
}

// NewPromClientCollector registers its metrics with reg (pass
// prometheus.DefaultRegisterer for the global registry) and returns a
// PrometheusCollector ready to pass into ObservationSettings.
func NewPromClientCollector(reg prometheus.Registerer) *PromClientCollector {
	c := &PromClientCollector{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ecs",
			Name:      "sub_stage_duration_seconds",
			Help:      "Sub-stage execution duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage", "sub_stage"}),
		run: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecs",
			Name:      "sub_stage_systems_run_total",
			Help:      "Systems run per sub-stage.",
		}, []string{"stage", "sub_stage"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecs",
			Name:      "sub_stage_systems_skipped_total",
			Help:      "Systems skipped per sub-stage.",
		}, []string{"stage", "sub_stage"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ecs",
			Name:      "sub_stage_errors_total",
			Help:      "Sub-stage error count.",
		}, []string{"stage", "sub_stage"}),
	}
	reg.MustRegister(c.duration, c.run, c.skipped, c.errors)
	return c
}

// ObserveSubStage implements PrometheusCollector.
func (c *PromClientCollector) ObserveSubStage(summary SubStageSummary) {
	labels := prometheus.Labels{"stage": summary.StageName, "sub_stage": summary.SubStageName}
	c.duration.With(labels).Observe(summary.Duration.Seconds())
	c.run.With(labels).Add(float64(summary.SystemsRun))
	c.skipped.With(labels).Add(float64(summary.SystemsSkipped))
	if summary.Error != nil {
		c.errors.With(labels).Inc()
	}
}

var _ PrometheusCollector = (*PromClientCollector)(nil)
