package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kds"

// CronJobMetrics covers scheduler cycles: the board clock and the cron worker.
type CronJobMetrics struct {
	duration    *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	skipped     *prometheus.CounterVec
	overruns    *prometheus.CounterVec
}

// NewCronJobMetrics registers the scheduler metrics on reg. A nil reg yields a no-op value.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: namespace, Subsystem: "cron", Name: name, Help: help}
	}
	m := &CronJobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled jobs in seconds.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5, 30},
		}, []string{"job"}),
		runs:        prometheus.NewCounterVec(prometheus.CounterOpts(opts("job_runs_total", "Scheduled job executions by outcome.")), []string{"job", "outcome"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts(opts("job_last_success_timestamp_seconds", "Unix time of the last successful run.")), []string{"job"}),
		skipped:     prometheus.NewCounterVec(prometheus.CounterOpts(opts("cycles_skipped_total", "Cycles skipped because another instance held the lock.")), []string{"scheduler"}),
		overruns:    prometheus.NewCounterVec(prometheus.CounterOpts(opts("cycle_overruns_total", "Cycles that took longer than the scheduler interval.")), []string{"scheduler"}),
	}
	reg.MustRegister(m.duration, m.runs, m.lastSuccess, m.skipped, m.overruns)
	return m
}

// ObserveRun records one job execution. err decides the outcome label.
func (c *CronJobMetrics) ObserveRun(job string, took time.Duration, err error) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	c.duration.WithLabelValues(job).Observe(took.Seconds())
	if err != nil {
		c.runs.WithLabelValues(job, "failure").Inc()
		return
	}
	c.runs.WithLabelValues(job, "success").Inc()
	c.lastSuccess.WithLabelValues(job).SetToCurrentTime()
}

func (c *CronJobMetrics) IncSkipped(scheduler string) {
	if c == nil || c.skipped == nil {
		return
	}
	c.skipped.WithLabelValues(normalizeLabel(scheduler)).Inc()
}

func (c *CronJobMetrics) IncOverrun(scheduler string) {
	if c == nil || c.overruns == nil {
		return
	}
	c.overruns.WithLabelValues(normalizeLabel(scheduler)).Inc()
}

func normalizeLabel(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}
