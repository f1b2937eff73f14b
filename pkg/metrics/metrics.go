package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Run metrics
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutover_runs_total",
			Help: "Total number of deployment runs by outcome",
		},
		[]string{"outcome"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cutover_run_duration_seconds",
			Help:    "End-to-end deployment run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(30, 2, 10),
		},
	)

	// Migration metrics
	StepsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cutover_steps_applied_total",
			Help: "Total number of traffic migration steps by status",
		},
		[]string{"status"},
	)

	StepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cutover_step_duration_seconds",
			Help:    "Duration of one migration step including dwell and validation",
			Buckets: prometheus.ExponentialBuckets(5, 2, 8),
		},
	)

	RollbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cutover_rollbacks_total",
			Help: "Total number of emergency rollbacks",
		},
	)

	// Probe metrics
	ProbeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cutover_probe_latency_seconds",
			Help:    "Probe latency in seconds by probe kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Stability metrics
	StabilityWarnings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cutover_stability_warnings_total",
			Help: "Total number of warnings raised during stability monitoring",
		},
	)
)

func init() {
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(StepsApplied)
	prometheus.MustRegister(StepDuration)
	prometheus.MustRegister(RollbacksTotal)
	prometheus.MustRegister(ProbeLatency)
	prometheus.MustRegister(StabilityWarnings)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
