// Package metrics exposes the orchestrator and provider's runtime
// observability surface as Prometheus collectors, served by the `start`
// subcommand's /metrics endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hdp"

var (
	// PhaseDuration tracks wall-clock time per orchestrator phase (compile,
	// fetch, assemble, sound_run, finalize), per spec §4.7.
	PhaseDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "phase_duration_seconds",
		Help:      "Duration of each orchestrator run phase.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"phase"})

	// ProviderRequestsTotal counts fetch requests by a caller-supplied
	// category label and outcome. The orchestrator counts each whole FetchAll
	// call under "batch"; individual keys are not counted.
	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "Total proof-fetch requests issued by the Provider.",
	}, []string{"category", "outcome"})

	// BatchTasksTotal counts tasks processed, by kind.
	BatchTasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batch_tasks_total",
		Help:      "Total tasks compiled, by kind.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(PhaseDuration, ProviderRequestsTotal, BatchTasksTotal)
}

// ObservePhase records seconds spent in the named orchestrator phase.
func ObservePhase(phase string, seconds float64) {
	PhaseDuration.WithLabelValues(phase).Observe(seconds)
}

// IncProviderRequest increments the request counter for a category label
// and outcome ("ok", "error"). Callers pass "batch" (orchestrator fetch
// phase) and "http_run" (the `start` server's /run handler); no per-key
// category ("header", "account", ...) is recorded.
func IncProviderRequest(category, outcome string) {
	ProviderRequestsTotal.WithLabelValues(category, outcome).Inc()
}

// IncBatchTask increments the processed-task counter for a task kind.
func IncBatchTask(kind string) {
	BatchTasksTotal.WithLabelValues(kind).Inc()
}

// Handler returns the HTTP handler the `start` subcommand mounts at
// /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
