// Package metrics defines and registers all custom Prometheus metrics for the
// resume tailoring client. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register with the default Prometheus registry on package init and
// are exposed by the bridge on GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "resumeforge"

// ── Remote API metrics ────────────────────────────────────────────────────────

// APIRequestsTotal counts calls made to the remote service.
// Labels:
//   - operation: API client operation (e.g. "tailor_resume", "generate_pdf")
//   - outcome: "ok", or the failure kind (e.g. "tailor", "unauthorized", "transport")
var APIRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Total number of remote API calls, by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

// APIRequestDuration measures remote call latency including body decoding.
// Tailoring legitimately takes up to two minutes, hence the wide buckets.
var APIRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "Duration of remote API calls.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	},
	[]string{"operation"},
)

// ── Workflow metrics ──────────────────────────────────────────────────────────

// FlowTransitionsTotal counts state machine transitions.
// Labels:
//   - flow: "tailor", "history", "resume"
//   - state: the state entered
var FlowTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flow_transitions_total",
		Help:      "Total number of workflow state transitions.",
	},
	[]string{"flow", "state"},
)

// HistorySaveFailuresTotal counts best-effort history saves that failed after
// a successful tailoring run.
var HistorySaveFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "history_save_failures_total",
		Help:      "Total number of failed best-effort history saves.",
	},
)

// StaleResultsDiscardedTotal counts generated artifacts dropped because a
// newer history selection superseded them.
var StaleResultsDiscardedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_results_discarded_total",
		Help:      "Total number of superseded history selection results discarded.",
	},
)

// ── Artifact metrics ──────────────────────────────────────────────────────────

// ArtifactsLive tracks generated binaries held client-side and not yet released.
var ArtifactsLive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "artifacts_live",
		Help:      "Current number of generated artifacts held and not yet released.",
	},
)
