// Package metrics defines the custom Prometheus metrics of the console and
// the directory. Metrics register with the default registry on package load.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "user_admin"

// ── Console metrics ───────────────────────────────────────────────────────────

// StaleResponsesTotal counts directory responses dropped because a newer
// request superseded them.
// Label:
//   - slot: "list", "detail" or "import"
var StaleResponsesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_responses_total",
		Help:      "Directory responses discarded because a newer request was issued.",
	},
	[]string{"slot"},
)

// DirectoryRequestDuration measures console calls to the directory API.
// Labels:
//   - op: client operation (e.g. "list users", "upload users")
//   - code: HTTP status, or "0" when no response arrived
var DirectoryRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "directory_request_duration_seconds",
		Help:      "Duration of console requests to the directory API.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"op", "code"},
)

// ActiveSessions tracks the console workspaces currently held in memory.
var ActiveSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "console_sessions",
		Help:      "Console workspaces currently held in memory.",
	},
)

// ── Directory metrics ─────────────────────────────────────────────────────────

// ImportRowsTotal counts workbook rows processed by the bulk import.
// Label:
//   - result: "success" or "error"
var ImportRowsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_rows_total",
		Help:      "Workbook rows processed by the bulk import, by outcome.",
	},
	[]string{"result"},
)

// ImportsTotal counts import requests.
// Label:
//   - outcome: "completed", "rejected" (bad file) or "failed"
var ImportsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "imports_total",
		Help:      "Bulk import requests, by outcome.",
	},
	[]string{"outcome"},
)

// ObserveDirectoryRequest matches remote.Observer.
func ObserveDirectoryRequest(op string, status int, elapsed time.Duration) {
	DirectoryRequestDuration.WithLabelValues(op, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// StaleResponse matches the stale hook of the list controller.
func StaleResponse(slot string) {
	StaleResponsesTotal.WithLabelValues(slot).Inc()
}
