// Package metrics holds the Prometheus collectors of the API.
//
// HTTP metrics use the gin route template (c.FullPath()) as the path label,
// never the raw URL.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// AuthEventsTotal counts identity events by event (register, login, refresh,
	// verify_email) and outcome (success or an error code).
	AuthEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_events_total",
			Help: "Total number of authentication events, by event and outcome.",
		},
		[]string{"event", "outcome"},
	)

	// AdminGrantChangesTotal counts registry mutations by action (promote, update_role, demote).
	AdminGrantChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_grant_changes_total",
			Help: "Total number of admin registry changes, by action.",
		},
		[]string{"action"},
	)

	// RealtimeEventsTotal counts events published to websocket subscribers.
	RealtimeEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_total",
			Help: "Total number of realtime events published, by event type.",
		},
		[]string{"type"},
	)
)

// RecordAuthEvent increments AuthEventsTotal; a nil error counts as success.
func RecordAuthEvent(event, code string, err error) {
	outcome := "success"
	if err != nil {
		outcome = code
		if outcome == "" {
			outcome = "error"
		}
	}
	AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}
