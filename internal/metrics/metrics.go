// Package metrics defines Prometheus metrics for mediate.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediate_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediate_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediate_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	ModerationSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediate_moderation_submissions_total",
			Help: "Gate submissions by entity type, action and outcome",
		},
		[]string{"type", "action", "outcome"},
	)

	ModerationResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediate_moderation_resolutions_total",
			Help: "Resolved moderation records by entity type, action and decision",
		},
		[]string{"type", "action", "decision"},
	)

	ModerationPending = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mediate_moderation_pending",
			Help: "Pending moderation records by entity type",
		},
		[]string{"type"},
	)

	EventQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediate_event_queue_depth",
			Help: "Current moderation event queue depth",
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediate_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		ModerationSubmissions, ModerationResolutions, ModerationPending,
		EventQueueDepth, WSConnections,
	)
}

// RegisterPool exports database connection usage. usage is read on every
// scrape. Calling it twice panics, like any duplicate registration.
func RegisterPool(usage func() (acquired, idle, total int32)) {
	gauge := func(name, help string, pick func(a, i, t int32) int32) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			return float64(pick(usage()))
		})
	}

	prometheus.MustRegister(
		gauge("mediate_db_connections_acquired", "Database connections in use",
			func(a, _, _ int32) int32 { return a }),
		gauge("mediate_db_connections_idle", "Idle database connections",
			func(_, i, _ int32) int32 { return i }),
		gauge("mediate_db_connections_total", "Open database connections",
			func(_, _, t int32) int32 { return t }),
	)
}
