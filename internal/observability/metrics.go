package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VotesTotal counts reconciled votes by intent and outcome
	// (applied, unchanged, deleted).
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentboard_votes_total",
		Help: "Total number of reconciled votes by intent and outcome",
	}, []string{"intent", "outcome"})

	// CommentsAutoDeleted counts comments removed by the dislike threshold.
	CommentsAutoDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commentboard_comments_auto_deleted_total",
		Help: "Total number of comments deleted after reaching the dislike threshold",
	})

	// StoreRetries counts retried store transactions by operation.
	StoreRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentboard_store_retries_total",
		Help: "Total number of retried store operations after transient errors",
	}, []string{"operation"})

	// BroadcastEventsTotal counts events published to the hub by type.
	BroadcastEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentboard_broadcast_events_total",
		Help: "Total number of broadcast events by type",
	}, []string{"event_type"})

	// BroadcastFailures counts events that could not be published.
	BroadcastFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentboard_broadcast_failures_total",
		Help: "Total number of broadcast failures by event type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentboard_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// WebSocketConnections is the gauge of open WebSocket connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "commentboard_websocket_connections",
		Help: "Number of open WebSocket connections",
	})

	// WebSocketRoomSubscribers is the gauge of subscribers per room.
	WebSocketRoomSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "commentboard_websocket_room_subscribers",
		Help: "Number of subscribers per room",
	}, []string{"room_id"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "commentboard_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentboard_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// UpstreamRequests counts calls to third-party services by outcome.
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentboard_upstream_requests_total",
		Help: "Total number of upstream requests by service and outcome",
	}, []string{"service", "outcome"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
