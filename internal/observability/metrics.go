package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unitoku_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "unitoku_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// LikeToggles counts like toggles by target (post, comment, evaluation) and direction.
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unitoku_like_toggles_total",
		Help: "Total number of like toggles by target and resulting state",
	}, []string{"target", "state"})

	// ReadHistoryWrites counts read-history ledger writes by result.
	ReadHistoryWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unitoku_read_history_writes_total",
		Help: "Read-history ledger writes by result (inserted, moved, evicted, conflict)",
	}, []string{"result"})

	// NotificationsPublished counts realtime events published by channel kind and event type.
	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unitoku_notifications_published_total",
		Help: "Realtime events published by channel kind and event type",
	}, []string{"channel", "event_type"})

	// WebSocketConnectionsTotal is the gauge of active WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "unitoku_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped because a client send buffer was full.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unitoku_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// ImageUploads counts image uploads by outcome.
	ImageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unitoku_image_uploads_total",
		Help: "Image uploads by outcome",
	}, []string{"outcome"})
)

// RecordLikeToggle records the outcome of a like toggle.
func RecordLikeToggle(target string, liked bool) {
	state := "unliked"
	if liked {
		state = "liked"
	}
	LikeToggles.WithLabelValues(target, state).Inc()
}
