package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CapturesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clockd",
		Name:      "captures_processed_total",
		Help:      "Total kiosk captures processed, by outcome",
	}, []string{"outcome"})

	MatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "clockd",
		Name:      "match_duration_seconds",
		Help:      "Duration of one identity match attempt",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	MatchDistance = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "clockd",
		Name:      "match_distance",
		Help:      "Best distance found per match attempt (finite results only)",
		Buckets:   prometheus.LinearBuckets(0, 0.1, 12),
	})

	EventsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clockd",
		Name:      "attendance_events_total",
		Help:      "Attendance events persisted, by type",
	}, []string{"event_type"})

	SummaryEventsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "clockd",
		Name:      "summary_events_applied_total",
		Help:      "Events folded into day summaries by the worker",
	})

	PendingQueueEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "clockd",
		Name:      "pending_queue_events",
		Help:      "Messages sitting in the ATTENDANCE stream",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "clockd",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "clockd",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
