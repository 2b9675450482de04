package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeCompleted      = "completed"
	outcomeSkippedOverlap = "skipped_overlap"
	outcomeNoData         = "no_data"
)

var (
	notificationsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stars_notifications_sent_total",
			Help: "Total number of reminder messages delivered",
		},
	)

	notificationsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stars_notifications_failed_total",
			Help: "Total number of reminder messages that could not be delivered",
		},
	)

	schedulerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stars_scheduler_ticks_total",
			Help: "Total number of scheduler ticks by outcome",
		},
		[]string{"outcome"},
	)

	tickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stars_scheduler_tick_duration_seconds",
			Help:    "Duration of completed scheduler ticks in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	matchesFetched = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stars_schedule_matches_fetched",
			Help: "Number of matches returned by the last schedule fetch",
		},
	)
)
