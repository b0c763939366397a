package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueryFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_fetch_total",
			Help: "The total number of query producer runs",
		},
		[]string{"key", "status"},
	)

	QueryFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_fetch_duration_seconds",
			Help:    "Duration of query fetches including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"key"},
	)

	QueryCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_cache_hits_total",
			Help: "Number of fetches served from fresh cached data",
		},
		[]string{"key"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	StreamsFetched = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streams_fetched",
			Help: "Number of streams in the latest snapshot",
		},
	)

	StreamsLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streams_live",
			Help: "Number of live streams in the latest snapshot",
		},
	)

	StreamsChanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streams_changed_total",
			Help: "Streams that were new or whose content changed between snapshots",
		},
		[]string{"source", "event_type"},
	)

	SnapshotDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snapshot_duration_seconds",
			Help:    "Duration of persisting and publishing one snapshot",
			Buckets: prometheus.DefBuckets,
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_events_published_total",
			Help: "Total number of stream events published",
		},
		[]string{"source"},
	)

	PublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_events_publish_errors_total",
			Help: "Total number of failed event publishes",
		},
		[]string{"source"},
	)

	DLQMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_published_total",
			Help: "Total number of messages published to DLQ",
		},
		[]string{"source"},
	)

	NotifyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notify_duration_seconds",
			Help:    "Duration of downstream notifications",
			Buckets: prometheus.DefBuckets,
		},
	)

	NotifyErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_errors_total",
			Help: "Total number of failed downstream notifications",
		},
		[]string{"source"},
	)

	NotifySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_success_total",
			Help: "Total number of stream events delivered downstream",
		},
		[]string{"source"},
	)
)
