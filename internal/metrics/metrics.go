package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnnouncementsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_announcements_ingested_total",
		Help: "Announcements read from mailboxes and bulletin pages.",
	})

	EventsExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_events_extracted_total",
		Help: "Structured events returned by the extraction model.",
	})

	EventsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_events_stored_total",
		Help: "Events inserted into the vector store.",
	})

	EventsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_events_deduplicated_total",
		Help: "Events skipped as near-duplicates of stored events.",
	})

	ExtractionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radar_extraction_failures_total",
		Help: "Announcements the extraction model failed on.",
	})

	RecommendationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "radar_recommendation_duration_seconds",
		Help:    "End-to-end latency of a recommendation query.",
		Buckets: prometheus.DefBuckets,
	})
)
