// Package metrics registers the pipeline's Prometheus collectors: queue
// depth, per-status row counts, worker utilization, link outcomes, resolver
// cache performance, and provider RPC latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clearmedia_queue_depth",
		Help: "Number of media file ids currently buffered in the producer-to-worker queue.",
	})

	MediaFilesByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "clearmedia_media_files_by_status",
		Help: "Count of MediaFile rows per status, refreshed on each stats poll.",
	}, []string{"status"})

	WorkersBusy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clearmedia_workers_busy",
		Help: "Number of workers currently processing a media file.",
	})

	LinkOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clearmedia_link_outcomes_total",
		Help: "Count of Linker results by outcome.",
	}, []string{"result"})

	ResolverCacheResult = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clearmedia_resolver_cache_total",
		Help: "Resolver cache hit/miss counts by stage.",
	}, []string{"stage", "result"})

	ProviderRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clearmedia_provider_request_duration_seconds",
		Help:    "Latency of outbound LLM/TMDB provider requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "outcome"})

	ScannerFilesDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clearmedia_scanner_files_discovered_total",
		Help: "Total new MediaFile rows inserted by the scanner.",
	})

	ProducerClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clearmedia_producer_claimed_total",
		Help: "Total MediaFile rows claimed (PENDING to QUEUED) by the producer.",
	})
)
