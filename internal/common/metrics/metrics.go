package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_queries_total",
			Help: "Catalog page queries by backend and outcome",
		},
		[]string{"backend", "status"},
	)

	CatalogQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_query_duration_seconds",
			Help:    "Duration of the combined rows and count queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	CatalogPageCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_page_cache_total",
			Help: "Catalog page snapshot cache lookups by result",
		},
		[]string{"result"},
	)

	GeocodeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_requests_total",
			Help: "Outbound geocoding requests by provider and outcome",
		},
		[]string{"provider", "status"},
	)

	GeocodeCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geocode_cache_hits_total",
			Help: "Geocoding lookups answered from the persistent cache",
		},
	)

	StoresPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "locator_stores_pending",
			Help: "Stores still waiting for a geocoding attempt",
		},
	)

	Inquiries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inquiries_total",
			Help: "Contact and quote submissions by outcome",
		},
		[]string{"kind", "status"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		},
		[]string{"route", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)
