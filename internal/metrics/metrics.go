package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pool metrics
var (
	CrawlerActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dircrawl_crawlers_active",
			Help: "Number of crawlers currently in the pool",
		},
	)

	CrawlerPoolCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dircrawl_crawlers_capacity",
			Help: "Maximum number of concurrent crawlers",
		},
	)

	CrawlerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dircrawl_crawler_runs_total",
			Help: "Total number of finished crawler runs by outcome",
		},
		[]string{"outcome"}, // "completed", "terminated", "failed"
	)

	CrawlerRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dircrawl_crawler_run_duration_seconds",
			Help:    "Wall time of a single crawler run",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
		},
	)

	SpawnRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dircrawl_spawn_rejections_total",
			Help: "Subdirectories that could not be admitted as new crawlers",
		},
		[]string{"reason"}, // "pool_full", "stopping"
	)

	CrawlPassesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dircrawl_passes_total",
			Help: "Total number of crawl passes started at the root",
		},
	)
)

// Traversal metrics
var (
	DirectoriesOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dircrawl_directories_opened_total",
			Help: "Total number of directories opened for listing",
		},
	)

	SubtreeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dircrawl_subtree_errors_total",
			Help: "Directories abandoned because they could not be opened or read",
		},
	)

	EntriesIgnored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dircrawl_entries_ignored_total",
			Help: "Directory entries that were neither files nor directories, or were hidden",
		},
	)
)

// Exchange metrics
var (
	FilesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dircrawl_files_published_total",
			Help: "Total number of file paths accepted by the exchange",
		},
	)

	FilesDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dircrawl_files_delivered_total",
			Help: "Total number of file paths handed to consumers",
		},
	)

	ExchangeBuffered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dircrawl_exchange_buffered_files",
			Help: "File paths buffered and not yet delivered",
		},
	)

	ExchangeWaiting = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dircrawl_exchange_waiting",
			Help: "Suspended exchange callers by side",
		},
		[]string{"side"}, // "producer", "consumer"
	)

	ExchangeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dircrawl_exchange_failures_total",
			Help: "Exchange calls that failed by reason",
		},
		[]string{"op", "reason"}, // op: "publish", "take"; reason: "stopping", "no_crawlers", "canceled"
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dircrawl_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations, retries included",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"operation"}, // "stat", "open", "readdir"
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dircrawl_filesystem_operation_errors_total",
			Help: "Filesystem operations that returned an error",
		},
		[]string{"operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dircrawl_filesystem_retry_attempts_total",
			Help: "Retries caused by NFS stale file handles",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dircrawl_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dircrawl_filesystem_retry_failures_total",
			Help: "Operations that still failed after all retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dircrawl_filesystem_stale_errors_total",
			Help: "ESTALE errors observed",
		},
		[]string{"operation"},
	)
)

// Runtime metrics
var (
	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dircrawl_goroutines",
			Help: "Number of goroutines",
		},
	)

	GoMemAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dircrawl_go_mem_alloc_bytes",
			Help: "Bytes of allocated heap objects",
		},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dircrawl_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dircrawl_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dircrawl_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dircrawl_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dircrawl_memory_paused",
			Help: "1 while consumers are paused for memory pressure",
		},
	)

	MemoryPausesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dircrawl_memory_pauses_total",
			Help: "Times consumers were paused for memory pressure",
		},
	)
)
