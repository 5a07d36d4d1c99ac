// Package metrics provides Prometheus instrumentation for the crawler.
//
// All metrics are prefixed with "dircrawl_" and registered with the default
// registry through promauto.
//
// # Metric Categories
//
// ## Pool Metrics
//
//   - CrawlerActive: Gauge of crawlers in the pool (sampled by the Collector)
//   - CrawlerPoolCapacity: Gauge of the configured pool size
//   - CrawlerRunsTotal: Counter of finished crawler runs by outcome
//   - CrawlerRunDuration: Histogram of crawler run wall time
//   - SpawnRejections: Counter of refused admissions by reason
//   - CrawlPassesTotal: Counter of passes started at the root
//
// ## Traversal Metrics
//
//   - DirectoriesOpened: Counter of directories opened for listing
//   - SubtreeErrors: Counter of abandoned subtrees
//   - EntriesIgnored: Counter of skipped entries (other kinds, hidden names)
//
// ## Exchange Metrics
//
//   - FilesPublished / FilesDelivered: Counters of paths in and out
//   - ExchangeBuffered: Gauge of buffered paths (sampled)
//   - ExchangeWaiting: Gauge of suspended callers by side (sampled)
//   - ExchangeFailures: Counter of failed publish/take calls by reason
//
// ## Filesystem Metrics
//
// Recorded through the filesystem.Observer returned by NewFilesystemObserver:
// operation durations and errors, plus ESTALE retry counters.
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal / HTTPRequestDuration: labeled by route template
//   - HTTPRequestsInFlight: Gauge of requests being served
//
// ## Memory Metrics
//
//   - MemoryUsageRatio: Heap allocation relative to GOMEMLIMIT
//   - MemoryPaused / MemoryPausesTotal: consumer pauses under pressure
//
// # Usage
//
//	metrics.InitializeMetrics()
//	filesystem.SetObserver(metrics.NewFilesystemObserver())
//
//	collector := metrics.NewCollector(provider, 5*time.Second)
//	collector.Start()
//	defer collector.Stop()
//
//	mux.Handle("/metrics", promhttp.Handler())
package metrics
