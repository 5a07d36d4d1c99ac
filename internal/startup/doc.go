// Package startup handles daemon initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is layered: built-in defaults, then the optional TOML file
// named by DIRCRAWL_CONFIG, then environment variables. [LoadConfig] prints
// the banner and logs the result; [Load] does the same work silently.
//
// Environment variables:
//
//   - CRAWL_ROOT: Directory to crawl (default: .)
//   - CRAWLER_COUNT: Maximum concurrent crawlers, or "auto" (default: 6)
//   - BUFFER_SIZE: Discovered files held for consumers (default: 2)
//   - BATCH_SIZE: Directory entries read per listing call (default: 32)
//   - CRAWL_RESTART_DELAY: Pause between crawl passes as Go duration (default: 1s)
//   - SKIP_HIDDEN: Ignore dot-prefixed entries (default: false)
//   - CONSUMERS: Ingester goroutines pulling files (default: 1)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_ENABLED: Serve /metrics (default: true)
//   - SHUTDOWN_TIMEOUT: Time allowed for a graceful stop (default: 10s)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//
// The TOML file uses the same settings in snake case:
//
//	crawl_root = "/srv/share"
//	crawler_count = "auto"
//	buffer_size = 64
//	restart_delay = "30s"
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Example Usage
//
//	config, err := startup.LoadConfig()
//	if err != nil {
//	    startup.LogFatal("Configuration error: %v", err)
//	}
//
//	startup.LogCrawlerInit(config)
//	// start the coordinator and HTTP server...
//
//	startup.LogShutdownInitiated("SIGTERM")
//	// ... cleanup ...
//	startup.LogShutdownComplete()
package startup
