// Package main provides the entry point for the dircrawl daemon.
//
// dircrawl walks a directory tree continuously with a bounded pool of
// crawlers and hands every file it finds to a fixed set of consumers
// through a small bounded buffer. When a pass over the tree finishes, the
// next one starts at the root.
//
// # Lifecycle
//
//  1. Memory configuration: GOMEMLIMIT from MEMORY_LIMIT, if set
//  2. Configuration loading: TOML file and environment variables
//  3. Crawl start: the root is opened and the first crawler launched
//  4. Consumers: CONSUMERS goroutines pull files and log them at debug level
//  5. HTTP server: health probes, /api/status, /api/next and /metrics
//  6. Graceful shutdown: SIGINT/SIGTERM stops the crawl, releasing every
//     waiting consumer, then the HTTP server, within SHUTDOWN_TIMEOUT
//
// See package startup for the full list of settings.
package main
