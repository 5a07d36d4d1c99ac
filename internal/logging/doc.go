// Package logging provides a small leveled logger for the crawler.
//
// It supports the following log levels:
//   - DEBUG: per-directory and per-file diagnostics
//   - INFO: crawl lifecycle (start, pass completion, stop)
//   - WARN: skipped subtrees and recoverable filesystem errors
//   - ERROR: crawler failures
//   - FATAL: startup errors that terminate the process
//
// The level is read from DEBUG or LOG_LEVEL on first use and can be
// overridden with SetLevel.
package logging
