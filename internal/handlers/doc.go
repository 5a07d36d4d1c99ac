// Package handlers provides the HTTP surface of the crawl daemon.
//
// It includes handlers for:
//   - Health, liveness and readiness probes
//   - Crawl status snapshots
//   - Pulling the next discovered file
//   - Build information and Prometheus metrics
package handlers
