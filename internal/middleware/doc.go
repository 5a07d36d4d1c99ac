// Package middleware provides HTTP middleware for the crawl daemon.
//
// It includes:
//   - Request logging in W3C Extended Log Format, with the long-poll wait
//     of /api/next recorded and empty polls demoted to debug
//   - Prometheus request metrics labeled by route template
package middleware
