// Package memory configures Go's memory limit in containers and pauses file
// consumers under memory pressure.
//
// # Configuration
//
// Call [ConfigureFromEnv] early in main, before significant allocations:
//
//	func main() {
//	    memory.ConfigureFromEnv()
//	    // ... rest of the daemon
//	}
//
// Environment variables:
//
//   - GOMEMLIMIT: Standard Go environment variable. If set, takes precedence
//   - MEMORY_LIMIT: Container memory limit in bytes, typically from the
//     Kubernetes Downward API (resources.limits.memory)
//   - MEMORY_RATIO: Share of MEMORY_LIMIT given to the Go heap (default 0.85)
//
// # Backpressure
//
// A [Monitor] samples heap usage every CheckInterval. When usage reaches
// CriticalWaterMark it pauses, and consumers calling [Monitor.WaitIfPaused]
// stop pulling files until usage falls below HighWaterMark. Because the
// crawler's exchange is bounded, a paused consumer also suspends the
// crawlers once the buffer fills.
package memory
