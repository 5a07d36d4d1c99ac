/*
Package workers sizes the crawler pool in containerized environments.

runtime.NumCPU reports the host's CPUs, while GOMAXPROCS follows the
container's CPU limit since Go 1.19. Pool sizes are derived from GOMAXPROCS:

	// 2 crawlers per available CPU, at most 16
	n := workers.ForIO(16)

Configuration values are parsed with Parse, which accepts either a positive
integer or "auto":

	n, ok := workers.Parse(os.Getenv("CRAWLER_COUNT"), 64)
*/
package workers
