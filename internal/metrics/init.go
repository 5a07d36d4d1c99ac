package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, outcome := range []string{"completed", "terminated", "failed"} {
		CrawlerRunsTotal.WithLabelValues(outcome)
	}

	for _, reason := range []string{"pool_full", "stopping"} {
		SpawnRejections.WithLabelValues(reason)
	}

	for _, side := range []string{"producer", "consumer"} {
		ExchangeWaiting.WithLabelValues(side)
	}

	for _, op := range []string{"publish", "take"} {
		for _, reason := range []string{"stopping", "no_crawlers", "canceled"} {
			ExchangeFailures.WithLabelValues(op, reason)
		}
	}

	for _, op := range []string{"stat", "open", "readdir"} {
		FilesystemOperationDuration.WithLabelValues(op)
		FilesystemOperationErrors.WithLabelValues(op)
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}
}
