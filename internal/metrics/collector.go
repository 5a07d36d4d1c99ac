package metrics

import (
	"runtime"
	"sync"
	"time"

	"dircrawl/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// StatsProviderFunc adapts a function to StatsProvider.
type StatsProviderFunc func() Stats

// GetStats implements StatsProvider.
func (f StatsProviderFunc) GetStats() Stats {
	return f()
}

// Stats holds the sampled pool and exchange state
type Stats struct {
	ActiveCrawlers   int
	PoolCapacity     int
	BufferedFiles    int
	WaitingProducers int
	WaitingConsumers int
}

// Collector periodically samples gauges from a StatsProvider
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection. Safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	collectRuntimeMetrics()

	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	CrawlerActive.Set(float64(stats.ActiveCrawlers))
	CrawlerPoolCapacity.Set(float64(stats.PoolCapacity))
	ExchangeBuffered.Set(float64(stats.BufferedFiles))
	ExchangeWaiting.WithLabelValues("producer").Set(float64(stats.WaitingProducers))
	ExchangeWaiting.WithLabelValues("consumer").Set(float64(stats.WaitingConsumers))

	logging.Debug("Metrics collected: crawlers=%d/%d, buffered=%d, waiting producers=%d consumers=%d",
		stats.ActiveCrawlers, stats.PoolCapacity, stats.BufferedFiles,
		stats.WaitingProducers, stats.WaitingConsumers)
}

func collectRuntimeMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	GoMemAllocBytes.Set(float64(m.Alloc))
	Goroutines.Set(float64(runtime.NumGoroutine()))
}
