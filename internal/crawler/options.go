package crawler

import (
	"time"

	"dircrawl/internal/filesystem"
)

// Defaults for Options fields left at zero.
const (
	DefaultCrawlerCount = 6
	DefaultBufferSize   = 2
	DefaultBatchSize    = 32
)

// minRootRetryDelay bounds restarts while the crawl root cannot be opened.
const minRootRetryDelay = time.Second

// Options configures a Coordinator. Zero or negative sizes use the defaults.
type Options struct {
	// CrawlerCount is the maximum number of concurrent crawlers.
	CrawlerCount int
	// BufferSize is the maximum number of discovered files held for consumers.
	BufferSize int
	// BatchSize is the number of directory entries read per listing call.
	BatchSize int
	// RestartDelay postpones the restart at the root after a pass drains.
	// Zero restarts immediately, except after a pass whose root could not
	// be opened, which waits at least one second.
	RestartDelay time.Duration
	// SkipHidden ignores entries whose name starts with ".".
	SkipHidden bool
	// FS is the host filesystem. Nil uses filesystem.NewOS().
	FS filesystem.FS
}

// DefaultOptions returns the default crawler configuration
func DefaultOptions() Options {
	return Options{
		CrawlerCount: DefaultCrawlerCount,
		BufferSize:   DefaultBufferSize,
		BatchSize:    DefaultBatchSize,
	}
}

func (o Options) withDefaults() Options {
	if o.CrawlerCount <= 0 {
		o.CrawlerCount = DefaultCrawlerCount
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.RestartDelay < 0 {
		o.RestartDelay = 0
	}
	if o.FS == nil {
		o.FS = filesystem.NewOS()
	}
	return o
}
