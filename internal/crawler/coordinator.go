package crawler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"dircrawl/internal/filesystem"
	"dircrawl/internal/logging"
	"dircrawl/internal/metrics"
)

// Stats is a consistent snapshot of coordinator state.
type Stats struct {
	Root     string `json:"root"`
	Running  bool   `json:"running"`
	Stopping bool   `json:"stopping"`
	Pass     int    `json:"pass"`
	PassID   string `json:"passId"`

	ActiveCrawlers  int `json:"activeCrawlers"`
	PeakCrawlers    int `json:"peakCrawlers"`
	CrawlerCapacity int `json:"crawlerCapacity"`

	BufferedFiles    int `json:"bufferedFiles"`
	BufferCapacity   int `json:"bufferCapacity"`
	WaitingProducers int `json:"waitingProducers"`
	WaitingConsumers int `json:"waitingConsumers"`

	FilesPublished    int64 `json:"filesPublished"`
	FilesDelivered    int64 `json:"filesDelivered"`
	DirectoriesOpened int64 `json:"directoriesOpened"`
	SubtreeErrors     int64 `json:"subtreeErrors"`
}

// Coordinator owns the exchange, the crawler pool and the crawl lifecycle.
//
// All shared state is guarded by mu. Filesystem calls and waits on the
// exchange always happen with mu released.
type Coordinator struct {
	opts Options

	// lifecycle serializes Start against the beginning of Stop, so a Stop
	// never interleaves with the root being opened.
	lifecycle sync.Mutex

	mu           sync.Mutex
	root         string
	running      bool
	stopping     bool
	drained      chan struct{}
	exchange     *exchange
	active       map[*crawler]struct{}
	peakActive   int
	restartTimer *time.Timer

	// rootRetryDelay is the minimum restart delay after a pass whose root
	// could not be opened.
	rootRetryDelay time.Duration

	pass          int
	passID        string
	passStarted   time.Time
	passPublished int64
	published     int64
	delivered     int64

	dirsOpened    atomic.Int64
	subtreeErrors atomic.Int64
}

// New creates a Coordinator. Nothing runs until Start.
func New(opts Options) *Coordinator {
	opts = opts.withDefaults()
	return &Coordinator{
		opts:           opts,
		exchange:       newExchange(opts.BufferSize),
		active:         make(map[*crawler]struct{}, opts.CrawlerCount),
		rootRetryDelay: minRootRetryDelay,
	}
}

// Options returns the effective configuration.
func (c *Coordinator) Options() Options {
	return c.opts
}

// Start opens root and launches the first crawler. A root that cannot be
// resolved or opened is reported as *RootOpenError.
func (c *Coordinator) Start(ctx context.Context, root string) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.mu.Unlock()

	canonical, err := c.opts.FS.Canonical(root)
	if err != nil {
		return &RootOpenError{Path: root, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, err := c.opts.FS.OpenDir(canonical)
	if err != nil {
		return &RootOpenError{Path: canonical, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.root = canonical
	c.running = true
	c.exchange.reset()
	c.pass = 0
	c.peakActive = 0
	metrics.CrawlerPoolCapacity.Set(float64(c.opts.CrawlerCount))

	logging.Info("Starting crawl of %s (crawlers=%d, buffer=%d, batch=%d)",
		canonical, c.opts.CrawlerCount, c.opts.BufferSize, c.opts.BatchSize)

	c.beginPassLocked()
	if err := c.spawnLocked(canonical, dir); err != nil {
		_ = dir.Close()
		c.running = false
		return err
	}
	return nil
}

// Running reports whether a crawl is active, including one that is stopping.
func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// GetFile returns the next discovered file, waiting while the buffer is
// empty. It fails with ErrStopping during shutdown and with ErrNoCrawlers
// when nothing is buffered and no crawler is running.
func (c *Coordinator) GetFile(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.stopping {
		c.mu.Unlock()
		metrics.ExchangeFailures.WithLabelValues("take", "stopping").Inc()
		return "", ErrStopping
	}
	if len(c.active) == 0 && c.exchange.buffered() == 0 {
		c.mu.Unlock()
		metrics.ExchangeFailures.WithLabelValues("take", "no_crawlers").Inc()
		return "", ErrNoCrawlers
	}

	path, w, promoted := c.exchange.take()
	if w == nil {
		c.delivered++
		if promoted {
			c.countPublishedLocked()
		}
		c.mu.Unlock()
		metrics.FilesDelivered.Inc()
		return path, nil
	}
	c.mu.Unlock()

	select {
	case r := <-w.done:
		return r.path, r.err
	case <-ctx.Done():
		c.mu.Lock()
		withdrawn := c.exchange.cancelConsumer(w)
		c.mu.Unlock()
		if withdrawn {
			metrics.ExchangeFailures.WithLabelValues("take", "canceled").Inc()
			return "", ctx.Err()
		}
		// Served while we were cancelling; keep the path.
		r := <-w.done
		return r.path, r.err
	}
}

// AddFile publishes path to the exchange, waiting while the buffer is full.
// Crawlers call it for every file they find.
func (c *Coordinator) AddFile(ctx context.Context, path string) error {
	c.mu.Lock()
	if c.stopping {
		c.mu.Unlock()
		metrics.ExchangeFailures.WithLabelValues("publish", "stopping").Inc()
		return ErrStopping
	}

	outcome, w := c.exchange.publish(path)
	if outcome != suspended {
		c.countPublishedLocked()
		if outcome == handedOff {
			c.delivered++
			metrics.FilesDelivered.Inc()
		}
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	select {
	case err := <-w.done:
		return err
	case <-ctx.Done():
		c.mu.Lock()
		withdrawn := c.exchange.cancelProducer(w)
		c.mu.Unlock()
		if withdrawn {
			metrics.ExchangeFailures.WithLabelValues("publish", "canceled").Inc()
			return ctx.Err()
		}
		return <-w.done
	}
}

// Stop terminates every crawler, fails every waiting producer and consumer
// with ErrStopping, and returns once the pool has drained. If ctx expires
// first, Stop returns ctx.Err() and the drain continues in the background.
// Concurrent calls wait on the same drain.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.lifecycle.Lock()
	c.mu.Lock()

	if !c.running {
		c.mu.Unlock()
		c.lifecycle.Unlock()
		return nil
	}

	drained := c.drained
	if !c.stopping {
		c.stopping = true
		c.drained = make(chan struct{})
		drained = c.drained

		if c.restartTimer != nil {
			c.restartTimer.Stop()
			c.restartTimer = nil
		}

		logging.Info("Stopping crawl of %s: terminating %d crawlers", c.root, len(c.active))
		for cr := range c.active {
			cr.terminate()
		}

		producers, consumers := c.exchange.failAll(ErrStopping)
		if producers > 0 {
			metrics.ExchangeFailures.WithLabelValues("publish", "stopping").Add(float64(producers))
		}
		if consumers > 0 {
			metrics.ExchangeFailures.WithLabelValues("take", "stopping").Add(float64(consumers))
		}

		if len(c.active) == 0 {
			c.finishStopLocked()
		}
	}

	c.mu.Unlock()
	c.lifecycle.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of the coordinator state.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Root:              c.root,
		Running:           c.running,
		Stopping:          c.stopping,
		Pass:              c.pass,
		PassID:            c.passID,
		ActiveCrawlers:    len(c.active),
		PeakCrawlers:      c.peakActive,
		CrawlerCapacity:   c.opts.CrawlerCount,
		BufferedFiles:     c.exchange.buffered(),
		BufferCapacity:    c.opts.BufferSize,
		WaitingProducers:  len(c.exchange.producers),
		WaitingConsumers:  len(c.exchange.consumers),
		FilesPublished:    c.published,
		FilesDelivered:    c.delivered,
		DirectoriesOpened: c.dirsOpened.Load(),
		SubtreeErrors:     c.subtreeErrors.Load(),
	}
}

// spawnFolder admits dir as a new crawler if a pool slot is free. The check
// and the commit happen under one lock acquisition, so a caller that gets
// ErrPoolFull owns the directory and nobody else will walk it.
func (c *Coordinator) spawnFolder(dir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spawnLocked(dir, nil)
}

func (c *Coordinator) spawnLocked(dir string, opened filesystem.Dir) error {
	if c.stopping {
		metrics.SpawnRejections.WithLabelValues("stopping").Inc()
		return ErrStopping
	}
	if len(c.active) >= c.opts.CrawlerCount {
		metrics.SpawnRejections.WithLabelValues("pool_full").Inc()
		return ErrPoolFull
	}

	cr := newCrawler(c, dir, c.labelLocked(dir), opened)
	c.active[cr] = struct{}{}
	if len(c.active) > c.peakActive {
		c.peakActive = len(c.active)
	}

	logging.Debug("Admitted crawler %s (%d/%d)", cr.label, len(c.active), c.opts.CrawlerCount)

	go c.runCrawler(cr)
	return nil
}

// runCrawler is the completion hook: whatever the outcome, the crawler
// leaves the pool.
func (c *Coordinator) runCrawler(cr *crawler) {
	start := time.Now()
	err := cr.run()

	var rootErr *RootOpenError
	rootFailed := errors.As(err, &rootErr)

	outcome := "completed"
	switch {
	case err != nil:
		outcome = "failed"
		c.subtreeErrors.Add(1)
		metrics.SubtreeErrors.Inc()
		logging.Warn("Crawler %s failed: %v", cr.label, err)
	case cr.terminating.Load():
		outcome = "terminated"
	}
	metrics.CrawlerRunsTotal.WithLabelValues(outcome).Inc()
	metrics.CrawlerRunDuration.Observe(time.Since(start).Seconds())

	c.removeCrawler(cr, rootFailed)
}

// removeCrawler drops cr from the pool. When the pool empties it either
// completes a pending Stop or restarts the crawl at the root. A pass that
// could not open the crawl root waits at least rootRetryDelay.
func (c *Coordinator) removeCrawler(cr *crawler, rootFailed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.active, cr)
	if len(c.active) > 0 {
		return
	}

	if c.stopping {
		c.finishStopLocked()
		return
	}

	logging.Info("Crawl pass %d (%s) complete: %s files published in %v",
		c.pass, c.passID, humanize.Comma(c.passPublished), time.Since(c.passStarted).Round(time.Millisecond))

	delay := c.opts.RestartDelay
	if rootFailed && cr.root == c.root && delay < c.rootRetryDelay {
		delay = c.rootRetryDelay
		logging.Warn("Crawl root %s unreadable, retrying in %v", c.root, delay)
	}
	if delay <= 0 {
		c.restartLocked()
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.restartTimer != timer {
			return
		}
		c.restartTimer = nil
		if !c.running || c.stopping || len(c.active) > 0 {
			return
		}
		c.restartLocked()
	})
	c.restartTimer = timer
	logging.Debug("Restarting crawl of %s in %v", c.root, delay)
}

func (c *Coordinator) restartLocked() {
	c.beginPassLocked()
	if err := c.spawnLocked(c.root, nil); err != nil {
		logging.Error("Failed to restart crawl of %s: %v", c.root, err)
	}
}

func (c *Coordinator) beginPassLocked() {
	c.pass++
	c.passID = uuid.NewString()
	c.passStarted = time.Now()
	c.passPublished = 0
	metrics.CrawlPassesTotal.Inc()
	logging.Debug("Crawl pass %d (%s) started at %s", c.pass, c.passID, c.root)
}

func (c *Coordinator) finishStopLocked() {
	if c.drained != nil {
		close(c.drained)
		c.drained = nil
	}
	c.stopping = false
	c.running = false
	logging.Info("Crawl of %s stopped after %d passes (%s files published, %s delivered)",
		c.root, c.pass, humanize.Comma(c.published), humanize.Comma(c.delivered))
}

func (c *Coordinator) countPublishedLocked() {
	c.published++
	c.passPublished++
	metrics.FilesPublished.Inc()
}

// labelLocked returns dir relative to the crawl root for log lines.
func (c *Coordinator) labelLocked(dir string) string {
	if c.root == "" {
		return dir
	}
	rel, err := filepath.Rel(c.root, dir)
	if err != nil {
		return dir
	}
	return rel
}
