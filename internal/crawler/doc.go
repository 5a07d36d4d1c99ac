// Package crawler implements a concurrency-bounded, self-restarting
// directory crawler.
//
// A Coordinator owns a pool of crawlers, each walking one subtree, and a
// bounded exchange through which discovered file paths reach consumers:
//
//	coord := crawler.New(crawler.Options{CrawlerCount: 6, BufferSize: 2, BatchSize: 32})
//	if err := coord.Start(ctx, "/srv/data"); err != nil {
//	    return err // *crawler.RootOpenError when the root cannot be opened
//	}
//	for {
//	    path, err := coord.GetFile(ctx)
//	    if errors.Is(err, crawler.ErrNoCrawlers) {
//	        continue // nothing available right now
//	    }
//	    if err != nil {
//	        break
//	    }
//	    ingest(path)
//	}
//	_ = coord.Stop(ctx)
//
// # Pool
//
// When a crawler finds a subdirectory it asks the coordinator to admit it as
// a new crawler. If the pool is full the crawler keeps the directory on its
// own LIFO stack, so each crawler drives a subtree to completion before
// returning to older siblings. A crawler leaves the pool when its stack is
// empty. When the pool empties the crawl restarts at the root, after
// Options.RestartDelay, until Stop is called.
//
// # Exchange
//
// The exchange holds at most Options.BufferSize paths. Publishing to a full
// buffer and taking from an empty one both suspend the caller in a FIFO
// wait-list. Stop fails every waiter with ErrStopping.
//
// # Errors
//
// Only a failure to open a crawler's own root is fatal to it; Start returns
// it for the crawl root. Any other directory that cannot be opened or read
// is logged, counted and skipped.
package crawler
