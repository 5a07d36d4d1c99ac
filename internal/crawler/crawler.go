package crawler

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"dircrawl/internal/filesystem"
	"dircrawl/internal/logging"
	"dircrawl/internal/metrics"
)

// crawler walks one subtree. Files go to the coordinator's exchange;
// subdirectories are offered to the coordinator as new crawlers and kept
// on the local stack when the pool is full.
//
// The stack is owned by the crawler's goroutine. terminate may be called
// from any goroutine; it only flips the flag and cancels ctx, and the loop
// drops the stack at its next check.
type crawler struct {
	coord *Coordinator
	fs    filesystem.FS

	root  string
	label string

	// opened is a handle for root that was already opened by Start.
	opened filesystem.Dir

	stack      []string
	batchSize  int
	skipHidden bool

	ctx         context.Context
	cancel      context.CancelFunc
	terminating atomic.Bool
}

func newCrawler(coord *Coordinator, root, label string, opened filesystem.Dir) *crawler {
	ctx, cancel := context.WithCancel(context.Background())
	return &crawler{
		coord:      coord,
		fs:         coord.opts.FS,
		root:       root,
		label:      label,
		opened:     opened,
		batchSize:  coord.opts.BatchSize,
		skipHidden: coord.opts.SkipHidden,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// terminate asks the crawler to stop at its next suspension point.
func (cr *crawler) terminate() {
	if cr.terminating.CompareAndSwap(false, true) {
		cr.cancel()
	}
}

// run walks the subtree until the stack empties or the crawler is
// terminated. Only a failure to open the crawler's own root is returned.
func (cr *crawler) run() error {
	defer cr.cancel()
	defer func() {
		if cr.opened != nil {
			_ = cr.opened.Close()
			cr.opened = nil
		}
	}()

	cr.stack = append(cr.stack[:0], cr.root)
	first := true

	for len(cr.stack) > 0 {
		if cr.terminating.Load() {
			cr.stack = nil
			return nil
		}

		var dir string
		dir, cr.stack = popBack(cr.stack)

		handle, err := cr.openDir(dir)
		if err != nil {
			if first {
				return &RootOpenError{Path: dir, Err: err}
			}
			cr.coord.subtreeErrors.Add(1)
			metrics.SubtreeErrors.Inc()
			logging.Warn("Crawler %s: skipping %s: %v", cr.label, dir, err)
			continue
		}
		first = false

		cr.walkDir(dir, handle)
		if err := handle.Close(); err != nil {
			logging.Debug("Crawler %s: close %s: %v", cr.label, dir, err)
		}
	}

	return nil
}

func (cr *crawler) openDir(dir string) (filesystem.Dir, error) {
	var (
		handle filesystem.Dir
		err    error
	)
	if cr.opened != nil && dir == cr.root {
		handle, cr.opened = cr.opened, nil
	} else {
		handle, err = cr.fs.OpenDir(dir)
		if err != nil {
			return nil, err
		}
	}

	cr.coord.dirsOpened.Add(1)
	metrics.DirectoriesOpened.Inc()
	logging.Debug("Crawler %s: listing %s", cr.label, dir)
	return handle, nil
}

// walkDir reads dir in batches. A read failure abandons the rest of the
// directory; the crawler carries on with its stack.
func (cr *crawler) walkDir(dir string, handle filesystem.Dir) {
	for {
		if cr.terminating.Load() {
			return
		}

		entries, err := handle.ReadEntries(cr.batchSize)
		if cr.terminating.Load() {
			return
		}

		if len(entries) > 0 && !cr.processBatch(dir, entries) {
			return
		}

		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			cr.coord.subtreeErrors.Add(1)
			metrics.SubtreeErrors.Inc()
			logging.Warn("Crawler %s: abandoning rest of %s: %v", cr.label, dir, err)
			return
		}
	}
}

// processBatch publishes files and places subdirectories. It returns false
// when the crawler must stop.
func (cr *crawler) processBatch(dir string, entries []filesystem.Entry) bool {
	slices.SortFunc(entries, func(a, b filesystem.Entry) int {
		return strings.Compare(a.Name, b.Name)
	})

	for _, entry := range entries {
		if cr.terminating.Load() {
			return false
		}

		if cr.skipHidden && strings.HasPrefix(entry.Name, ".") {
			metrics.EntriesIgnored.Inc()
			continue
		}

		path := filepath.Join(dir, entry.Name)

		switch entry.Kind {
		case filesystem.KindFile:
			if err := cr.coord.AddFile(cr.ctx, path); err != nil {
				logging.Debug("Crawler %s: publish %s: %v", cr.label, path, err)
				return false
			}

		case filesystem.KindDir:
			err := cr.coord.spawnFolder(path)
			switch {
			case err == nil:
			case errors.Is(err, ErrPoolFull):
				cr.stack = append(cr.stack, path)
			default:
				logging.Debug("Crawler %s: dropping %s: %v", cr.label, path, err)
				return false
			}

		default:
			metrics.EntriesIgnored.Inc()
			logging.Debug("Crawler %s: ignoring %s (%s)", cr.label, path, entry.Kind)
		}
	}

	return true
}

func popBack[T any](s []T) (T, []T) {
	var zero T
	last := len(s) - 1
	v := s[last]
	s[last] = zero
	return v, s[:last]
}
