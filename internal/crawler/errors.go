package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrStopping is returned by every exchange call and spawn request made
	// while a Stop is draining the pool.
	ErrStopping = errors.New("stopping")

	// ErrNoCrawlers is returned by GetFile when the pool and the buffer are
	// both empty. Consumers should treat it as "nothing available right now".
	ErrNoCrawlers = errors.New("no crawlers")

	// ErrPoolFull is returned when a subdirectory cannot be admitted as a
	// new crawler. The caller keeps the work on its own stack.
	ErrPoolFull = errors.New("pool full")

	// ErrAlreadyRunning is returned by Start while a crawl is active.
	ErrAlreadyRunning = errors.New("crawl already running")
)

// RootOpenError reports that a crawler could not open its own root.
// It is fatal to that crawler and, for the crawl root, to Start.
type RootOpenError struct {
	Path string
	Err  error
}

func (e *RootOpenError) Error() string {
	return fmt.Sprintf("open crawl root %s: %v", e.Path, e.Err)
}

func (e *RootOpenError) Unwrap() error {
	return e.Err
}
