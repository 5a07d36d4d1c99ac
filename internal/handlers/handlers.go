package handlers

import (
	"context"
	"time"

	"dircrawl/internal/crawler"
)

// Crawl is the part of *crawler.Coordinator the HTTP surface needs.
type Crawl interface {
	Running() bool
	Stats() crawler.Stats
	GetFile(ctx context.Context) (string, error)
}

// Handlers serves the daemon's HTTP API.
type Handlers struct {
	crawl       Crawl
	startTime   time.Time
	nextTimeout time.Duration
}

// DefaultNextTimeout bounds how long /api/next waits for a file.
const DefaultNextTimeout = 30 * time.Second

func New(crawl Crawl) *Handlers {
	return &Handlers{
		crawl:       crawl,
		startTime:   time.Now(),
		nextTimeout: DefaultNextTimeout,
	}
}
