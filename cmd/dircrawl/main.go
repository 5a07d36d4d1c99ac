package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"dircrawl/internal/crawler"
	"dircrawl/internal/filesystem"
	"dircrawl/internal/handlers"
	"dircrawl/internal/logging"
	"dircrawl/internal/memory"
	"dircrawl/internal/metrics"
	"dircrawl/internal/startup"
)

const (
	metricsInterval = 15 * time.Second
	idlePause       = 250 * time.Millisecond
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	listener, err := net.Listen("tcp", ":"+config.Port)
	if err != nil {
		startup.LogFatal("Failed to listen on port %s: %v", config.Port, err)
	}

	if err := run(ctx, config, listener, startTime); err != nil {
		startup.LogFatal("%v", err)
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())
	cancel()
}

// run crawls config.CrawlRoot, feeds the consumers and serves HTTP on
// listener until ctx ends, then shuts everything down.
func run(ctx context.Context, config *startup.Config, listener net.Listener, startTime time.Time) error {
	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		filesystem.SetObserver(metrics.NewFilesystemObserver())
	}

	startup.LogCrawlerInit(config)
	crawlStart := time.Now()
	coord := crawler.New(config.CrawlerOptions())
	if err := coord.Start(ctx, config.CrawlRoot); err != nil {
		return fmt.Errorf("failed to start crawl: %w", err)
	}
	startup.LogCrawlerStarted(time.Since(crawlStart))

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()
	defer monitor.Stop()

	if config.MetricsEnabled {
		collector := metrics.NewCollector(metrics.StatsProviderFunc(func() metrics.Stats {
			return toMetricsStats(coord.Stats())
		}), metricsInterval)
		collector.Start()
		defer collector.Stop()
	}

	h := handlers.New(coord)
	router := handlers.NewRouter(h, handlers.RouterConfig{MetricsEnabled: config.MetricsEnabled})
	startup.LogHTTPRoutes(router)

	// No WriteTimeout: /api/next long-polls.
	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	for i := 1; i <= config.Consumers; i++ {
		i := i
		g.Go(func() error {
			return consume(gctx, coord, monitor, i)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return shutdown(coord, srv, config.ShutdownTimeout)
	})

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	err := g.Wait()
	startup.LogShutdownComplete()
	return err
}

// fileSource is the consumer side of the coordinator.
type fileSource interface {
	GetFile(ctx context.Context) (string, error)
}

// pauser holds consumers back under memory pressure.
type pauser interface {
	WaitIfPaused(ctx context.Context) bool
}

// consume pulls files until the crawl stops or ctx ends.
func consume(ctx context.Context, files fileSource, mem pauser, id int) error {
	var count int64
	defer func() {
		logging.Info("Consumer %d finished after %s files", id, humanize.Comma(count))
	}()

	for {
		if !mem.WaitIfPaused(ctx) {
			return nil
		}

		path, err := files.GetFile(ctx)
		switch {
		case err == nil:
			count++
			logging.Debug("Consumer %d: %s", id, path)

		case errors.Is(err, crawler.ErrNoCrawlers):
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(idlePause):
			}

		case errors.Is(err, crawler.ErrStopping), ctx.Err() != nil:
			return nil

		default:
			return fmt.Errorf("consumer %d: %w", id, err)
		}
	}
}

// shutdown stops the crawl first so waiting consumers are released, then
// the HTTP server. Both share one timeout.
func shutdown(coord *crawler.Coordinator, srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error

	startup.LogShutdownStep("Stopping crawl")
	if err := coord.Stop(ctx); err != nil {
		logging.Warn("Crawl stop error: %v", err)
		errs = append(errs, fmt.Errorf("stop crawl: %w", err))
	} else {
		startup.LogShutdownStepComplete("Crawl stopped")
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
		errs = append(errs, fmt.Errorf("shutdown server: %w", err))
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	return errors.Join(errs...)
}

func toMetricsStats(s crawler.Stats) metrics.Stats {
	return metrics.Stats{
		ActiveCrawlers:   s.ActiveCrawlers,
		PoolCapacity:     s.CrawlerCapacity,
		BufferedFiles:    s.BufferedFiles,
		WaitingProducers: s.WaitingProducers,
		WaitingConsumers: s.WaitingConsumers,
	}
}
