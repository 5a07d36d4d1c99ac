package crawler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"dircrawl/internal/filesystem"
)

const testRoot = "/data"

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func mustGetFile(t *testing.T, c *Coordinator) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	path, err := c.GetFile(ctx)
	if err != nil {
		t.Fatalf("GetFile() error = %v", err)
	}
	return path
}

func mustStop(t *testing.T, c *Coordinator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func mustStart(t *testing.T, c *Coordinator, root string) {
	t.Helper()
	if err := c.Start(context.Background(), root); err != nil {
		t.Fatalf("Start(%s) error = %v", root, err)
	}
}

// checkStats reports a violated pool or exchange invariant.
func checkStats(s Stats) error {
	switch {
	case s.BufferedFiles > s.BufferCapacity:
		return fmt.Errorf("buffered %d > capacity %d", s.BufferedFiles, s.BufferCapacity)
	case s.WaitingConsumers > 0 && s.BufferedFiles > 0:
		return fmt.Errorf("%d consumers waiting with %d buffered", s.WaitingConsumers, s.BufferedFiles)
	case s.WaitingProducers > 0 && s.BufferedFiles != s.BufferCapacity:
		return fmt.Errorf("%d producers waiting with buffer %d/%d", s.WaitingProducers, s.BufferedFiles, s.BufferCapacity)
	case s.WaitingProducers > 0 && s.WaitingConsumers > 0:
		return errors.New("producers and consumers waiting at once")
	case s.ActiveCrawlers > s.CrawlerCapacity:
		return fmt.Errorf("active crawlers %d > capacity %d", s.ActiveCrawlers, s.CrawlerCapacity)
	}
	return nil
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
		want Options
	}{
		{
			name: "zero options",
			opts: Options{},
			want: Options{CrawlerCount: 6, BufferSize: 2, BatchSize: 32},
		},
		{
			name: "custom values kept",
			opts: Options{CrawlerCount: 3, BufferSize: 10, BatchSize: 4, RestartDelay: time.Second, SkipHidden: true},
			want: Options{CrawlerCount: 3, BufferSize: 10, BatchSize: 4, RestartDelay: time.Second, SkipHidden: true},
		},
		{
			name: "negative values replaced",
			opts: Options{CrawlerCount: -1, BufferSize: -5, BatchSize: -2, RestartDelay: -time.Second},
			want: Options{CrawlerCount: 6, BufferSize: 2, BatchSize: 32},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.opts).Options()
			if got.FS == nil {
				t.Error("FS should default to the OS filesystem")
			}
			got.FS = nil
			if got != tt.want {
				t.Errorf("Options() = %+v, want %+v", got, tt.want)
			}
		})
	}

	if DefaultOptions() != (Options{CrawlerCount: 6, BufferSize: 2, BatchSize: 32}) {
		t.Errorf("DefaultOptions() = %+v", DefaultOptions())
	}
}

func TestGetFileWithoutCrawlers(t *testing.T) {
	t.Parallel()

	c := New(Options{FS: newFakeFS(testRoot)})

	if _, err := c.GetFile(context.Background()); !errors.Is(err, ErrNoCrawlers) {
		t.Fatalf("GetFile() error = %v, want ErrNoCrawlers", err)
	}

	// A buffered file is still delivered with an empty pool.
	if err := c.AddFile(context.Background(), "/manual"); err != nil {
		t.Fatalf("AddFile() error = %v", err)
	}
	if got := mustGetFile(t, c); got != "/manual" {
		t.Errorf("GetFile() = %s, want /manual", got)
	}
	if _, err := c.GetFile(context.Background()); !errors.Is(err, ErrNoCrawlers) {
		t.Errorf("GetFile() error = %v, want ErrNoCrawlers", err)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Errorf("Stop() on idle coordinator error = %v", err)
	}
}

func TestStartRootOpenFailure(t *testing.T) {
	t.Parallel()

	t.Run("missing root", func(t *testing.T) {
		c := New(Options{FS: newFakeFS(testRoot)})
		err := c.Start(context.Background(), "/missing")

		var rootErr *RootOpenError
		if !errors.As(err, &rootErr) {
			t.Fatalf("Start() error = %v, want *RootOpenError", err)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Start() error = %v, want wrapped fs.ErrNotExist", err)
		}
		if c.Running() {
			t.Error("coordinator should not be running after a failed Start")
		}
	})

	t.Run("root cannot be opened", func(t *testing.T) {
		fake := newFakeFS(testRoot, "a.txt")
		fake.failOpen(testRoot, fs.ErrPermission)
		c := New(Options{FS: fake})

		err := c.Start(context.Background(), testRoot)
		var rootErr *RootOpenError
		if !errors.As(err, &rootErr) {
			t.Fatalf("Start() error = %v, want *RootOpenError", err)
		}
		if rootErr.Path != testRoot {
			t.Errorf("RootOpenError.Path = %s, want %s", rootErr.Path, testRoot)
		}
		if !errors.Is(err, fs.ErrPermission) {
			t.Errorf("Start() error = %v, want wrapped fs.ErrPermission", err)
		}
		if _, err := c.GetFile(context.Background()); !errors.Is(err, ErrNoCrawlers) {
			t.Errorf("GetFile() after failed Start error = %v, want ErrNoCrawlers", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		c := New(Options{FS: newFakeFS(testRoot)})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := c.Start(ctx, testRoot); !errors.Is(err, context.Canceled) {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	})
}

func TestStartRejectsSecondStart(t *testing.T) {
	t.Parallel()

	// One file and a one-slot buffer: the second pass blocks publishing,
	// which keeps exactly one crawler in the pool.
	c := New(Options{CrawlerCount: 1, BufferSize: 1, FS: newFakeFS(testRoot, "a.txt")})
	mustStart(t, c, testRoot)
	waitFor(t, "suspended producer", func() bool { return c.Stats().WaitingProducers == 1 })

	if err := c.Start(context.Background(), testRoot); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
	if err := c.spawnFolder(testRoot); !errors.Is(err, ErrPoolFull) {
		t.Errorf("spawnFolder() with a full pool error = %v, want ErrPoolFull", err)
	}

	mustStop(t, c)
}

func TestScenarioFileBeforeSubdirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	canonical, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatal(err)
	}

	c := New(Options{CrawlerCount: 1, BufferSize: 1})
	mustStart(t, c, root)
	defer mustStop(t, c)

	want := []string{
		filepath.Join(canonical, "a.txt"),
		filepath.Join(canonical, "sub", "b.txt"),
	}
	for i, w := range want {
		if got := mustGetFile(t, c); got != w {
			t.Errorf("GetFile() #%d = %s, want %s", i+1, got, w)
		}
	}
}

func TestEntriesWithinBatchAreNameOrdered(t *testing.T) {
	t.Parallel()

	fake := newFakeFS(testRoot, "zeta", "alpha", "mid")
	c := New(Options{CrawlerCount: 1, BufferSize: 8, RestartDelay: time.Hour, FS: fake})
	mustStart(t, c, testRoot)
	defer mustStop(t, c)

	for _, want := range []string{"/data/alpha", "/data/mid", "/data/zeta"} {
		if got := mustGetFile(t, c); got != want {
			t.Errorf("GetFile() = %s, want %s", got, want)
		}
	}
}

func TestBackpressure(t *testing.T) {
	t.Parallel()

	fake := newFakeFS(testRoot, "f1", "f2", "f3")
	c := New(Options{CrawlerCount: 1, BufferSize: 2, RestartDelay: time.Hour, FS: fake})
	mustStart(t, c, testRoot)
	defer mustStop(t, c)

	waitFor(t, "full buffer with a suspended producer", func() bool {
		s := c.Stats()
		return s.BufferedFiles == 2 && s.WaitingProducers == 1
	})

	time.Sleep(20 * time.Millisecond)
	if s := c.Stats(); s.FilesPublished != 2 {
		t.Fatalf("FilesPublished = %d while no consumer pulls, want 2", s.FilesPublished)
	}

	if got := mustGetFile(t, c); got != "/data/f1" {
		t.Errorf("GetFile() = %s, want /data/f1", got)
	}
	waitFor(t, "third publish to complete", func() bool { return c.Stats().FilesPublished == 3 })

	if err := checkStats(c.Stats()); err != nil {
		t.Error(err)
	}

	// The pass drains and the restart is delayed, so the pool is empty.
	waitFor(t, "pool to drain", func() bool { return c.Stats().ActiveCrawlers == 0 })
	for _, want := range []string{"/data/f2", "/data/f3"} {
		if got := mustGetFile(t, c); got != want {
			t.Errorf("GetFile() = %s, want %s", got, want)
		}
	}
	if _, err := c.GetFile(context.Background()); !errors.Is(err, ErrNoCrawlers) {
		t.Errorf("GetFile() during restart delay error = %v, want ErrNoCrawlers", err)
	}
}

func TestConsumersServedFIFO(t *testing.T) {
	t.Parallel()

	fake := newFakeFS(testRoot, "slow/x.txt")
	gate := fake.gate("/data/slow")
	c := New(Options{CrawlerCount: 1, BufferSize: 1, RestartDelay: time.Hour, FS: fake})
	mustStart(t, c, testRoot)

	const consumers = 3
	results := make([]string, consumers)
	var wg sync.WaitGroup
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			path, err := c.GetFile(ctx)
			if err != nil {
				results[i] = "error: " + err.Error()
				return
			}
			results[i] = path
		}(i)
		waitFor(t, fmt.Sprintf("consumer %d to queue", i), func() bool {
			return c.Stats().WaitingConsumers == i+1
		})
	}

	for i := 1; i <= consumers; i++ {
		if err := c.AddFile(context.Background(), fmt.Sprintf("/ext/%d", i)); err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}
	}
	wg.Wait()

	for i, got := range results {
		if want := fmt.Sprintf("/ext/%d", i+1); got != want {
			t.Errorf("consumer %d got %s, want %s", i, got, want)
		}
	}

	close(gate)
	mustStop(t, c)
}

func TestDepthFirstCompletion(t *testing.T) {
	t.Parallel()

	fake := newFakeFS(testRoot,
		"top.txt",
		"A/a1", "A/a2", "A/deep/a3",
		"B/b1", "B/b2",
	)
	c := New(Options{CrawlerCount: 1, BufferSize: 16, RestartDelay: time.Hour, FS: fake})

	type openEvent struct {
		path      string
		published int64
	}
	var (
		mu     sync.Mutex
		events []openEvent
	)
	fake.onOpen = func(path string) {
		s := c.Stats()
		mu.Lock()
		events = append(events, openEvent{path: path, published: s.FilesPublished})
		mu.Unlock()
	}

	mustStart(t, c, testRoot)
	defer mustStop(t, c)

	waitFor(t, "first pass to finish", func() bool {
		s := c.Stats()
		return s.FilesPublished == 6 && s.ActiveCrawlers == 0
	})

	mu.Lock()
	defer mu.Unlock()

	var order []string
	publishedAt := map[string]int64{}
	for _, e := range events {
		if e.path == testRoot {
			continue
		}
		order = append(order, e.path)
		publishedAt[e.path] = e.published
	}
	if len(order) != 3 {
		t.Fatalf("opened %v, want A, A/deep and B once each", order)
	}

	first, second := "/data/A", "/data/B"
	if slices.Index(order, "/data/B") < slices.Index(order, "/data/A") {
		first, second = second, first
	}
	filesInFirst := int64(len(fake.filesUnder(first)))

	if got, want := publishedAt[second], 1+filesInFirst; got != want {
		t.Errorf("files published before opening %s = %d, want %d (top.txt plus all of %s)",
			second, got, want, first)
	}
	if first == "/data/A" && slices.Index(order, "/data/A/deep") > slices.Index(order, second) {
		t.Errorf("subtree of %s not finished before %s was opened: %v", first, second, order)
	}
}

func TestPoolGrowth(t *testing.T) {
	t.Parallel()

	fake := newFakeFS(testRoot, "d1/f", "d2/f", "d3/f", "d4/f", "d5/f")
	var gates []chan struct{}
	for i := 1; i <= 5; i++ {
		gates = append(gates, fake.gate(fmt.Sprintf("/data/d%d", i)))
	}

	c := New(Options{CrawlerCount: 3, BufferSize: 8, RestartDelay: time.Hour, FS: fake})
	mustStart(t, c, testRoot)
	defer mustStop(t, c)

	waitFor(t, "pool to fill", func() bool { return c.Stats().ActiveCrawlers == 3 })
	time.Sleep(20 * time.Millisecond)
	if s := c.Stats(); s.ActiveCrawlers != 3 || s.PeakCrawlers != 3 {
		t.Errorf("active=%d peak=%d while subdirectories are pending, want 3 and 3", s.ActiveCrawlers, s.PeakCrawlers)
	}

	for _, g := range gates {
		close(g)
	}
	waitFor(t, "pass to finish", func() bool {
		s := c.Stats()
		return s.FilesPublished == 5 && s.ActiveCrawlers == 0
	})

	s := c.Stats()
	if s.PeakCrawlers != 3 {
		t.Errorf("PeakCrawlers = %d, want 3", s.PeakCrawlers)
	}

	// Admission is decided once, so no subdirectory is walked twice.
	opened := fake.openedPaths()
	sort.Strings(opened)
	want := []string{"/data", "/data/d1", "/data/d2", "/data/d3", "/data/d4", "/data/d5"}
	if !slices.Equal(opened, want) {
		t.Errorf("opened %v, want %v", opened, want)
	}
}

func TestStopFailsWaitersAndWaitsForCrawlers(t *testing.T) {
	t.Parallel()

	fake := newFakeFS(testRoot, "slow/x.txt")
	gate := fake.gate("/data/slow")
	reached := make(chan struct{})
	var once sync.Once
	fake.onOpen = func(path string) {
		if path == "/data/slow" {
			once.Do(func() { close(reached) })
		}
	}

	c := New(Options{CrawlerCount: 1, BufferSize: 1, FS: fake})
	mustStart(t, c, testRoot)
	<-reached

	consumerErr := make(chan error, 1)
	go func() {
		_, err := c.GetFile(context.Background())
		consumerErr <- err
	}()
	waitFor(t, "consumer to queue", func() bool { return c.Stats().WaitingConsumers == 1 })

	stopDone := make(chan error, 1)
	go func() {
		stopDone <- c.Stop(context.Background())
	}()
	waitFor(t, "stop to begin", func() bool { return c.Stats().Stopping })

	select {
	case err := <-consumerErr:
		if !errors.Is(err, ErrStopping) {
			t.Errorf("waiting consumer error = %v, want ErrStopping", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("waiting consumer was not failed by Stop")
	}

	if _, err := c.GetFile(context.Background()); !errors.Is(err, ErrStopping) {
		t.Errorf("GetFile() during stop error = %v, want ErrStopping", err)
	}
	if err := c.AddFile(context.Background(), "/late"); !errors.Is(err, ErrStopping) {
		t.Errorf("AddFile() during stop error = %v, want ErrStopping", err)
	}
	if err := c.spawnFolder("/data/other"); !errors.Is(err, ErrStopping) {
		t.Errorf("spawnFolder() during stop error = %v, want ErrStopping", err)
	}

	// The crawler is stuck in an open call, so the drain cannot finish yet.
	select {
	case err := <-stopDone:
		t.Fatalf("Stop returned %v before the crawler terminated", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(gate)
	select {
	case err := <-stopDone:
		if err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the crawler was released")
	}

	s := c.Stats()
	if s.Running || s.Stopping || s.ActiveCrawlers != 0 {
		t.Errorf("after Stop: running=%v stopping=%v active=%d", s.Running, s.Stopping, s.ActiveCrawlers)
	}
	if s.FilesPublished != 0 {
		t.Errorf("terminated crawler published %d files after stop", s.FilesPublished)
	}
	if n := fake.openHandles(); n != 0 {
		t.Errorf("%d directory handles left open", n)
	}
}

func TestStopReleasesSuspendedProducer(t *testing.T) {
	t.Parallel()

	fake := newFakeFS(testRoot, "a", "b", "c")
	c := New(Options{CrawlerCount: 1, BufferSize: 1, FS: fake})
	mustStart(t, c, testRoot)
	waitFor(t, "suspended producer", func() bool { return c.Stats().WaitingProducers == 1 })

	mustStop(t, c)

	s := c.Stats()
	if s.WaitingProducers != 0 || s.ActiveCrawlers != 0 || s.Running {
		t.Errorf("after Stop: producers=%d active=%d running=%v", s.WaitingProducers, s.ActiveCrawlers, s.Running)
	}
	if n := fake.openHandles(); n != 0 {
		t.Errorf("%d directory handles left open", n)
	}

	// Stop is idempotent and the coordinator can be started again.
	mustStop(t, c)
	mustStart(t, c, testRoot)
	if got := mustGetFile(t, c); got != "/data/a" {
		t.Errorf("GetFile() after restart = %s, want /data/a", got)
	}
	mustStop(t, c)
}

func TestConcurrentStopsShareDrain(t *testing.T) {
	t.Parallel()

	fake := newFakeFS(testRoot, "a", "b")
	c := New(Options{CrawlerCount: 2, BufferSize: 1, FS: fake})
	mustStart(t, c, testRoot)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			errs <- c.Stop(ctx)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	}
	if c.Running() {
		t.Error("coordinator still running after Stop")
	}
}

func TestStopTimeout(t *testing.T) {
	t.Parallel()

	fake := newFakeFS(testRoot, "slow/x")
	gate := fake.gate("/data/slow")
	c := New(Options{CrawlerCount: 1, FS: fake})
	mustStart(t, c, testRoot)
	waitFor(t, "crawler to reach slow directory", func() bool {
		return c.Stats().DirectoriesOpened == 1 && c.Stats().ActiveCrawlers == 1
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop() error = %v, want context.DeadlineExceeded", err)
	}
	if !c.Stats().Stopping {
		t.Error("drain should continue after Stop gives up waiting")
	}
	if err := c.Start(context.Background(), testRoot); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Start() while draining error = %v, want ErrAlreadyRunning", err)
	}

	close(gate)
	mustStop(t, c)
}

func TestContinuousRestart(t *testing.T) {
	t.Parallel()

	fake := newFakeFS(testRoot, "a", "b", "sub/c", "sub/deeper/d")
	c := New(Options{CrawlerCount: 2, BufferSize: 2, FS: fake})
	mustStart(t, c, testRoot)
	defer mustStop(t, c)

	want := fake.filesUnder(testRoot)
	for pass := 1; pass <= 2; pass++ {
		var got []string
		for range want {
			got = append(got, mustGetFile(t, c))
		}
		sort.Strings(got)
		if !slices.Equal(got, want) {
			t.Errorf("pass %d delivered %v, want %v", pass, got, want)
		}
	}

	if s := c.Stats(); s.Pass < 2 {
		t.Errorf("Pass = %d, want at least 2", s.Pass)
	}
}

func TestRestartDelayThenRestart(t *testing.T) {
	t.Parallel()

	fake := newFakeFS(testRoot, "only")
	c := New(Options{CrawlerCount: 1, BufferSize: 4, RestartDelay: 30 * time.Millisecond, FS: fake})
	mustStart(t, c, testRoot)
	defer mustStop(t, c)

	first := c.Stats().PassID
	waitFor(t, "second pass", func() bool { return c.Stats().Pass >= 2 })
	if second := c.Stats().PassID; second == first || second == "" {
		t.Errorf("pass IDs %q and %q should differ", first, second)
	}
}

func TestStopCancelsPendingRestart(t *testing.T) {
	t.Parallel()

	fake := newFakeFS(testRoot, "only")
	c := New(Options{CrawlerCount: 1, BufferSize: 4, RestartDelay: 50 * time.Millisecond, FS: fake})
	mustStart(t, c, testRoot)
	waitFor(t, "pool to drain", func() bool { return c.Stats().ActiveCrawlers == 0 })

	mustStop(t, c)
	time.Sleep(100 * time.Millisecond)

	s := c.Stats()
	if s.Pass != 1 || s.ActiveCrawlers != 0 || s.Running {
		t.Errorf("after Stop: pass=%d active=%d running=%v, want 1, 0, false", s.Pass, s.ActiveCrawlers, s.Running)
	}
}

func countOpens(fake *fakeFS, path string) int {
	n := 0
	for _, p := range fake.openedPaths() {
		if p == path {
			n++
		}
	}
	return n
}

// failRootOpens makes root opens numbered from through to-1 fail. Open 1 is
// the one made by Start.
func failRootOpens(fake *fakeFS, from, to int) {
	var opens int
	fake.onOpen = func(path string) {
		if path != testRoot {
			return
		}
		opens++
		switch opens {
		case from:
			fake.failOpen(testRoot, fs.ErrPermission)
		case to:
			fake.failOpen(testRoot, nil)
		}
	}
}

func TestUnreadableRootDelaysRestart(t *testing.T) {
	t.Parallel()

	fake := newFakeFS(testRoot, "only")
	failRootOpens(fake, 2, 0)
	c := New(Options{CrawlerCount: 1, BufferSize: 4, FS: fake})
	c.rootRetryDelay = time.Hour
	mustStart(t, c, testRoot)
	defer mustStop(t, c)

	waitFor(t, "failed restart", func() bool {
		s := c.Stats()
		return s.Pass == 2 && s.ActiveCrawlers == 0
	})
	time.Sleep(50 * time.Millisecond)

	s := c.Stats()
	if s.Pass != 2 {
		t.Errorf("Pass = %d, want 2 while the root retry is pending", s.Pass)
	}
	if s.SubtreeErrors != 1 {
		t.Errorf("SubtreeErrors = %d, want 1", s.SubtreeErrors)
	}
	if got := countOpens(fake, testRoot); got != 2 {
		t.Errorf("root opened %d times, want 2", got)
	}
	if !s.Running {
		t.Error("an unreadable root must not stop the crawl")
	}
}

func TestUnreadableRootRecovers(t *testing.T) {
	t.Parallel()

	fake := newFakeFS(testRoot, "only")
	failRootOpens(fake, 2, 3)
	c := New(Options{CrawlerCount: 1, BufferSize: 4, FS: fake})
	c.rootRetryDelay = 20 * time.Millisecond
	mustStart(t, c, testRoot)
	defer mustStop(t, c)

	for i := 0; i < 2; i++ {
		if got := mustGetFile(t, c); got != "/data/only" {
			t.Fatalf("GetFile() #%d = %q, want /data/only", i+1, got)
		}
	}

	s := c.Stats()
	if s.Pass < 3 || s.SubtreeErrors != 1 {
		t.Errorf("pass=%d subtreeErrors=%d, want >= 3 and 1", s.Pass, s.SubtreeErrors)
	}
}

func TestSubtreeFailuresAreSkipped(t *testing.T) {
	t.Parallel()

	fake := newFakeFS(testRoot, "top", "good/a", "bad/b", "broken/c")
	fake.failOpen("/data/bad", fs.ErrPermission)
	fake.failRead("/data/broken", errors.New("input/output error"))

	c := New(Options{CrawlerCount: 2, BufferSize: 16, RestartDelay: time.Hour, FS: fake})
	mustStart(t, c, testRoot)
	defer mustStop(t, c)

	waitFor(t, "pass to finish", func() bool {
		s := c.Stats()
		return s.Pass == 1 && s.ActiveCrawlers == 0
	})

	s := c.Stats()
	if s.FilesPublished != 3 {
		t.Errorf("FilesPublished = %d, want 3 (top, good/a, broken/c)", s.FilesPublished)
	}
	if s.SubtreeErrors != 2 {
		t.Errorf("SubtreeErrors = %d, want 2", s.SubtreeErrors)
	}
	if !s.Running {
		t.Error("subtree failures must not stop the crawl")
	}

	var got []string
	for i := 0; i < 3; i++ {
		got = append(got, mustGetFile(t, c))
	}
	sort.Strings(got)
	want := []string{"/data/broken/c", "/data/good/a", "/data/top"}
	if !slices.Equal(got, want) {
		t.Errorf("delivered %v, want %v", got, want)
	}
}

func TestSkipHiddenAndOtherEntries(t *testing.T) {
	t.Parallel()

	fake := newFakeFS(testRoot, ".hidden/x", ".dotfile", "visible", "link@")
	c := New(Options{CrawlerCount: 2, BufferSize: 8, RestartDelay: time.Hour, SkipHidden: true, FS: fake})
	mustStart(t, c, testRoot)
	defer mustStop(t, c)

	waitFor(t, "pass to finish", func() bool { return c.Stats().ActiveCrawlers == 0 })

	if got := mustGetFile(t, c); got != "/data/visible" {
		t.Errorf("GetFile() = %s, want /data/visible", got)
	}
	if s := c.Stats(); s.FilesPublished != 1 {
		t.Errorf("FilesPublished = %d, want 1", s.FilesPublished)
	}
	if slices.Contains(fake.openedPaths(), "/data/.hidden") {
		t.Error("hidden directory was opened")
	}
}

func TestGetFileContextCanceled(t *testing.T) {
	t.Parallel()

	fake := newFakeFS(testRoot, "slow/x")
	gate := fake.gate("/data/slow")
	c := New(Options{CrawlerCount: 1, FS: fake})
	mustStart(t, c, testRoot)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.GetFile(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("GetFile() error = %v, want context.DeadlineExceeded", err)
	}
	if s := c.Stats(); s.WaitingConsumers != 0 {
		t.Errorf("WaitingConsumers = %d after cancel, want 0", s.WaitingConsumers)
	}

	close(gate)
	mustStop(t, c)
}

func TestAddFileContextCanceled(t *testing.T) {
	t.Parallel()

	c := New(Options{BufferSize: 1, FS: newFakeFS(testRoot)})
	if err := c.AddFile(context.Background(), "/a"); err != nil {
		t.Fatalf("AddFile() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.AddFile(ctx, "/b"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("AddFile() on full buffer error = %v, want context.DeadlineExceeded", err)
	}

	s := c.Stats()
	if s.WaitingProducers != 0 || s.BufferedFiles != 1 || s.FilesPublished != 1 {
		t.Errorf("after cancel: producers=%d buffered=%d published=%d, want 0, 1, 1",
			s.WaitingProducers, s.BufferedFiles, s.FilesPublished)
	}
}

func TestInvariantsUnderLoad(t *testing.T) {
	t.Parallel()

	var paths []string
	for d := 0; d < 6; d++ {
		for s := 0; s < 4; s++ {
			for f := 0; f < 6; f++ {
				paths = append(paths, fmt.Sprintf("d%d/s%d/f%d", d, s, f))
			}
		}
		paths = append(paths, fmt.Sprintf("d%d/top", d))
	}
	fake := newFakeFS(testRoot, paths...)
	want := fake.filesUnder(testRoot)

	c := New(Options{CrawlerCount: 4, BufferSize: 3, BatchSize: 4, FS: fake})
	mustStart(t, c, testRoot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu        sync.Mutex
		seen      = map[string]bool{}
		violation error
		wg        sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			if err := checkStats(c.Stats()); err != nil {
				mu.Lock()
				if violation == nil {
					violation = err
				}
				mu.Unlock()
			}
			time.Sleep(100 * time.Microsecond)
		}
	}()

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				path, err := c.GetFile(ctx)
				if err != nil {
					if ctx.Err() == nil && errors.Is(err, ErrNoCrawlers) {
						continue
					}
					return
				}
				mu.Lock()
				seen[path] = true
				done := len(seen) == len(want)
				mu.Unlock()
				if done {
					cancel()
				}
			}
		}()
	}

	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
		t.Error("timed out before every file was delivered")
		cancel()
	}
	wg.Wait()
	mustStop(t, c)

	mu.Lock()
	defer mu.Unlock()
	if violation != nil {
		t.Errorf("invariant violated: %v", violation)
	}
	if len(seen) != len(want) {
		t.Errorf("delivered %d distinct files, want %d", len(seen), len(want))
	}
	for _, p := range want {
		if !seen[p] {
			t.Errorf("file %s never delivered", p)
			break
		}
	}
	if s := c.Stats(); s.PeakCrawlers > 4 {
		t.Errorf("PeakCrawlers = %d, want <= 4", s.PeakCrawlers)
	}
}

var _ filesystem.FS = (*fakeFS)(nil)
