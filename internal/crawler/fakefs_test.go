package crawler

import (
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"dircrawl/internal/filesystem"
)

// fakeFS is an in-memory filesystem.FS with hooks for concurrency tests.
type fakeFS struct {
	mu      sync.Mutex
	dirs    map[string][]filesystem.Entry
	openErr map[string]error
	readErr map[string]error
	gates   map[string]chan struct{}
	opens   []string
	handles int
	onOpen  func(path string)
}

// newFakeFS builds a tree under root. Paths ending in "/" are empty
// directories, "@" suffixes make a symlink-like entry, everything else is a
// file.
func newFakeFS(root string, paths ...string) *fakeFS {
	f := &fakeFS{
		dirs:    map[string][]filesystem.Entry{root: nil},
		openErr: map[string]error{},
		readErr: map[string]error{},
		gates:   map[string]chan struct{}{},
	}
	for _, p := range paths {
		kind := filesystem.KindFile
		switch {
		case strings.HasSuffix(p, "/"):
			kind = filesystem.KindDir
			p = strings.TrimSuffix(p, "/")
		case strings.HasSuffix(p, "@"):
			kind = filesystem.KindOther
			p = strings.TrimSuffix(p, "@")
		}
		f.add(filepath.Join(root, p), kind)
	}
	return f
}

func (f *fakeFS) add(path string, kind filesystem.EntryKind) {
	parent := filepath.Dir(path)
	if _, ok := f.dirs[parent]; !ok {
		f.add(parent, filesystem.KindDir)
	}
	for _, e := range f.dirs[parent] {
		if e.Name == filepath.Base(path) {
			return
		}
	}
	f.dirs[parent] = append(f.dirs[parent], filesystem.Entry{Name: filepath.Base(path), Kind: kind})
	if kind == filesystem.KindDir {
		if _, ok := f.dirs[path]; !ok {
			f.dirs[path] = nil
		}
	}
}

// gate makes OpenDir(path) block until the returned channel is closed.
func (f *fakeFS) gate(path string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[path] = ch
	return ch
}

func (f *fakeFS) failOpen(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr[path] = err
}

func (f *fakeFS) failRead(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr[path] = err
}

func (f *fakeFS) openedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.opens...)
}

func (f *fakeFS) openHandles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles
}

func (f *fakeFS) Canonical(path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clean := filepath.Clean(path)
	if _, ok := f.dirs[clean]; !ok {
		return "", &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return clean, nil
}

func (f *fakeFS) OpenDir(path string) (filesystem.Dir, error) {
	f.mu.Lock()
	gate := f.gates[path]
	hook := f.onOpen
	f.mu.Unlock()

	if hook != nil {
		hook(path)
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens = append(f.opens, path)

	if err := f.openErr[path]; err != nil {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	entries, ok := f.dirs[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}

	f.handles++
	return &fakeDir{
		fs:      f,
		entries: append([]filesystem.Entry(nil), entries...),
		readErr: f.readErr[path],
	}, nil
}

type fakeDir struct {
	fs      *fakeFS
	entries []filesystem.Entry
	readErr error
	closed  bool
}

func (d *fakeDir) ReadEntries(n int) ([]filesystem.Entry, error) {
	if len(d.entries) == 0 {
		if d.readErr != nil {
			return nil, d.readErr
		}
		return nil, io.EOF
	}
	if n > len(d.entries) {
		n = len(d.entries)
	}
	batch := d.entries[:n]
	d.entries = d.entries[n:]
	return batch, nil
}

func (d *fakeDir) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.fs.mu.Lock()
	d.fs.handles--
	d.fs.mu.Unlock()
	return nil
}

// filesUnder returns every file path in the fake tree, sorted.
func (f *fakeFS) filesUnder(root string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for dir, entries := range f.dirs {
		if dir != root && !strings.HasPrefix(dir, root+string(filepath.Separator)) {
			continue
		}
		for _, e := range entries {
			if e.Kind == filesystem.KindFile {
				out = append(out, filepath.Join(dir, e.Name))
			}
		}
	}
	sort.Strings(out)
	return out
}
