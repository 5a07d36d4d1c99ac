package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// EntryKind classifies a directory entry.
type EntryKind int

const (
	// KindOther covers symlinks, devices, sockets and pipes.
	KindOther EntryKind = iota
	// KindFile is a regular file.
	KindFile
	// KindDir is a directory.
	KindDir
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "directory"
	default:
		return "other"
	}
}

// Entry is one name returned from a directory listing.
type Entry struct {
	Name string
	Kind EntryKind
}

// Dir is an open directory being listed in batches.
type Dir interface {
	// ReadEntries returns up to n entries. At the end of the directory it
	// returns no entries and io.EOF.
	ReadEntries(n int) ([]Entry, error)
	Close() error
}

// FS is the host filesystem as seen by the crawler.
type FS interface {
	// Canonical resolves path to an absolute, symlink-free directory path.
	Canonical(path string) (string, error)
	OpenDir(path string) (Dir, error)
}

// ErrNotDirectory is returned by Canonical when the path is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// OS implements FS over the local operating system, retrying NFS stale
// handle errors on stat and open.
type OS struct {
	Retry RetryConfig
}

// NewOS returns an OS filesystem using DefaultRetryConfig.
func NewOS() *OS {
	return &OS{Retry: DefaultRetryConfig()}
}

// Canonical implements FS.
func (o *OS) Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := StatWithRetry(resolved, o.Retry)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: %w", resolved, ErrNotDirectory)
	}
	return resolved, nil
}

// OpenDir implements FS.
func (o *OS) OpenDir(path string) (Dir, error) {
	f, err := OpenWithRetry(path, o.Retry)
	if err != nil {
		return nil, err
	}
	return &osDir{f: f, path: path, obs: o.Retry.observer()}, nil
}

type osDir struct {
	f    *os.File
	path string
	obs  Observer
}

func (d *osDir) ReadEntries(n int) ([]Entry, error) {
	start := time.Now()
	dirents, err := d.f.ReadDir(n)
	if d.obs != nil {
		var obsErr error
		if err != nil && !errors.Is(err, io.EOF) {
			obsErr = err
		}
		d.obs.ObserveOperation(OpReaddir, time.Since(start).Seconds(), obsErr)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		entries = append(entries, Entry{Name: de.Name(), Kind: kindOf(de.Type())})
	}
	if err != nil {
		return entries, err
	}
	return entries, nil
}

func (d *osDir) Close() error {
	return d.f.Close()
}

// kindOf maps lstat-style type bits to an EntryKind. Symlinks are KindOther.
func kindOf(mode fs.FileMode) EntryKind {
	switch {
	case mode.IsDir():
		return KindDir
	case mode.IsRegular():
		return KindFile
	default:
		return KindOther
	}
}
