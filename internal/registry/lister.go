package registry

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// Entry is one item of a directory listing.
type Entry struct {
	Name  string
	Path  string
	IsDir bool
}

// Lister yields a directory listing in batches. Next returns an empty batch
// and a nil error once the listing is exhausted.
type Lister interface {
	Next(n int) ([]Entry, error)
	Close() error
}

type dirLister struct {
	dir string
	f   *os.File
}

func OpenDir(dir string) (Lister, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	return &dirLister{dir: dir, f: f}, nil
}

func (l *dirLister) Next(n int) ([]Entry, error) {
	if n <= 0 {
		n = 10
	}
	dirents, err := l.f.ReadDir(n)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	batch := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		batch = append(batch, Entry{
			Name:  de.Name(),
			Path:  filepath.Join(l.dir, de.Name()),
			IsDir: de.IsDir(),
		})
	}
	return batch, nil
}

func (l *dirLister) Close() error {
	return l.f.Close()
}

// SliceLister serves a fixed listing, mostly for tests and callers that
// already hold the entries in memory.
type SliceLister struct {
	entries []Entry
	pos     int
}

func NewSliceLister(entries []Entry) *SliceLister {
	return &SliceLister{entries: entries}
}

func (l *SliceLister) Next(n int) ([]Entry, error) {
	if n <= 0 {
		n = 10
	}
	end := l.pos + n
	if end > len(l.entries) {
		end = len(l.entries)
	}
	batch := l.entries[l.pos:end]
	l.pos = end
	return batch, nil
}

func (l *SliceLister) Close() error { return nil }
