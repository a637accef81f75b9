// Package tiletree persists precomputed elevation tiles on disk in a
// {z}/{x}/{y}.u16[.br|.gz] layout, and reads them back with a preference
// order of brotli, then gzip, then raw. Writes are atomic — a tile is
// never visible at its final path until fully written.
package tiletree

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Encoding names a stored tile's compression.
type Encoding string

const (
	Raw    Encoding = "raw"
	Gzip   Encoding = "gzip"
	Brotli Encoding = "brotli"
)

func (e Encoding) ext() string {
	switch e {
	case Brotli:
		return ".u16.br"
	case Gzip:
		return ".u16.gz"
	default:
		return ".u16"
	}
}

// preferenceOrder is the read-back preference: prefer the most compact
// representation present on disk.
var preferenceOrder = []Encoding{Brotli, Gzip, Raw}

// Store is a directory-backed tree of encoded elevation tiles.
type Store struct {
	root string
}

// New returns a Store rooted at dir. The directory is created if absent.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("tiletree: creating root %s: %w", dir, err)
	}
	return &Store{root: dir}, nil
}

func (s *Store) dirFor(z, x int) string {
	return filepath.Join(s.root, strconv.Itoa(z), strconv.Itoa(x))
}

func (s *Store) path(z, x, y int, enc Encoding) string {
	return filepath.Join(s.dirFor(z, x), strconv.Itoa(y)+enc.ext())
}

// Exists reports whether any encoding of z/x/y is present on disk.
func (s *Store) Exists(z, x, y int) bool {
	for _, enc := range preferenceOrder {
		if _, err := os.Stat(s.path(z, x, y, enc)); err == nil {
			return true
		}
	}
	return false
}

// Put atomically writes payload as the given encoding for z/x/y: write to
// a temp file in the same directory (so the final rename never crosses a
// filesystem), fsync it, then rename over the target path. A reader can
// never observe a partially written tile.
func (s *Store) Put(z, x, y int, enc Encoding, payload []byte) error {
	dir := s.dirFor(z, x)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("tiletree: creating %s: %w", dir, err)
	}

	final := s.path(z, x, y, enc)
	tmp, err := os.CreateTemp(dir, filepath.Base(final)+".tmp-*")
	if err != nil {
		return fmt.Errorf("tiletree: creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("tiletree: writing %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("tiletree: fsyncing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("tiletree: closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("tiletree: renaming %s to %s: %w", tmpName, final, err)
	}
	return nil
}

// Get reads back z/x/y, preferring brotli, then gzip, then raw, and
// reports which encoding it found. A variant that exists but cannot be
// read is skipped in favour of the next one; if none can be read, the
// first such read error is returned, else os.ErrNotExist.
func (s *Store) Get(z, x, y int) ([]byte, Encoding, error) {
	var readErr error
	for _, enc := range preferenceOrder {
		data, err := os.ReadFile(s.path(z, x, y, enc))
		if err == nil {
			return data, enc, nil
		}
		if !os.IsNotExist(err) && readErr == nil {
			readErr = fmt.Errorf("tiletree: reading %s: %w", s.path(z, x, y, enc), err)
		}
	}
	if readErr != nil {
		return nil, "", readErr
	}
	return nil, "", os.ErrNotExist
}
