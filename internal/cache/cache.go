// Package cache persists per-root scan results as versioned binary files.
//
// Each library root gets one cache file in the store's directory, named by
// the SHA-1 of the root's normalized path. Files are written atomically
// under an advisory lock so concurrent processes never observe a torn
// cache; readers classify every failure with a typed error so the scan
// layer can report cache problems without guessing.
package cache

import (
	"crypto/sha1" //nolint:gosec // file naming, not security
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"songlib/internal/fs"
	"songlib/internal/song"
)

// Read errors. Write failures surface the underlying filesystem error.
var (
	ErrNotFound        = errors.New("cache file not found")
	ErrCorrupt         = errors.New("cache file corrupt")
	ErrVersionMismatch = errors.New("cache file version mismatch")
)

// Store reads and writes per-root cache files under a single directory.
type Store struct {
	fsys fs.FS
	dir  string
}

// NewStore returns a store rooted at dir. The directory is created on the
// first write, not here.
func NewStore(fsys fs.FS, dir string) *Store {
	return &Store{fsys: fsys, dir: dir}
}

// PathFor returns the cache file path for a root. The name is derived from
// the root path so distinct roots never collide and renamed roots start
// cold.
func (s *Store) PathFor(root string) string {
	sum := sha1.Sum([]byte(root)) //nolint:gosec // file naming, not security

	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".cache")
}

// Read loads a root's cached entries and container paths.
//
// A missing file returns [ErrNotFound]; any structural problem, including a
// file written for a different root, returns [ErrCorrupt]; a valid file
// with a different format version returns [ErrVersionMismatch].
func (s *Store) Read(root string) ([]song.Entry, []string, error) {
	data, err := s.fsys.ReadFile(s.PathFor(root))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, root)
		}

		return nil, nil, fmt.Errorf("reading cache for %s: %w", root, err)
	}

	entries, containers, err := decodeCache(data, root)
	if err != nil {
		return nil, nil, err
	}

	return entries, containers, nil
}

// Write replaces a root's cache file. The write is atomic and holds the
// root's advisory lock for its duration, so a concurrent writer for the
// same root serializes instead of interleaving.
func (s *Store) Write(root string, entries []song.Entry, containers []string) error {
	data, err := encodeCache(root, entries, containers)
	if err != nil {
		return err
	}

	if err := s.fsys.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	path := s.PathFor(root)

	lock, err := s.fsys.Lock(path)
	if err != nil {
		return fmt.Errorf("locking cache for %s: %w", root, err)
	}
	defer func() { _ = lock.Close() }()

	if err := s.fsys.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("writing cache for %s: %w", root, err)
	}

	return nil
}

// Remove deletes a root's cache file. Removing an absent file is not an
// error.
func (s *Store) Remove(root string) error {
	err := s.fsys.Remove(s.PathFor(root))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing cache for %s: %w", root, err)
	}

	return nil
}
