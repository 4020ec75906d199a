package fs

import (
	"errors"
	"os"
	"strings"
)

// ErrInjected marks an error as intentionally injected by [Injected].
var ErrInjected = errors.New("injected fault")

// Injected wraps another [FS] and fails operations whose path contains a
// registered substring. Used by tests to exercise partial-failure paths
// (unreadable directories, failing cache writes) deterministically.
type Injected struct {
	inner FS

	// FailReads, FailWrites, and FailReadDirs hold path substrings; an
	// operation whose path matches any entry of the relevant set fails
	// with ErrInjected.
	FailReads    []string
	FailWrites   []string
	FailReadDirs []string
}

// NewInjected wraps inner with fault injection. With no registered
// failures it behaves identically to inner.
func NewInjected(inner FS) *Injected {
	return &Injected{inner: inner}
}

func matches(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(path, pattern) {
			return true
		}
	}

	return false
}

func (i *Injected) Open(path string) (File, error) {
	if matches(path, i.FailReads) {
		return nil, ErrInjected
	}

	return i.inner.Open(path)
}

func (i *Injected) ReadFile(path string) ([]byte, error) {
	if matches(path, i.FailReads) {
		return nil, ErrInjected
	}

	return i.inner.ReadFile(path)
}

func (i *Injected) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if matches(path, i.FailWrites) {
		return ErrInjected
	}

	return i.inner.WriteFileAtomic(path, data, perm)
}

func (i *Injected) ReadDir(path string) ([]os.DirEntry, error) {
	if matches(path, i.FailReadDirs) {
		return nil, ErrInjected
	}

	return i.inner.ReadDir(path)
}

func (i *Injected) MkdirAll(path string, perm os.FileMode) error {
	if matches(path, i.FailWrites) {
		return ErrInjected
	}

	return i.inner.MkdirAll(path, perm)
}

func (i *Injected) Stat(path string) (os.FileInfo, error) {
	if matches(path, i.FailReads) {
		return nil, ErrInjected
	}

	return i.inner.Stat(path)
}

func (i *Injected) Exists(path string) (bool, error) {
	if matches(path, i.FailReads) {
		return false, ErrInjected
	}

	return i.inner.Exists(path)
}

func (i *Injected) Remove(path string) error {
	if matches(path, i.FailWrites) {
		return ErrInjected
	}

	return i.inner.Remove(path)
}

func (i *Injected) Lock(path string) (Locker, error) {
	return i.inner.Lock(path)
}

// Compile-time interface check.
var _ FS = (*Injected)(nil)
