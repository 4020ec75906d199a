// Package scan orchestrates library scanning: walking roots, classifying
// candidates, applying overlays, and persisting per-root caches.
//
// One background goroutine performs the whole scan sequentially across
// roots. The overlay index and result lists are only touched by that
// goroutine; the progress counters are the single piece of state shared
// with other goroutines and are atomic.
package scan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"songlib/internal/cache"
	"songlib/internal/container"
	"songlib/internal/fs"
	"songlib/internal/song"
)

// Mode selects how a scan populates each root.
type Mode uint8

const (
	// ModeFull walks every root's tree, validates every candidate, and
	// writes a fresh cache file per root.
	ModeFull Mode = iota

	// ModeFast loads each root's cache file verbatim. A root whose cache
	// is missing or unreadable yields an empty result for this run; there
	// is no fallback walk.
	ModeFast
)

func (m Mode) String() string {
	if m == ModeFast {
		return "fast"
	}

	return "full"
}

// Coordinator errors.
var (
	ErrScanInProgress = errors.New("scan already in progress")
	ErrDuplicateRoot  = errors.New("root already registered")
	ErrNoRoots        = errors.New("no roots registered")
)

// RootState is one root's scan outcome. Published read-only via
// [Coordinator.Snapshot].
type RootState struct {
	Entries    []song.Entry
	Containers []string
	Errs       []song.ScanError

	// CacheErr records a cache read failure (fast mode) or write failure
	// (full mode) for this root. The entry list is still valid on a write
	// failure; it just did not persist.
	CacheErr error
}

// Coordinator owns the registered roots and runs scans over them.
type Coordinator struct {
	fsys   fs.FS
	store  *cache.Store
	reader container.Reader
	log    *zap.Logger

	mu     sync.Mutex
	roots  []string
	states map[string]*RootState
	done   chan struct{}
	cancel context.CancelFunc

	foldersScanned    atomic.Int64
	songsScanned      atomic.Int64
	errorsEncountered atomic.Int64
}

// NewCoordinator wires a coordinator over the given filesystem and cache
// store. Container archives are opened through reader.
func NewCoordinator(fsys fs.FS, store *cache.Store, reader container.Reader, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}

	return &Coordinator{
		fsys:   fsys,
		store:  store,
		reader: reader,
		log:    log,
		states: make(map[string]*RootState),
	}
}

// AddRoot registers a library root. The path is normalized so the same
// directory cannot be registered twice under different spellings. Fails
// while a scan is running.
func (c *Coordinator) AddRoot(path string) error {
	normalized, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("normalizing root %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scanningLocked() {
		return ErrScanInProgress
	}

	for _, existing := range c.roots {
		if existing == normalized {
			return fmt.Errorf("%w: %s", ErrDuplicateRoot, normalized)
		}
	}

	c.roots = append(c.roots, normalized)

	return nil
}

// Roots returns the registered roots in registration order.
func (c *Coordinator) Roots() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.roots...)
}

// Start launches one background scan over all registered roots and returns
// immediately. Re-entry while a scan is live fails with no side effects;
// liveness is judged by the running goroutine's done channel, not a flag
// that could drift.
func (c *Coordinator) Start(mode Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scanningLocked() {
		return ErrScanInProgress
	}

	if len(c.roots) == 0 {
		return ErrNoRoots
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.done = done
	c.cancel = cancel
	c.foldersScanned.Store(0)
	c.songsScanned.Store(0)
	c.errorsEncountered.Store(0)

	roots := append([]string(nil), c.roots...)

	go c.run(ctx, mode, roots, done)

	return nil
}

// Abort requests cancellation of the running scan, if any. The scan
// goroutine observes the request between directories and candidates; an
// in-flight cache write always completes.
func (c *Coordinator) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
}

// IsScanning reports whether a scan goroutine is currently live.
func (c *Coordinator) IsScanning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.scanningLocked()
}

// Wait blocks until the current scan finishes. Returns immediately when no
// scan has been started.
func (c *Coordinator) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}

// FoldersScanned returns the number of directories visited so far.
func (c *Coordinator) FoldersScanned() int64 {
	return c.foldersScanned.Load()
}

// SongsScanned returns the number of entries accepted so far.
func (c *Coordinator) SongsScanned() int64 {
	return c.songsScanned.Load()
}

// ErrorsEncountered returns the number of recorded scan errors so far.
func (c *Coordinator) ErrorsEncountered() int64 {
	return c.errorsEncountered.Load()
}

// Snapshot returns a copy of every root's state. Safe to call during a
// scan; roots not yet scanned this session are absent.
func (c *Coordinator) Snapshot() map[string]RootState {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]RootState, len(c.states))

	for root, state := range c.states {
		out[root] = RootState{
			Entries:    append([]song.Entry(nil), state.Entries...),
			Containers: append([]string(nil), state.Containers...),
			Errs:       append([]song.ScanError(nil), state.Errs...),
			CacheErr:   state.CacheErr,
		}
	}

	return out
}

// scanningLocked reports scan liveness. Caller holds c.mu.
func (c *Coordinator) scanningLocked() bool {
	if c.done == nil {
		return false
	}

	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *Coordinator) run(ctx context.Context, mode Mode, roots []string, done chan struct{}) {
	defer close(done)

	log := c.log.With(
		zap.String("session", uuid.NewString()),
		zap.Stringer("mode", mode),
	)

	log.Info("scan started", zap.Int("roots", len(roots)))

	for _, root := range roots {
		if ctx.Err() != nil {
			log.Warn("scan aborted", zap.String("root", root))

			return
		}

		var state *RootState
		if mode == ModeFast {
			state = c.loadRoot(log, root)
		} else {
			state = c.walkRoot(ctx, log, root)
		}

		c.mu.Lock()
		c.states[root] = state
		c.mu.Unlock()
	}

	log.Info("scan finished",
		zap.Int64("folders", c.foldersScanned.Load()),
		zap.Int64("songs", c.songsScanned.Load()),
		zap.Int64("errors", c.errorsEncountered.Load()),
	)
}

// loadRoot is the fast path: the cache file is the whole result.
func (c *Coordinator) loadRoot(log *zap.Logger, root string) *RootState {
	state := &RootState{}

	entries, containers, err := c.store.Read(root)
	if err != nil {
		log.Warn("cache load failed", zap.String("root", root), zap.Error(err))

		state.CacheErr = err
		state.Errs = append(state.Errs, song.ScanError{
			Root:   root,
			Result: song.CacheReadError,
		})
		c.errorsEncountered.Add(1)

		return state
	}

	state.Entries = entries
	state.Containers = containers
	c.songsScanned.Add(int64(len(entries)))

	log.Info("cache loaded", zap.String("root", root), zap.Int("songs", len(entries)))

	return state
}

// walkRoot is the full path: walk, validate, then persist.
func (c *Coordinator) walkRoot(ctx context.Context, log *zap.Logger, root string) *RootState {
	state := &RootState{}

	info, err := c.fsys.Stat(root)
	if err != nil || !info.IsDir() {
		log.Warn("root is not a scannable directory", zap.String("root", root))

		state.Errs = append(state.Errs, song.ScanError{
			Root:   root,
			Result: song.InvalidDirectory,
		})
		c.errorsEncountered.Add(1)

		return state
	}

	w := &walker{
		fsys:     c.fsys,
		reader:   c.reader,
		log:      log.With(zap.String("root", root)),
		overlays: song.NewOverlayIndex(),
		state:    state,
		root:     root,
		folders:  &c.foldersScanned,
		songs:    &c.songsScanned,
		errs:     &c.errorsEncountered,
	}

	w.walkDir(ctx, root)

	// An aborted walk never starts its cache write; the previous cache
	// file for this root stays intact.
	if ctx.Err() != nil {
		return state
	}

	if err := c.store.Write(root, state.Entries, state.Containers); err != nil {
		log.Warn("cache write failed", zap.String("root", root), zap.Error(err))

		state.CacheErr = err
		state.Errs = append(state.Errs, song.ScanError{
			Root:   root,
			Result: song.CacheWriteError,
		})
		c.errorsEncountered.Add(1)
	}

	return state
}
