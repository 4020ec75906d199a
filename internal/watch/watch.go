// Package watch triggers library rescans when root content changes on
// disk.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher observes a set of library roots and invokes a trigger after
// changes settle. Filesystem events arrive in bursts (one file copy can
// emit dozens), so the trigger fires only after a quiet period of the
// configured debounce length.
type Watcher struct {
	fsw      *fsnotify.Watcher
	log      *zap.Logger
	debounce time.Duration
	trigger  func()
}

// New builds a watcher over the given roots. Every existing directory
// under each root is watched; directories created later are picked up from
// their create events. The trigger runs on the watcher's goroutine, so a
// slow trigger delays further triggers, not event collection.
func New(roots []string, debounce time.Duration, trigger func(), log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		log:      log,
		debounce: debounce,
		trigger:  trigger,
	}

	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			_ = fsw.Close()

			return nil, err
		}
	}

	return w, nil
}

// Run processes events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	// The timer starts disarmed; the first event arms it.
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			w.handleEvent(event)
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}

			w.log.Warn("watch error", zap.Error(err))

		case <-timer.C:
			w.log.Info("library changed, triggering rescan")
			w.trigger()
		}
	}
}

// Close stops event delivery and releases the underlying watches.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	w.log.Debug("filesystem event",
		zap.String("path", event.Name),
		zap.String("op", event.Op.String()),
	)

	// New directories are not covered by the parent's watch.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.Warn("watching new directory failed", zap.String("path", event.Name), zap.Error(err))
			}
		}
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		return w.fsw.Add(path)
	})
}
