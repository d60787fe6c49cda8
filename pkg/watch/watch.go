// Package watch triggers re-distillation when the source tree changes
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/poltergeist/distill/pkg/logger"
	"github.com/poltergeist/distill/pkg/paths"
)

// DefaultSettleDelay is how long the tree must be quiet before a change fires
const DefaultSettleDelay = 500 * time.Millisecond

// ChangeFunc receives the sorted set of paths changed since the last call
type ChangeFunc func(changed []string)

// Watcher recursively watches a directory tree with fsnotify
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  logger.Logger
	settle  time.Duration
	ignored []string
}

// New creates a watcher. Paths under ignored are neither watched nor reported,
// which keeps destination trees nested in the source from retriggering runs.
func New(log logger.Logger, settle time.Duration, ignored ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	if settle <= 0 {
		settle = DefaultSettleDelay
	}

	var cleaned []string
	for _, dir := range ignored {
		if dir == "" {
			continue
		}
		if abs, err := filepath.Abs(dir); err == nil {
			cleaned = append(cleaned, abs)
		}
	}

	return &Watcher{
		watcher: fw,
		logger:  log,
		settle:  settle,
		ignored: cleaned,
	}, nil
}

// Close releases the underlying watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// AddTree watches root and every directory below it
func (w *Watcher) AddTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if w.isIgnored(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				logger.WithField("path", path),
				logger.WithField("error", err))
			return nil
		}
		w.logger.Debug("Watching directory", logger.WithField("path", path))
		return nil
	})
}

// Run delivers settled change batches to onChange until ctx is cancelled
func (w *Watcher) Run(ctx context.Context, onChange ChangeFunc) error {
	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.isIgnored(event.Name) {
				continue
			}

			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.AddTree(event.Name); err != nil {
						w.logger.Warn("Failed to watch new directory",
							logger.WithField("path", event.Name),
							logger.WithField("error", err))
					}
				}
			}

			pending[event.Name] = true
			if timer == nil {
				timer = time.NewTimer(w.settle)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.settle)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)
			onChange(changed)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logger.WithField("error", err))
		}
	}
}

func (w *Watcher) isIgnored(path string) bool {
	for _, dir := range w.ignored {
		if paths.HasBase(path, dir) {
			return true
		}
	}
	return false
}
