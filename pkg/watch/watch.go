// Package watch re-runs exports when project sources change
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cryexport/cryexport/pkg/logger"
	"github.com/cryexport/cryexport/pkg/utils"
)

// TriggerFunc runs one export for a batch of changed paths. Calls never overlap.
type TriggerFunc func(ctx context.Context, changed []string)

// Watcher collects file events under a set of roots and fires a trigger once
// the tree has been quiet for the debounce period
type Watcher struct {
	watcher    *fsnotify.Watcher
	logger     logger.Logger
	exclusions *utils.ExclusionMatcher
	ignored    []string
	roots      []string
	debounce   time.Duration

	mu      sync.Mutex
	pending map[string]struct{}
}

// New creates a watcher over roots. Missing roots are skipped with a warning.
func New(roots []string, debounce time.Duration, log logger.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.Discard()
	}
	if debounce <= 0 {
		debounce = time.Second
	}

	exclusions, err := utils.NewExclusionMatcher(utils.GetDefaultExclusions())
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		watcher:    fsw,
		logger:     log,
		exclusions: exclusions,
		debounce:   debounce,
		pending:    make(map[string]struct{}),
	}

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		if !utils.DirectoryExists(abs) {
			log.Warn("Watch root does not exist", logger.WithField("path", abs))
			continue
		}
		w.roots = append(w.roots, abs)
	}
	if len(w.roots) == 0 {
		fsw.Close()
		return nil, fmt.Errorf("no existing directories to watch")
	}

	return w, nil
}

// Ignore drops events at or below path, e.g. the export destination
func (w *Watcher) Ignore(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		w.ignored = append(w.ignored, abs)
	}
}

// Roots returns the watched root directories
func (w *Watcher) Roots() []string {
	return append([]string(nil), w.roots...)
}

// Close releases the underlying fsnotify watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run watches until ctx is cancelled. trigger runs on the calling goroutine,
// so an export in progress delays the next batch instead of overlapping it.
func (w *Watcher) Run(ctx context.Context, trigger TriggerFunc) error {
	for _, root := range w.roots {
		if err := w.addDirectory(root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
		w.logger.Info("Watching for changes", logger.WithField("path", root))
	}

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
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.accept(event) {
				continue
			}

			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addDirectory(event.Name); err != nil {
						w.logger.Warn("Failed to watch new directory",
							logger.WithField("path", event.Name),
							logger.WithField("error", err))
					}
				}
			}

			w.mu.Lock()
			w.pending[event.Name] = struct{}{}
			w.mu.Unlock()

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			changed := w.drain()
			if len(changed) == 0 {
				continue
			}
			w.logger.Info("Changes settled, exporting", logger.WithField("files", len(changed)))
			trigger(ctx, changed)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", logger.WithField("error", err))
		}
	}
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	w.pending = make(map[string]struct{})
	sort.Strings(changed)
	return changed
}

func (w *Watcher) accept(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	return !w.isExcluded(event.Name, false)
}

// isExcluded checks path against the ignore list and the default exclusions,
// matched relative to its watch root
func (w *Watcher) isExcluded(path string, isDir bool) bool {
	for _, ignored := range w.ignored {
		if path == ignored || strings.HasPrefix(path, ignored+string(filepath.Separator)) {
			return true
		}
	}

	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		if isDir {
			rel += "/"
		}
		if w.exclusions.IsExcluded(rel) {
			return true
		}
	}
	return false
}

// addDirectory watches dir and every non-excluded directory below it
func (w *Watcher) addDirectory(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.isExcluded(path, true) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		w.logger.Debug("Watching directory", logger.WithField("path", path))
		return nil
	})
}
