package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/xtding233/packpicker/internal/logging"
)

// FileWatcher triggers a callback when one of the watched seed files changes.
// Parent directories are watched so that editors replacing a file by rename
// are still noticed. Bursts of events are coalesced over Interval.
type FileWatcher struct {
	Paths    []string
	Interval time.Duration
	onChange func(string) // called with the path that changed

	lastMTime map[string]time.Time
}

// NewFileWatcher creates a watcher for given paths and debounce interval.
func NewFileWatcher(paths []string, interval time.Duration, onChange func(string)) *FileWatcher {
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		if a, err := filepath.Abs(p); err == nil {
			p = a
		}
		abs = append(abs, filepath.Clean(p))
	}
	return &FileWatcher{
		Paths:     abs,
		Interval:  interval,
		onChange:  onChange,
		lastMTime: make(map[string]time.Time),
	}
}

// Run watches until ctx is done.
func (w *FileWatcher) Run(ctx context.Context) (err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	dirs := map[string]bool{}
	for _, p := range w.Paths {
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	// prime cache
	w.scan(true)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.watches(event.Name) || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.After(w.Interval)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn().Err(err).Msg("catalog watcher error")
		case <-debounce:
			debounce = nil
			w.scan(false)
		}
	}
}

func (w *FileWatcher) watches(name string) bool {
	name = filepath.Clean(name)
	for _, p := range w.Paths {
		if p == name {
			return true
		}
	}
	return false
}

// scan checks mtimes and invokes onChange for files that changed since last scan.
func (w *FileWatcher) scan(prime bool) {
	for _, p := range w.Paths {
		fi, err := os.Stat(p)
		if err != nil {
			// mid-rename or deleted; the next event picks it up
			continue
		}
		mt := fi.ModTime()
		last, ok := w.lastMTime[p]
		w.lastMTime[p] = mt
		if prime || (ok && !mt.After(last)) {
			continue
		}
		if w.onChange != nil {
			w.onChange(p)
		}
	}
}
