// Package watch reports when kernel source files change on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a Watcher waits after the last event on a file
// before reporting it. Editors often write a file in several steps.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches a fixed set of files.
//
// The directory of each file is watched rather than the file itself so that
// editors which save by replacing the file are still seen.
type Watcher struct {
	w        *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
}

// New returns a Watcher for the given files. A debounce of 0 uses
// DefaultDebounce.
func New(paths []string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	wt := &Watcher{w: fw, files: map[string]bool{}, debounce: debounce}
	dirs := map[string]bool{}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		wt.files[abs] = true

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	return wt, nil
}

// Run calls onChange with the absolute path of each watched file that is
// written, created or renamed into place, until ctx is done or the Watcher
// is closed. Changes to several files within one debounce period are
// reported in path order.
func (wt *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	pending := map[string]bool{}
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
		case ev, ok := <-wt.w.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(ev.Name)
			if !wt.files[name] {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			pending[name] = true
			if timer == nil {
				timer = time.NewTimer(wt.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(wt.debounce)
			}
			fire = timer.C
		case err, ok := <-wt.w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		case <-fire:
			fire = nil
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}
			sort.Strings(names)
			pending = map[string]bool{}

			for _, name := range names {
				onChange(name)
			}
		}
	}
}

// Close stops watching. A Run in progress returns.
func (wt *Watcher) Close() error {
	return wt.w.Close()
}
