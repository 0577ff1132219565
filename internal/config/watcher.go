package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/event"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/logging"
)

// Watcher watches config files for changes and publishes ConfigUpdated events.
type Watcher struct {
	watcher *fsnotify.Watcher
	paths   map[string]string // tracked file -> last seen fingerprint
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	mu      sync.RWMutex
}

// NewWatcher creates a watcher over every config file Load would read for
// the given project directory. Returns nil if none of the candidate
// directories exist yet.
func NewWatcher(directory string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	paths := make(map[string]string)
	dirs := make(map[string]bool)
	for _, p := range SourcePaths(directory) {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		paths[abs] = fingerprint(abs)
		dirs[filepath.Dir(abs)] = true
	}

	// Watch the containing directories rather than the files themselves.
	// Editors replace files on save, and on some systems watching a file
	// directly doesn't work reliably.
	watching := 0
	for dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := w.Add(dir); err != nil {
			logging.Debug().Err(err).Str("dir", dir).Msg("cannot watch config directory")
			continue
		}
		watching++
	}
	if watching == 0 {
		w.Close()
		logging.Debug().Msg("no config directories found, config watcher disabled")
		return nil, nil
	}

	logging.Info().Int("dirs", watching).Msg("config watcher initialized")

	return &Watcher{
		watcher: w,
		paths:   paths,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins watching for config changes.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.checkConfigChange(ev.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error().Err(err).Msg("config watcher error")
		}
	}
}

// checkConfigChange publishes ConfigUpdated when a tracked file's contents
// actually changed. Directory events for untracked files are ignored.
func (w *Watcher) checkConfigChange(name string) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}

	w.mu.Lock()
	old, tracked := w.paths[abs]
	changed := false
	if tracked {
		now := fingerprint(abs)
		changed = now != old
		if changed {
			w.paths[abs] = now
		}
	}
	w.mu.Unlock()

	if changed {
		logging.Info().Str("path", abs).Msg("config file changed")

		event.PublishSync(event.Event{
			Type: event.ConfigUpdated,
			Data: event.ConfigUpdatedData{Path: abs},
		})
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	// Signal stop
	select {
	case <-w.stopCh:
		// Already stopped
	default:
		close(w.stopCh)
	}

	// Wait for run() to finish if it was started
	if started {
		<-w.doneCh
	}

	return w.watcher.Close()
}

// fingerprint summarizes a file cheaply enough to recompute on every event.
// Missing files fingerprint to the empty string.
func fingerprint(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano())
}
