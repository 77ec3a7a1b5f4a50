// Package watcher monitors scenario files for changes so `mend run --watch`
// can re-run the suite on save. It uses fsnotify for efficient file system
// monitoring with a fallback to polling for environments where fsnotify is
// not available or reliable.
package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mend/pkg/logging"
)

// DefaultDebounceInterval is the time to wait before triggering a re-run
// after the last file change is detected.
const DefaultDebounceInterval = 500 * time.Millisecond

// DefaultWatchInterval is the fallback polling cadence.
const DefaultWatchInterval = 2 * time.Second

// Config holds configuration for the scenario watcher.
type Config struct {
	// Dir is the scenario directory to watch, recursively.
	Dir string

	// DebounceInterval coalesces rapid successive changes. Defaults to 500ms.
	DebounceInterval time.Duration

	// WatchInterval is the fallback polling interval when fsnotify is not available.
	WatchInterval time.Duration

	// OnChange is called, debounced, when scenario files change.
	OnChange func()
}

// ScenarioWatcher monitors a scenario directory tree for *.yaml and *.yml
// changes and triggers the configured callback.
type ScenarioWatcher struct {
	mu sync.Mutex

	config Config

	// fsWatcher is the fsnotify watcher (may be nil if fsnotify is unavailable)
	fsWatcher *fsnotify.Watcher

	// stopCh signals the watcher to stop
	stopCh chan struct{}

	// running indicates if the watcher is active
	running bool

	// lastModTimes tracks the last modification times for fallback polling
	lastModTimes map[string]time.Time

	// debounceTimer helps prevent rapid successive re-runs
	debounceTimer *time.Timer
	debounceMu    sync.Mutex
}

// New creates a new scenario watcher.
func New(config Config) *ScenarioWatcher {
	if config.DebounceInterval == 0 {
		config.DebounceInterval = DefaultDebounceInterval
	}
	if config.WatchInterval == 0 {
		config.WatchInterval = DefaultWatchInterval
	}

	return &ScenarioWatcher{
		config:       config,
		lastModTimes: make(map[string]time.Time),
	}
}

// Start begins watching for scenario changes.
func (w *ScenarioWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.stopCh = make(chan struct{})
	w.running = true

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("ScenarioWatcher", "fsnotify not available, falling back to polling: %v", err)
		go w.pollForChanges()
		return nil
	}

	w.fsWatcher = watcher

	// Scenarios may live in nested suite directories, so every directory
	// under the root is added individually.
	if err := w.addDirTree(w.config.Dir); err != nil {
		logging.Warn("ScenarioWatcher", "Failed to watch directory %s, falling back to polling: %v",
			w.config.Dir, err)
		w.fsWatcher.Close()
		w.fsWatcher = nil
		go w.pollForChanges()
		return nil
	}

	// Capture channels before releasing lock to avoid race conditions
	eventsCh := w.fsWatcher.Events
	errorsCh := w.fsWatcher.Errors

	go w.processEvents(eventsCh, errorsCh)

	logging.Info("ScenarioWatcher", "Started watching %s for scenario changes", w.config.Dir)
	return nil
}

// addDirTree registers the directory and every subdirectory with fsnotify.
func (w *ScenarioWatcher) addDirTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsWatcher.Add(path)
		}
		return nil
	})
}

// processEvents handles fsnotify events.
// The channels are passed as parameters to avoid race conditions with Stop().
func (w *ScenarioWatcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("ScenarioWatcher", err, "fsnotify error")
		}
	}
}

// handleEvent processes a single fsnotify event.
func (w *ScenarioWatcher) handleEvent(event fsnotify.Event) {
	// New suite directories need their own watch before files inside them
	// produce events.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			if w.fsWatcher != nil {
				if err := w.fsWatcher.Add(event.Name); err != nil {
					logging.Warn("ScenarioWatcher", "Failed to watch new directory %s: %v", event.Name, err)
				}
			}
			w.mu.Unlock()
			return
		}
	}

	if !isScenarioFile(event.Name) {
		return
	}

	// Write, create, remove, and rename all change what the next run loads.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	logging.Debug("ScenarioWatcher", "Scenario file changed: %s", event.Name)

	w.triggerDebounced()
}

// isScenarioFile checks if a path is a scenario file we care about.
func isScenarioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// triggerDebounced invokes the callback after a debounce period. This
// prevents multiple rapid re-runs when several files change at once, such
// as an editor saving a batch of scenarios.
func (w *ScenarioWatcher) triggerDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	// Cancel existing timer if present
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.config.DebounceInterval, func() {
		w.mu.Lock()
		running := w.running
		callback := w.config.OnChange
		w.mu.Unlock()

		if running && callback != nil {
			callback()
		}
	})
}

// pollForChanges implements fallback polling when fsnotify is not available.
func (w *ScenarioWatcher) pollForChanges() {
	ticker := time.NewTicker(w.config.WatchInterval)
	defer ticker.Stop()

	// Initialize last modification times
	w.updateModTimes()

	for {
		select {
		case <-w.stopCh:
			return

		case <-ticker.C:
			if w.checkForChanges() {
				logging.Debug("ScenarioWatcher", "Scenario file changes detected via polling")
				w.triggerDebounced()
			}
		}
	}
}

// scenarioFiles lists every scenario file currently under the watched root.
func (w *ScenarioWatcher) scenarioFiles() []string {
	var files []string
	filepath.WalkDir(w.config.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && isScenarioFile(path) {
			files = append(files, path)
		}
		return nil
	})
	return files
}

// updateModTimes updates the stored modification times for all scenario files.
func (w *ScenarioWatcher) updateModTimes() {
	for _, file := range w.scenarioFiles() {
		if info, err := os.Stat(file); err == nil {
			w.lastModTimes[file] = info.ModTime()
		}
	}
}

// checkForChanges checks if any scenario files have been modified, added,
// or removed since the last poll.
func (w *ScenarioWatcher) checkForChanges() bool {
	changed := false
	seen := make(map[string]bool)

	for _, file := range w.scenarioFiles() {
		seen[file] = true
		info, err := os.Stat(file)
		if err != nil {
			continue
		}

		currentModTime := info.ModTime()
		if lastModTime, exists := w.lastModTimes[file]; exists {
			if currentModTime.After(lastModTime) {
				changed = true
			}
		} else {
			changed = true
		}
		w.lastModTimes[file] = currentModTime
	}

	for file := range w.lastModTimes {
		if !seen[file] {
			delete(w.lastModTimes, file)
			changed = true
		}
	}

	return changed
}

// Stop gracefully stops the scenario watcher.
func (w *ScenarioWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	// Cancel any pending debounce timer
	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	// Close fsnotify watcher if present
	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			logging.Warn("ScenarioWatcher", "Error closing fsnotify watcher: %v", err)
		}
		w.fsWatcher = nil
	}

	logging.Info("ScenarioWatcher", "Stopped scenario watcher")
	return nil
}

// IsRunning returns whether the watcher is currently active.
func (w *ScenarioWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
