package reload

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

type fileState struct {
	modTime time.Time
	size    int64
}

// Watcher keeps track of layout files and detects modifications.
type Watcher struct {
	mu    sync.Mutex
	paths []string
	files map[string]fileState
}

// NewWatcher builds a watcher tracking the provided files.
func NewWatcher(paths ...string) *Watcher {
	watcher := &Watcher{}
	watcher.Track(paths...)
	return watcher
}

// Track replaces the tracked file list and snapshots the current file states.
func (w *Watcher) Track(paths ...string) {
	if w == nil {
		return
	}
	abs := make([]string, 0, len(paths))
	for _, path := range uniquePaths(paths) {
		resolved, err := filepath.Abs(path)
		if err != nil {
			resolved = path
		}
		abs = append(abs, resolved)
	}
	w.mu.Lock()
	w.paths = abs
	w.files = snapshot(abs)
	w.mu.Unlock()
}

// Update snapshots the tracked files so that subsequent checks compare against the current state.
func (w *Watcher) Update() {
	if w == nil {
		return
	}
	w.mu.Lock()
	w.files = snapshot(w.paths)
	w.mu.Unlock()
}

// Check reports the files that changed, appeared or disappeared since the last snapshot.
func (w *Watcher) Check() []string {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	changed := make([]string, 0)
	for _, path := range w.paths {
		state, tracked := w.files[path]
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			if tracked {
				changed = append(changed, path)
			}
			continue
		}
		if !tracked || !info.ModTime().Equal(state.modTime) || info.Size() != state.size {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed
}

func snapshot(paths []string) map[string]fileState {
	states := make(map[string]fileState, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		states[path] = fileState{modTime: info.ModTime(), size: info.Size()}
	}
	return states
}

func uniquePaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	result := make([]string, 0, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		result = append(result, path)
	}
	return result
}
