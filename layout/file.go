package layout

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/timzifer/metricdisplay/internal/reload"
)

// File reads the configuration from a YAML list of {digits, id} entries and
// re-reads it only when the file changes on disk.
type File struct {
	path    string
	watcher *reload.Watcher

	mu     sync.Mutex
	cfg    Configuration
	err    error
	loaded bool
}

// NewFile creates a file-backed source.
func NewFile(path string) *File {
	return &File{path: path}
}

// Setup starts tracking the layout file.
func (f *File) Setup() error {
	if f.path == "" {
		return fmt.Errorf("layout file path is required")
	}
	f.watcher = reload.NewWatcher(f.path)
	return nil
}

// Load re-reads the file when it changed since the previous load.
func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watcher == nil {
		return fmt.Errorf("layout file source not set up")
	}
	if f.loaded && len(f.watcher.Check()) == 0 {
		return nil
	}
	f.watcher.Update()
	f.loaded = true
	cfg, err := readLayoutFile(f.path)
	if err != nil {
		f.cfg = nil
		f.err = err
		return err
	}
	f.cfg = cfg
	f.err = nil
	return nil
}

// Read returns the configuration from the last successful load.
func (f *File) Read() (Configuration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil || len(f.cfg) == 0 {
		return nil, ErrUnavailable
	}
	return f.cfg.Clone(), nil
}

func (f *File) Close() error { return nil }

func readLayoutFile(path string) (Configuration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	var cfg Configuration
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal layout: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout %s: %w", path, err)
	}
	return cfg, nil
}
