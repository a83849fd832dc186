// Package displaytest provides an in-memory display backend for tests.
package displaytest

import (
	"errors"
	"sync"

	"github.com/timzifer/metricdisplay/config"
	"github.com/timzifer/metricdisplay/layout"
	"github.com/timzifer/metricdisplay/serviceio"
)

// Backend records what every unit rendered.
type Backend struct {
	mu       sync.Mutex
	layouts  []layout.Configuration
	units    []*Unit
	commits  int
	setups   int
	closed   bool
	history  [][]string
	renderFn func(index int, text string) error
	unitsErr error
}

// New returns an empty recording backend.
func New() *Backend {
	return &Backend{}
}

// Factory returns a factory yielding b.
func (b *Backend) Factory() serviceio.BackendFactory {
	return func(config.DisplayConfig, serviceio.BackendDependencies) (serviceio.Backend, error) {
		return b, nil
	}
}

// FailRender installs fn as render hook; a non-nil return fails the render.
func (b *Backend) FailRender(fn func(index int, text string) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.renderFn = fn
}

// FailUnits makes subsequent Units calls fail with err.
func (b *Backend) FailUnits(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unitsErr = err
}

func (b *Backend) Name() string { return "test" }

func (b *Backend) Units(cfg layout.Configuration) ([]serviceio.Unit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unitsErr != nil {
		return nil, b.unitsErr
	}
	b.layouts = append(b.layouts, cfg.Clone())
	b.units = make([]*Unit, len(cfg))
	out := make([]serviceio.Unit, len(cfg))
	for i, entry := range cfg {
		u := &Unit{backend: b, index: i, digits: entry.Digits}
		b.units[i] = u
		out[i] = u
	}
	return out, nil
}

// Commit snapshots the rendered texts of the current units.
func (b *Backend) Commit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commits++
	frame := make([]string, len(b.units))
	for i, u := range b.units {
		frame[i] = u.rendered
	}
	b.history = append(b.history, frame)
	return nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("displaytest: closed twice")
	}
	b.closed = true
	return nil
}

// Layouts returns every layout units were built for.
func (b *Backend) Layouts() []layout.Configuration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]layout.Configuration(nil), b.layouts...)
}

// Rendered returns the last rendered text of every current unit.
func (b *Backend) Rendered() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.units))
	for i, u := range b.units {
		out[i] = u.rendered
	}
	return out
}

// History returns every committed frame.
func (b *Backend) History() [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]string(nil), b.history...)
}

// Commits returns the number of commits.
func (b *Backend) Commits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commits
}

// Setups returns how often a first unit was set up.
func (b *Backend) Setups() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.setups
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Unit is a recording display.
type Unit struct {
	backend  *Backend
	index    int
	digits   int
	text     string
	rendered string
}

func (u *Unit) Digits() int { return u.digits }

func (u *Unit) SetText(text string) { u.text = text }

func (u *Unit) Setup() error {
	u.backend.mu.Lock()
	defer u.backend.mu.Unlock()
	u.backend.setups++
	return nil
}

func (u *Unit) Render() error {
	u.backend.mu.Lock()
	defer u.backend.mu.Unlock()
	if u.backend.renderFn != nil {
		if err := u.backend.renderFn(u.index, u.text); err != nil {
			return err
		}
	}
	u.rendered = u.text
	return nil
}
