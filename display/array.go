// Package display owns the ordered set of digit displays built for one layout.
package display

import (
	"errors"
	"fmt"
	"sync"

	"github.com/timzifer/metricdisplay/layout"
	"github.com/timzifer/metricdisplay/serviceio"
)

// ErrIndexOutOfRange is returned when addressing a display past the end of the array.
var ErrIndexOutOfRange = errors.New("display index out of range")

// Array is the ordered display sequence. Position i corresponds to entry i of
// the layout it was built from. All operations are serialized.
type Array struct {
	mu      sync.Mutex
	backend serviceio.Backend
	cfg     layout.Configuration
	units   []serviceio.Unit
	texts   []string
}

// Build creates one display per layout entry, in layout order. The first display
// carries the one-time setup for backends that share a bus between displays.
func Build(backend serviceio.Backend, cfg layout.Configuration) (*Array, error) {
	if backend == nil {
		return nil, errors.New("display: backend is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("display: %w", err)
	}
	units, err := backend.Units(cfg)
	if err != nil {
		return nil, fmt.Errorf("display: %s units: %w", backend.Name(), err)
	}
	if len(units) != len(cfg) {
		return nil, fmt.Errorf("display: %s returned %d units for %d layout entries", backend.Name(), len(units), len(cfg))
	}
	if len(units) > 0 {
		if setup, ok := units[0].(serviceio.Setupper); ok {
			if err := setup.Setup(); err != nil {
				return nil, fmt.Errorf("display: setup: %w", err)
			}
		}
	}
	return &Array{
		backend: backend,
		cfg:     cfg.Clone(),
		units:   units,
		texts:   make([]string, len(units)),
	}, nil
}

// Len returns the number of displays.
func (a *Array) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.units)
}

// Layout returns a copy of the layout the array was built from.
func (a *Array) Layout() layout.Configuration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.Clone()
}

// SetText stores text for display i without touching the hardware.
func (a *Array) SetText(i int, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i < 0 || i >= len(a.units) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(a.units))
	}
	a.texts[i] = text
	a.units[i].SetText(text)
	return nil
}

// SetAll stores texts for the first min(len(texts), Len()) displays.
func (a *Array) SetAll(texts []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setAll(texts)
}

func (a *Array) setAll(texts []string) {
	for i := 0; i < len(texts) && i < len(a.units); i++ {
		a.texts[i] = texts[i]
		a.units[i].SetText(texts[i])
	}
}

// Texts returns the currently stored texts.
func (a *Array) Texts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.texts))
	copy(out, a.texts)
	return out
}

// RenderAll pushes every display's stored text to the hardware. A failing
// display does not prevent the others from rendering.
func (a *Array) RenderAll() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.renderAll()
}

// Show stores texts and renders them in one step.
func (a *Array) Show(texts []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setAll(texts)
	return a.renderAll()
}

// Blank clears every display and renders immediately.
func (a *Array) Blank() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setAll(make([]string, len(a.units)))
	return a.renderAll()
}

func (a *Array) renderAll() error {
	var errs []error
	for i, unit := range a.units {
		if err := unit.Render(); err != nil {
			errs = append(errs, fmt.Errorf("display %d: %w", i, err))
		}
	}
	if committer, ok := a.backend.(serviceio.Committer); ok {
		if err := committer.Commit(); err != nil {
			errs = append(errs, fmt.Errorf("display commit: %w", err))
		}
	}
	return errors.Join(errs...)
}
