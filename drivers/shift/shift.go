// Package shift drives seven-segment displays through a chain of 74HC595 shift
// registers. All displays share one data, clock and latch line; a display's
// position in the chain is its address.
package shift

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/timzifer/metricdisplay/config"
	"github.com/timzifer/metricdisplay/layout"
	"github.com/timzifer/metricdisplay/runtime/segments"
	"github.com/timzifer/metricdisplay/serviceio"
)

// Pin is the subset of gpio.PinOut used by the chain.
type Pin interface {
	Out(l gpio.Level) error
}

// Pins wires the chain.
type Pins struct {
	Data  Pin
	Clock Pin
	Latch Pin
}

// Backend owns the register chain.
type Backend struct {
	pins Pins

	mu     sync.Mutex
	active *chainFrame
}

// chainFrame holds the staged patterns of one set of units. It becomes the
// chain's active frame once its first unit is set up.
type chainFrame struct {
	cells [][]byte
}

func (b *Backend) staged() [][]byte {
	if b.active == nil {
		return nil
	}
	return b.active.cells
}

// New creates a chain backend on the given pins.
func New(pins Pins) *Backend {
	return &Backend{pins: pins}
}

// Factory resolves the configured pin names through the periph registry.
func Factory(cfg config.DisplayConfig, _ serviceio.BackendDependencies) (serviceio.Backend, error) {
	resolve := func(name string) (Pin, error) {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("shift: unknown gpio pin %q", name)
		}
		return pin, nil
	}
	data, err := resolve(cfg.Shift.DataPin)
	if err != nil {
		return nil, err
	}
	clock, err := resolve(cfg.Shift.ClockPin)
	if err != nil {
		return nil, err
	}
	latch, err := resolve(cfg.Shift.LatchPin)
	if err != nil {
		return nil, err
	}
	return New(Pins{Data: data, Clock: clock, Latch: latch}), nil
}

func (b *Backend) Name() string { return config.BackendShift }

// Units creates one staged unit per layout entry. The chain keeps shifting the
// previous units until Setup on one of the new units succeeds.
func (b *Backend) Units(cfg layout.Configuration) ([]serviceio.Unit, error) {
	if b.pins.Data == nil || b.pins.Clock == nil || b.pins.Latch == nil {
		return nil, errors.New("shift: data, clock and latch pins are required")
	}
	frame := &chainFrame{cells: make([][]byte, len(cfg))}
	units := make([]serviceio.Unit, len(cfg))
	for i, entry := range cfg {
		if entry.Digits < 1 {
			return nil, fmt.Errorf("shift: display %d: digit count must be >= 1, got %d", i, entry.Digits)
		}
		frame.cells[i] = make([]byte, entry.Digits)
		units[i] = &unit{chain: b, frame: frame, index: i, digits: entry.Digits}
	}
	return units, nil
}

// Commit shifts the staged patterns of every unit into the chain and latches them.
func (b *Backend) Commit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shiftOut(b.staged())
}

// Close blanks the chain and drives every line low.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pins.Data == nil || b.pins.Clock == nil || b.pins.Latch == nil {
		return nil
	}
	staged := b.staged()
	blank := make([][]byte, len(staged))
	for i, cells := range staged {
		blank[i] = make([]byte, len(cells))
	}
	return errors.Join(b.shiftOut(blank), b.idle())
}

func (b *Backend) idle() error {
	return errors.Join(
		b.pins.Data.Out(gpio.Low),
		b.pins.Clock.Out(gpio.Low),
		b.pins.Latch.Out(gpio.Low),
	)
}

// stage copies cells into frame; units of an inactive frame are ignored.
func (b *Backend) stage(frame *chainFrame, index int, cells []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if frame != b.active || index >= len(frame.cells) {
		return
	}
	copy(frame.cells[index], cells)
}

// shiftOut pushes the last byte first so that the first byte of unit 0 ends up
// in the register closest to the controller. Bytes go out MSB first.
func (b *Backend) shiftOut(units [][]byte) error {
	for u := len(units) - 1; u >= 0; u-- {
		cells := units[u]
		for c := len(cells) - 1; c >= 0; c-- {
			if err := b.shiftByte(cells[c]); err != nil {
				return err
			}
		}
	}
	if err := b.pins.Latch.Out(gpio.High); err != nil {
		return fmt.Errorf("shift: latch: %w", err)
	}
	if err := b.pins.Latch.Out(gpio.Low); err != nil {
		return fmt.Errorf("shift: latch: %w", err)
	}
	return nil
}

func (b *Backend) shiftByte(value byte) error {
	for bit := 7; bit >= 0; bit-- {
		if err := b.pins.Data.Out(gpio.Level(value&(1<<uint(bit)) != 0)); err != nil {
			return fmt.Errorf("shift: data: %w", err)
		}
		if err := b.pins.Clock.Out(gpio.High); err != nil {
			return fmt.Errorf("shift: clock: %w", err)
		}
		if err := b.pins.Clock.Out(gpio.Low); err != nil {
			return fmt.Errorf("shift: clock: %w", err)
		}
	}
	return nil
}

type unit struct {
	chain  *Backend
	frame  *chainFrame
	index  int
	digits int
	text   string
}

func (u *unit) Digits() int { return u.digits }

func (u *unit) SetText(text string) { u.text = text }

// Setup drives the shared lines low and makes the unit's frame the one the
// chain shifts. Only the first unit of a chain needs it.
func (u *unit) Setup() error {
	u.chain.mu.Lock()
	defer u.chain.mu.Unlock()
	if err := u.chain.idle(); err != nil {
		return fmt.Errorf("shift: setup: %w", err)
	}
	u.chain.active = u.frame
	return nil
}

// Render stages the unit's pattern; the chain is written by Commit.
func (u *unit) Render() error {
	u.chain.stage(u.frame, u.index, segments.Encode(u.text, u.digits))
	return nil
}
