// Package ht16k33 drives seven-segment displays attached to HT16K33 LED
// controllers on an I²C bus. Display i of the layout answers on base address + i.
package ht16k33

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"

	"github.com/timzifer/metricdisplay/config"
	"github.com/timzifer/metricdisplay/layout"
	"github.com/timzifer/metricdisplay/runtime/segments"
	"github.com/timzifer/metricdisplay/serviceio"
)

const (
	cmdOscillatorOn = 0x21
	cmdDisplayOn    = 0x81
	cmdDisplayOff   = 0x80
	cmdBrightness   = 0xE0
	maxBrightness   = 0x0F
	maxAddress      = 0x7F
	ramRows         = 8
)

// Backend owns one I²C bus.
type Backend struct {
	bus    i2c.Bus
	base   uint16
	slots  []int
	logger zerolog.Logger

	mu    sync.Mutex
	units []*unit
}

// New creates a backend on bus. Units are addressed from base upwards.
func New(bus i2c.Bus, base uint16, logger zerolog.Logger) *Backend {
	return &Backend{bus: bus, base: base, logger: logger}
}

// Factory opens the configured bus through the periph registry. An empty bus
// name selects the first bus available.
func Factory(cfg config.DisplayConfig, deps serviceio.BackendDependencies) (serviceio.Backend, error) {
	bus, err := i2creg.Open(cfg.I2C.Bus)
	if err != nil {
		return nil, fmt.Errorf("ht16k33: open bus %q: %w", cfg.I2C.Bus, err)
	}
	logger := deps.Logger.With().Str("bus", bus.String()).Logger()
	backend := New(bus, cfg.I2C.BaseAddress, logger)
	if err := backend.SetDigitSlots(cfg.I2C.DigitSlots); err != nil {
		if closer, ok := bus.(io.Closer); ok {
			closer.Close()
		}
		return nil, err
	}
	return backend, nil
}

// SetDigitSlots maps digit i of every display to RAM row slots[i]. Without a
// map digit i uses row i. Backpacks with a colon between the second and third
// digit, such as the common 4-digit boards, need {0, 1, 3, 4}.
func (b *Backend) SetDigitSlots(slots []int) error {
	seen := make(map[int]bool, len(slots))
	for i, slot := range slots {
		if slot < 0 || slot >= ramRows {
			return fmt.Errorf("ht16k33: digit %d: slot %d outside 0..%d", i, slot, ramRows-1)
		}
		if seen[slot] {
			return fmt.Errorf("ht16k33: digit %d: slot %d used twice", i, slot)
		}
		seen[slot] = true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots = append([]int(nil), slots...)
	return nil
}

func (b *Backend) Name() string { return config.BackendHT16K33 }

func (b *Backend) Units(cfg layout.Configuration) ([]serviceio.Unit, error) {
	if b.bus == nil {
		return nil, errors.New("ht16k33: no bus")
	}
	if len(cfg) > 0 && int(b.base)+len(cfg)-1 > maxAddress {
		return nil, fmt.Errorf("ht16k33: %d displays from 0x%02X exceed the 7-bit address range", len(cfg), b.base)
	}
	b.mu.Lock()
	slots := b.slots
	b.mu.Unlock()
	if len(slots) == 0 {
		slots = make([]int, ramRows)
		for i := range slots {
			slots[i] = i
		}
	}

	created := make([]*unit, len(cfg))
	units := make([]serviceio.Unit, len(cfg))
	for i, entry := range cfg {
		if entry.Digits > len(slots) {
			return nil, fmt.Errorf("ht16k33: display %d has %d digits, the controller maps %d", i, entry.Digits, len(slots))
		}
		u := &unit{
			dev:    &i2c.Dev{Bus: b.bus, Addr: b.base + uint16(i)},
			digits: entry.Digits,
			slots:  slots[:entry.Digits],
			logger: b.logger,
		}
		created[i] = u
		units[i] = u
	}
	b.mu.Lock()
	b.units = created
	b.mu.Unlock()
	return units, nil
}

// Close switches every known controller off and releases the bus.
func (b *Backend) Close() error {
	b.mu.Lock()
	units := b.units
	b.units = nil
	b.mu.Unlock()

	var errs []error
	for _, u := range units {
		if !u.ready {
			continue
		}
		if _, err := u.dev.Write([]byte{cmdDisplayOff}); err != nil {
			errs = append(errs, fmt.Errorf("ht16k33: 0x%02X off: %w", u.dev.Addr, err))
		}
	}
	if closer, ok := b.bus.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type unit struct {
	dev    *i2c.Dev
	digits int
	slots  []int
	text   string
	ready  bool
	logger zerolog.Logger
}

func (u *unit) Digits() int { return u.digits }

func (u *unit) SetText(text string) { u.text = text }

// Render writes the pattern into display RAM from address 0. Every RAM row is
// two bytes wide and digit i goes to the low byte of row slots[i]; rows
// without a digit are cleared. The controller is initialised on first use and
// again after any failed write.
func (u *unit) Render() error {
	if !u.ready {
		if err := u.init(); err != nil {
			return err
		}
	}
	cells := segments.Encode(u.text, u.digits)
	rows := 0
	for _, slot := range u.slots {
		if slot+1 > rows {
			rows = slot + 1
		}
	}
	buf := make([]byte, 1+2*rows)
	for i, cell := range cells {
		buf[1+2*u.slots[i]] = cell
	}
	if _, err := u.dev.Write(buf); err != nil {
		u.ready = false
		return fmt.Errorf("ht16k33: 0x%02X write: %w", u.dev.Addr, err)
	}
	return nil
}

func (u *unit) init() error {
	for _, cmd := range []byte{cmdOscillatorOn, cmdDisplayOn, cmdBrightness | maxBrightness} {
		if _, err := u.dev.Write([]byte{cmd}); err != nil {
			return fmt.Errorf("ht16k33: 0x%02X init: %w", u.dev.Addr, err)
		}
	}
	u.ready = true
	u.logger.Debug().Uint16("address", u.dev.Addr).Msg("controller initialised")
	return nil
}
