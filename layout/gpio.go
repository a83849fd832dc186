package layout

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
)

const (
	wordBits     = 16
	digitsShift  = 12
	identityMask = 0x0FFF
)

// OutputPin is the subset of gpio.PinOut used to drive the input chain.
type OutputPin interface {
	Out(l gpio.Level) error
}

// InputPin is the subset of gpio.PinIn used to sample the serial output of the chain.
type InputPin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
}

// GPIOPins wires a chain of parallel-in/serial-out shift registers (74HC165).
type GPIOPins struct {
	Load  OutputPin
	Clock OutputPin
	Data  InputPin
}

// GPIO reads the configuration reported by the attached displays' configuration
// circuit. Every display reports one 16-bit word: the high nibble is its digit
// count, the low 12 bits its identity. The first all-zero word ends the list.
type GPIO struct {
	pins        GPIOPins
	maxDisplays int

	mu  sync.Mutex
	cfg Configuration
	err error
}

// NewGPIO creates a source sampling up to maxDisplays words from the chain.
func NewGPIO(pins GPIOPins, maxDisplays int) *GPIO {
	if maxDisplays <= 0 {
		maxDisplays = 8
	}
	return &GPIO{pins: pins, maxDisplays: maxDisplays, err: ErrUnavailable}
}

// Setup configures the pins: load idles high, clock idles low.
func (g *GPIO) Setup() error {
	if g.pins.Load == nil || g.pins.Clock == nil || g.pins.Data == nil {
		return errors.New("layout gpio: load, clock and data pins are required")
	}
	if err := g.pins.Load.Out(gpio.High); err != nil {
		return fmt.Errorf("layout gpio: load pin: %w", err)
	}
	if err := g.pins.Clock.Out(gpio.Low); err != nil {
		return fmt.Errorf("layout gpio: clock pin: %w", err)
	}
	if err := g.pins.Data.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return fmt.Errorf("layout gpio: data pin: %w", err)
	}
	return nil
}

// Load latches the parallel inputs and clocks the words in.
func (g *GPIO) Load() error {
	words, err := g.sample()
	var cfg Configuration
	if err == nil {
		cfg, err = decodeWords(words)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.cfg = nil
		g.err = err
		return err
	}
	g.cfg = cfg
	g.err = nil
	return nil
}

// Read returns the configuration sampled by the last Load.
func (g *GPIO) Read() (Configuration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil || len(g.cfg) == 0 {
		return nil, ErrUnavailable
	}
	return g.cfg.Clone(), nil
}

// Close returns the clock line to idle.
func (g *GPIO) Close() error {
	if g.pins.Clock == nil {
		return nil
	}
	return g.pins.Clock.Out(gpio.Low)
}

func (g *GPIO) sample() ([]uint16, error) {
	if err := g.pins.Load.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("layout gpio: latch: %w", err)
	}
	if err := g.pins.Load.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("layout gpio: latch: %w", err)
	}
	words := make([]uint16, 0, g.maxDisplays)
	for i := 0; i < g.maxDisplays; i++ {
		var word uint16
		for bit := 0; bit < wordBits; bit++ {
			word <<= 1
			if g.pins.Data.Read() == gpio.High {
				word |= 1
			}
			if err := g.pins.Clock.Out(gpio.High); err != nil {
				return nil, fmt.Errorf("layout gpio: clock: %w", err)
			}
			if err := g.pins.Clock.Out(gpio.Low); err != nil {
				return nil, fmt.Errorf("layout gpio: clock: %w", err)
			}
		}
		if word == 0 {
			break
		}
		words = append(words, word)
	}
	return words, nil
}

func decodeWords(words []uint16) (Configuration, error) {
	cfg := make(Configuration, 0, len(words))
	for _, word := range words {
		cfg = append(cfg, Entry{
			Digits: int(word >> digitsShift),
			ID:     Identity(word & identityMask),
		})
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("layout gpio: %w", err)
	}
	return cfg, nil
}
