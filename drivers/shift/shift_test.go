package shift

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/gpio"

	"github.com/stretchr/testify/require"

	"github.com/timzifer/metricdisplay/config"
	"github.com/timzifer/metricdisplay/layout"
	"github.com/timzifer/metricdisplay/runtime/segments"
	"github.com/timzifer/metricdisplay/serviceio"
)

// register emulates a 74HC595 chain: bits enter on rising clock edges and are
// copied to the outputs on a rising latch edge.
type register struct {
	data    gpio.Level
	clock   gpio.Level
	latch   gpio.Level
	shifted []gpio.Level
	latched [][]gpio.Level
	fail    error
}

type pin struct {
	chain *register
	set   func(gpio.Level)
}

func (p pin) Out(l gpio.Level) error {
	if p.chain.fail != nil {
		return p.chain.fail
	}
	p.set(l)
	return nil
}

func newRegister() (*register, Pins) {
	r := &register{}
	pins := Pins{
		Data: pin{chain: r, set: func(l gpio.Level) { r.data = l }},
		Clock: pin{chain: r, set: func(l gpio.Level) {
			if l && !r.clock {
				r.shifted = append(r.shifted, r.data)
			}
			r.clock = l
		}},
		Latch: pin{chain: r, set: func(l gpio.Level) {
			if l && !r.latch {
				r.latched = append(r.latched, append([]gpio.Level(nil), r.shifted...))
				r.shifted = nil
			}
			r.latch = l
		}},
	}
	return r, pins
}

// bytesFromBits reassembles the bit stream, which carries the last byte first
// with each byte MSB first.
func bytesFromBits(bits []gpio.Level) []byte {
	count := len(bits) / 8
	out := make([]byte, count)
	for i := 0; i < count; i++ {
		var b byte
		for _, bit := range bits[i*8 : i*8+8] {
			b <<= 1
			if bit {
				b |= 1
			}
		}
		out[count-1-i] = b
	}
	return out
}

func TestCommitShiftsAllUnitsInOneLatch(t *testing.T) {
	reg, pins := newRegister()
	backend := New(pins)

	units, err := backend.Units(layout.Configuration{{Digits: 2, ID: 1}, {Digits: 3, ID: 2}})
	require.NoError(t, err)
	require.Len(t, units, 2)
	require.Equal(t, 2, units[0].Digits())
	require.Equal(t, 3, units[1].Digits())

	setup, ok := units[0].(serviceio.Setupper)
	require.True(t, ok)
	require.NoError(t, setup.Setup())

	units[0].SetText("42")
	units[1].SetText("1.5")
	for _, u := range units {
		require.NoError(t, u.Render())
	}
	require.Empty(t, reg.latched, "render must only stage")

	require.NoError(t, backend.Commit())
	require.Len(t, reg.latched, 1)

	want := append(segments.Encode("42", 2), segments.Encode("1.5", 3)...)
	require.Equal(t, want, bytesFromBits(reg.latched[0]))
	require.Equal(t, gpio.Low, reg.latch)
	require.Equal(t, gpio.Low, reg.clock)
}

func TestCloseBlanksChain(t *testing.T) {
	reg, pins := newRegister()
	backend := New(pins)
	units, err := backend.Units(layout.Configuration{{Digits: 4, ID: 9}})
	require.NoError(t, err)
	require.NoError(t, units[0].(serviceio.Setupper).Setup())

	units[0].SetText("8888")
	require.NoError(t, units[0].Render())
	require.NoError(t, backend.Commit())

	require.NoError(t, backend.Close())
	require.Len(t, reg.latched, 2)
	require.Equal(t, []byte{0, 0, 0, 0}, bytesFromBits(reg.latched[1]))
}

func TestSetupSwitchesToNewUnits(t *testing.T) {
	reg, pins := newRegister()
	backend := New(pins)
	units, err := backend.Units(layout.Configuration{{Digits: 1, ID: 1}})
	require.NoError(t, err)
	require.NoError(t, units[0].(serviceio.Setupper).Setup())
	units[0].SetText("8")
	require.NoError(t, units[0].Render())

	next, err := backend.Units(layout.Configuration{{Digits: 1, ID: 1}, {Digits: 1, ID: 2}})
	require.NoError(t, err)
	require.NoError(t, next[0].(serviceio.Setupper).Setup())

	// a unit from the previous layout no longer writes into the chain
	require.NoError(t, units[0].Render())
	require.NoError(t, backend.Commit())
	require.Len(t, reg.latched, 1)
	require.Equal(t, []byte{0, 0}, bytesFromBits(reg.latched[0]))
}

func TestFailedSetupKeepsPreviousUnits(t *testing.T) {
	reg, pins := newRegister()
	backend := New(pins)
	units, err := backend.Units(layout.Configuration{{Digits: 1, ID: 1}})
	require.NoError(t, err)
	require.NoError(t, units[0].(serviceio.Setupper).Setup())

	next, err := backend.Units(layout.Configuration{{Digits: 2, ID: 1}, {Digits: 2, ID: 2}})
	require.NoError(t, err)
	reg.fail = errors.New("line stuck")
	require.Error(t, next[0].(serviceio.Setupper).Setup())
	reg.fail = nil

	units[0].SetText("7")
	require.NoError(t, units[0].Render())
	require.NoError(t, backend.Commit())
	require.Len(t, reg.latched, 1)
	require.Equal(t, segments.Encode("7", 1), bytesFromBits(reg.latched[0]))
}

func TestUnitsRejectEmptyDisplays(t *testing.T) {
	_, pins := newRegister()
	_, err := New(pins).Units(layout.Configuration{{Digits: 0, ID: 1}})
	require.ErrorContains(t, err, "digit count")
}

func TestWriteErrorsSurface(t *testing.T) {
	reg, pins := newRegister()
	backend := New(pins)
	units, err := backend.Units(layout.Configuration{{Digits: 1, ID: 1}})
	require.NoError(t, err)

	reg.fail = errors.New("bus gone")
	require.Error(t, units[0].(serviceio.Setupper).Setup())
	require.ErrorIs(t, backend.Commit(), reg.fail)
}

func TestUnitsRequirePins(t *testing.T) {
	_, err := New(Pins{}).Units(layout.Configuration{{Digits: 1, ID: 1}})
	require.Error(t, err)
	require.NoError(t, New(Pins{}).Close())
}

func TestFactoryRejectsUnknownPin(t *testing.T) {
	cfg := config.DisplayConfig{Shift: config.ShiftConfig{DataPin: "NOPE_DATA", ClockPin: "NOPE_CLK", LatchPin: "NOPE_LATCH"}}
	_, err := Factory(cfg, serviceio.BackendDependencies{})
	require.ErrorContains(t, err, "NOPE_DATA")
}
