package ht16k33

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"

	"github.com/timzifer/metricdisplay/layout"
	"github.com/timzifer/metricdisplay/runtime/segments"
)

func TestRenderInitialisesOnceAndWritesRAM(t *testing.T) {
	bus := &i2ctest.Record{}
	backend := New(bus, 0x70, zerolog.Nop())

	units, err := backend.Units(layout.Configuration{{Digits: 2, ID: 4}, {Digits: 1, ID: 5}})
	require.NoError(t, err)
	require.Len(t, units, 2)

	units[0].SetText("42")
	require.NoError(t, units[0].Render())
	units[0].SetText("7")
	require.NoError(t, units[0].Render())
	units[1].SetText("1.")
	require.NoError(t, units[1].Render())

	four, two := segments.Glyph('4'), segments.Glyph('2')
	seven, one := segments.Glyph('7'), segments.Glyph('1')
	want := []i2ctest.IO{
		{Addr: 0x70, W: []byte{0x21}},
		{Addr: 0x70, W: []byte{0x81}},
		{Addr: 0x70, W: []byte{0xEF}},
		{Addr: 0x70, W: []byte{0x00, four, 0x00, two, 0x00}},
		{Addr: 0x70, W: []byte{0x00, 0x00, 0x00, seven, 0x00}},
		{Addr: 0x71, W: []byte{0x21}},
		{Addr: 0x71, W: []byte{0x81}},
		{Addr: 0x71, W: []byte{0xEF}},
		{Addr: 0x71, W: []byte{0x00, one | segments.DP, 0x00}},
	}
	require.Equal(t, len(want), len(bus.Ops))
	for i, op := range want {
		require.Equal(t, op.Addr, bus.Ops[i].Addr, "op %d", i)
		require.Equal(t, op.W, bus.Ops[i].W, "op %d", i)
	}
}

func TestCloseTurnsInitialisedControllersOff(t *testing.T) {
	bus := &i2ctest.Record{}
	backend := New(bus, 0x70, zerolog.Nop())
	units, err := backend.Units(layout.Configuration{{Digits: 1, ID: 1}, {Digits: 1, ID: 2}})
	require.NoError(t, err)
	require.NoError(t, units[1].Render())

	before := len(bus.Ops)
	require.NoError(t, backend.Close())
	require.Len(t, bus.Ops, before+1)
	last := bus.Ops[len(bus.Ops)-1]
	require.Equal(t, uint16(0x71), last.Addr)
	require.Equal(t, []byte{0x80}, last.W)
}

func TestAddressRangeIsChecked(t *testing.T) {
	backend := New(&i2ctest.Record{}, 0x7E, zerolog.Nop())
	_, err := backend.Units(layout.Configuration{{Digits: 1, ID: 1}, {Digits: 1, ID: 2}})
	require.NoError(t, err)
	_, err = backend.Units(layout.Configuration{{Digits: 1, ID: 1}, {Digits: 1, ID: 2}, {Digits: 1, ID: 3}})
	require.Error(t, err)
}

type flakyBus struct {
	fail   bool
	writes [][]byte
}

func (f *flakyBus) String() string { return "flaky" }

func (f *flakyBus) Tx(_ uint16, w, _ []byte) error {
	if f.fail {
		return errors.New("nack")
	}
	f.writes = append(f.writes, append([]byte(nil), w...))
	return nil
}

func (f *flakyBus) SetSpeed(physic.Frequency) error { return nil }

func TestFailedWriteReinitialises(t *testing.T) {
	bus := &flakyBus{}
	backend := New(bus, 0x70, zerolog.Nop())
	units, err := backend.Units(layout.Configuration{{Digits: 1, ID: 1}})
	require.NoError(t, err)

	require.NoError(t, units[0].Render())
	require.Len(t, bus.writes, 4)

	bus.fail = true
	require.Error(t, units[0].Render())

	bus.fail = false
	bus.writes = nil
	require.NoError(t, units[0].Render())
	require.Len(t, bus.writes, 4)
	require.Equal(t, []byte{0x21}, bus.writes[0])
}

func TestDigitSlotsSkipColonRow(t *testing.T) {
	bus := &i2ctest.Record{}
	backend := New(bus, 0x70, zerolog.Nop())
	require.NoError(t, backend.SetDigitSlots([]int{0, 1, 3, 4}))

	units, err := backend.Units(layout.Configuration{{Digits: 4, ID: 1}})
	require.NoError(t, err)
	units[0].SetText("1234")
	require.NoError(t, units[0].Render())

	g := segments.Glyph
	last := bus.Ops[len(bus.Ops)-1]
	require.Equal(t, []byte{0x00, g('1'), 0x00, g('2'), 0x00, 0x00, 0x00, g('3'), 0x00, g('4'), 0x00}, last.W)

	_, err = backend.Units(layout.Configuration{{Digits: 5, ID: 1}})
	require.ErrorContains(t, err, "maps 4")
}

func TestDigitSlotsAreValidated(t *testing.T) {
	backend := New(&i2ctest.Record{}, 0x70, zerolog.Nop())
	require.Error(t, backend.SetDigitSlots([]int{0, 8}))
	require.Error(t, backend.SetDigitSlots([]int{1, 1}))
	require.NoError(t, backend.SetDigitSlots(nil))

	_, err := backend.Units(layout.Configuration{{Digits: 9, ID: 1}})
	require.Error(t, err)
}
