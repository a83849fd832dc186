package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSwapTogglesBlink(t *testing.T) {
	var cell Cell
	_, blink := cell.Snapshot()
	require.False(t, blink)

	for n := 1; n <= 7; n++ {
		cell.Swap(Frame{"1"})
		_, blink = cell.Snapshot()
		require.Equal(t, n%2 == 1, blink, "after %d swaps", n)
	}
	require.EqualValues(t, 7, cell.Swaps())
}

func TestSwapCopiesFrame(t *testing.T) {
	var cell Cell
	frame := Frame{"12", "34"}
	cell.Swap(frame)
	frame[0] = "99"

	got, _ := cell.Snapshot()
	require.Equal(t, Frame{"12", "34"}, got)
	got[1] = "00"
	again, _ := cell.Snapshot()
	require.Equal(t, Frame{"12", "34"}, again)
}

func TestResetKeepsBlinkPhase(t *testing.T) {
	var cell Cell
	cell.Swap(Frame{"1"})
	cell.Reset()
	frame, blink := cell.Snapshot()
	require.Empty(t, frame)
	require.True(t, blink)
}

func TestConcurrentSwaps(t *testing.T) {
	var cell Cell
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cell.Swap(Frame{"x"})
				cell.Snapshot()
			}
		}()
	}
	wg.Wait()
	_, blink := cell.Snapshot()
	require.False(t, blink)
	require.EqualValues(t, 1000, cell.Swaps())
}

func TestDecorate(t *testing.T) {
	require.Equal(t, []string{"12", "__"}, Decorate(Frame{"12", "__"}, false))
	require.Equal(t, []string{"12.", "__."}, Decorate(Frame{"12", "__"}, true))
	require.Empty(t, Decorate(nil, true))
}
