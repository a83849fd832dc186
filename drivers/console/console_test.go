package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timzifer/metricdisplay/layout"
	"github.com/timzifer/metricdisplay/runtime/segments"
)

func TestCommitDrawsLabelledBoxes(t *testing.T) {
	var buf bytes.Buffer
	backend := New(&buf)

	units, err := backend.Units(layout.Configuration{{Digits: 3, ID: 7}, {Digits: 2, ID: 12}})
	require.NoError(t, err)
	units[0].SetText("1.5")
	units[1].SetText("42")
	for _, u := range units {
		require.NoError(t, u.Render())
	}
	require.NoError(t, backend.Commit())

	out := buf.String()
	require.Contains(t, out, "#7")
	require.Contains(t, out, "#12")
	require.Contains(t, out, "1.5")
	require.Contains(t, out, "4 2")
}

func TestCommitSkipsUnchangedFrames(t *testing.T) {
	var buf bytes.Buffer
	backend := New(&buf)
	units, err := backend.Units(layout.Configuration{{Digits: 2, ID: 1}})
	require.NoError(t, err)

	units[0].SetText("10")
	require.NoError(t, units[0].Render())
	require.NoError(t, backend.Commit())
	first := buf.Len()
	require.Positive(t, first)

	require.NoError(t, units[0].Render())
	require.NoError(t, backend.Commit())
	require.Equal(t, first, buf.Len())

	units[0].SetText("11")
	require.NoError(t, units[0].Render())
	require.NoError(t, backend.Commit())
	require.Greater(t, buf.Len(), first)
}

func TestCellText(t *testing.T) {
	require.Equal(t, "  1.5 ", cellText(segments.Split("1.5", 3)))
	require.Equal(t, "_ _ ", cellText(segments.Split("__", 2)))
	require.Equal(t, "  ", cellText(segments.Split("~", 1)))
}

func TestCloseIsNoop(t *testing.T) {
	backend := New(&bytes.Buffer{})
	require.NoError(t, backend.Close())
	_, err := backend.Units(nil)
	require.NoError(t, err)
	require.NoError(t, backend.Commit())
	require.Equal(t, "", strings.TrimSpace(backend.last))
}
