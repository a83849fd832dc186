// Package console simulates the display array on a terminal. Each display is
// drawn as a bordered box labelled with its identity.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/timzifer/metricdisplay/config"
	"github.com/timzifer/metricdisplay/layout"
	"github.com/timzifer/metricdisplay/runtime/segments"
	"github.com/timzifer/metricdisplay/serviceio"
)

var (
	colorDigits lipgloss.Color = "1"
	colorLabel  lipgloss.Color = "8"
)

// Backend renders frames to a writer. A frame is written only when it differs
// from the previous one.
type Backend struct {
	out   io.Writer
	box   lipgloss.Style
	label lipgloss.Style

	mu     sync.Mutex
	ids    []layout.Identity
	staged [][]segments.Cell
	last   string
}

// New creates a console backend writing to out.
func New(out io.Writer) *Backend {
	renderer := lipgloss.NewRenderer(out)
	return &Backend{
		out: out,
		box: renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Foreground(colorDigits),
		label: renderer.NewStyle().Foreground(colorLabel),
	}
}

// Factory draws on standard output.
func Factory(_ config.DisplayConfig, _ serviceio.BackendDependencies) (serviceio.Backend, error) {
	return New(os.Stdout), nil
}

func (b *Backend) Name() string { return config.BackendConsole }

func (b *Backend) Units(cfg layout.Configuration) ([]serviceio.Unit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ids = make([]layout.Identity, len(cfg))
	b.staged = make([][]segments.Cell, len(cfg))
	b.last = ""
	units := make([]serviceio.Unit, len(cfg))
	for i, entry := range cfg {
		b.ids[i] = entry.ID
		b.staged[i] = segments.Split("", entry.Digits)
		units[i] = &unit{console: b, index: i, digits: entry.Digits}
	}
	return units, nil
}

// Commit draws the staged frame.
func (b *Backend) Commit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	frame := b.draw()
	if frame == b.last {
		return nil
	}
	b.last = frame
	_, err := fmt.Fprintln(b.out, frame)
	return err
}

func (b *Backend) Close() error { return nil }

func (b *Backend) draw() string {
	boxes := make([]string, len(b.staged))
	for i, cells := range b.staged {
		title := b.label.Render(fmt.Sprintf("#%d", b.ids[i]))
		boxes[i] = lipgloss.JoinVertical(lipgloss.Center, title, b.box.Render(cellText(cells)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, boxes...)
}

// cellText gives every cell two columns: the glyph and its decimal point.
func cellText(cells []segments.Cell) string {
	var sb strings.Builder
	for _, cell := range cells {
		r := cell.Rune
		if segments.Glyph(r) == 0 {
			r = ' '
		}
		sb.WriteRune(r)
		if cell.Dot {
			sb.WriteByte('.')
		} else {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

func (b *Backend) stage(index int, cells []segments.Cell) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index >= len(b.staged) || len(b.staged[index]) != len(cells) {
		return
	}
	b.staged[index] = cells
}

type unit struct {
	console *Backend
	index   int
	digits  int
	text    string
}

func (u *unit) Digits() int { return u.digits }

func (u *unit) SetText(text string) { u.text = text }

func (u *unit) Render() error {
	u.console.stage(u.index, segments.Split(u.text, u.digits))
	return nil
}
