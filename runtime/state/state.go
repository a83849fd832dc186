package state

import "sync"

// Frame holds one text per display, in layout order.
type Frame []string

// Clone returns an independent copy.
func (f Frame) Clone() Frame {
	if f == nil {
		return nil
	}
	out := make(Frame, len(f))
	copy(out, f)
	return out
}

// Cell is the value handoff between the poller and the renderer.
//
// The poller replaces the frame after every successful cycle; each replacement
// toggles the blink flag so the renderer can show the operator that fresh data
// arrives. Cell is safe for concurrent use.
type Cell struct {
	mu    sync.Mutex
	frame Frame
	blink bool
	swaps uint64
}

// Swap publishes frame and toggles blink.
func (c *Cell) Swap(frame Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = frame.Clone()
	c.blink = !c.blink
	c.swaps++
}

// Snapshot returns a copy of the current frame and the blink flag.
func (c *Cell) Snapshot() (Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame.Clone(), c.blink
}

// Swaps returns how many frames have been published.
func (c *Cell) Swaps() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.swaps
}

// Reset drops the current frame. The blink phase is kept.
func (c *Cell) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = nil
}

// Decorate returns the texts to display for frame: with blink set every text
// gets a trailing decimal point.
func Decorate(frame Frame, blink bool) []string {
	out := make([]string, len(frame))
	for i, text := range frame {
		if blink {
			text += "."
		}
		out[i] = text
	}
	return out
}
