package layout

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned by sources whose underlying medium could not be read.
// Callers keep the previously active configuration.
var ErrUnavailable = errors.New("layout unavailable")

// Identity identifies one physical display towards the remote service and the operator.
type Identity int

// Entry describes one attached display.
type Entry struct {
	Digits int      `yaml:"digits"`
	ID     Identity `yaml:"id"`
}

// Configuration is the ordered list of attached displays. Index i maps to display unit i.
type Configuration []Entry

// Equal reports order-sensitive equality.
func (c Configuration) Equal(other Configuration) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (c Configuration) Clone() Configuration {
	if c == nil {
		return nil
	}
	out := make(Configuration, len(c))
	copy(out, c)
	return out
}

// Validate checks digit counts and identity uniqueness.
func (c Configuration) Validate() error {
	seen := make(map[Identity]int, len(c))
	for i, entry := range c {
		if entry.Digits < 1 {
			return fmt.Errorf("display %d: digit count must be >= 1, got %d", i, entry.Digits)
		}
		if prev, ok := seen[entry.ID]; ok {
			return fmt.Errorf("display %d: identity %d already used by display %d", i, entry.ID, prev)
		}
		seen[entry.ID] = i
	}
	return nil
}

// Source provides the current display configuration.
//
// Setup is called once before the first Load. Load refreshes the source from its
// medium and may be a no-op. Read returns the configuration observed by the last
// Load or ErrUnavailable.
type Source interface {
	Setup() error
	Load() error
	Read() (Configuration, error)
	Close() error
}
