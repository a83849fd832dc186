package serviceio

import (
	"github.com/rs/zerolog"

	"github.com/timzifer/metricdisplay/config"
	"github.com/timzifer/metricdisplay/layout"
)

// Unit models one physical digit display.
//
// SetText only stores the text; Render pushes it to the hardware. Units are not
// safe for concurrent use, the display array serializes all access.
type Unit interface {
	Digits() int
	SetText(text string)
	Render() error
}

// Setupper is implemented by units that need a one-time hardware initialisation
// after construction.
type Setupper interface {
	Setup() error
}

// Backend creates units for a layout.
//
// Units returns one unit per layout entry in order. Backends that stage writes and
// push the whole chain at once additionally implement Committer.
type Backend interface {
	Name() string
	Units(cfg layout.Configuration) ([]Unit, error)
	Close() error
}

// Committer is implemented by backends whose units share one output chain.
// Commit is called once after every unit rendered.
type Committer interface {
	Commit() error
}

// BackendDependencies carries shared runtime facilities into backend factories.
type BackendDependencies struct {
	Logger zerolog.Logger
}

// BackendFactory constructs a display backend from configuration.
//
// Factories allow hardware drivers to be wired into the processor without
// coupling the engine to concrete types.
type BackendFactory func(cfg config.DisplayConfig, deps BackendDependencies) (Backend, error)
