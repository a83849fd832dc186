package service

import (
	"time"

	"go.uber.org/atomic"
)

type counters struct {
	polls               atomic.Uint64
	failures            atomic.Uint64
	consecutiveFailures atomic.Uint64
	rebuilds            atomic.Uint64
	renderErrors        atomic.Uint64
	displays            atomic.Int64
	lastSuccess         atomic.Time
}

// Status is a point-in-time view of the engine.
type Status struct {
	Backend      string    `json:"backend"`
	Displays     int       `json:"displays"`
	Polls        uint64    `json:"polls"`
	Failures     uint64    `json:"failures"`
	Rebuilds     uint64    `json:"rebuilds"`
	RenderErrors uint64    `json:"render_errors"`
	LastSuccess  time.Time `json:"last_success"`
	Blink        bool      `json:"blink"`
}

// Status returns the current counters.
func (s *Service) Status() Status {
	_, blink := s.frame.Snapshot()
	return Status{
		Backend:      s.backend.Name(),
		Displays:     int(s.status.displays.Load()),
		Polls:        s.status.polls.Load(),
		Failures:     s.status.failures.Load(),
		Rebuilds:     s.status.rebuilds.Load(),
		RenderErrors: s.status.renderErrors.Load(),
		LastSuccess:  s.status.lastSuccess.Load(),
		Blink:        blink,
	}
}

// Healthy reports whether displays are attached and the last poll reached the
// metrics service.
func (s *Service) Healthy() bool {
	return s.status.displays.Load() > 0 && s.status.consecutiveFailures.Load() == 0
}
