package remote

import (
	"fmt"

	"github.com/timzifer/metricdisplay/layout"
)

// ConnectivityError reports that the remote service could not be reached. It
// aborts the whole poll cycle.
type ConnectivityError struct {
	URL string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("remote unreachable at %s: %v", e.URL, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx answer for one display. Only that display is
// affected.
type StatusError struct {
	ID         layout.Identity
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote answered %d for display %d", e.StatusCode, e.ID)
}
