package dashboard

import (
	"fmt"
	"strings"
)

// InitializationError reports that the page document lacks elements the
// dashboard needs. A page that fails initialization is never rendered into.
type InitializationError struct {
	Missing []string
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("dashboard: required elements not found: %s", strings.Join(e.Missing, ", "))
}

// RequestError reports a failed poll cycle. StatusCode is set when the
// endpoint answered with a non-2xx status; otherwise Err holds the transport
// or decoding failure.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("dashboard: HTTP error: %d", e.StatusCode)
	}
	return fmt.Sprintf("dashboard: request failed: %v", e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
