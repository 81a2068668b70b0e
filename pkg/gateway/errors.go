package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSubmission marks every failed call to the external API: transport
	// errors and non-2xx responses alike. Calls are never retried.
	ErrSubmission = errors.New("gateway: submission failed")
	// ErrMalformedResponse is returned when a 2xx body cannot be decoded.
	ErrMalformedResponse = errors.New("gateway: malformed response")
)

// StatusError reports a non-2xx answer of the external API.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("gateway: %s: status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("gateway: %s: status %d: %s", e.Op, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrSubmission }

// StatusCode maps upstream failures to the status relayed to our own callers:
// client errors pass through, everything else becomes 502.
func (e *StatusError) StatusCode() int {
	if e.Code >= 400 && e.Code < 500 {
		return e.Code
	}
	return http.StatusBadGateway
}
