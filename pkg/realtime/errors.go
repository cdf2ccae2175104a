package realtime

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by audio and control operations while the
	// client is not in the connected state. Audio dropped during a reconnect
	// window surfaces as this error.
	ErrNotConnected = errors.New("realtime: not connected")

	// ErrAlreadyConnected is returned by Connect on a client that already
	// holds an open connection.
	ErrAlreadyConnected = errors.New("realtime: already connected")

	// ErrMissingCredential is returned when no API key is configured.
	ErrMissingCredential = errors.New("realtime: missing API key")
)

// EngineError is an error event reported by the speech engine itself.
type EngineError struct {
	Type    string
	Code    string
	Message string
	EventID string
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("engine error %s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("engine error %s: %s", e.Type, e.Message)
}

// Retryable reports whether the error category justifies a reconnect.
// Server-side faults and rate limiting are transient; invalid requests are
// not, since retrying would fail identically.
func (e *EngineError) Retryable() bool {
	switch e.Type {
	case "server_error":
		return true
	case "invalid_request_error":
		return false
	}
	return e.Code == "rate_limit_exceeded"
}
