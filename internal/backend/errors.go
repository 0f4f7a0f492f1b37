package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized matches any 401 or 403 from the backend
var ErrUnauthorized = errors.New("backend rejected the credential")

// ServerError is a failure reported by the backend, either a non-2xx status
// or a 2xx body with success set to false
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend error (status %d)", e.StatusCode)
}

func (e *ServerError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

// TransportError means no usable response came back: the connection failed,
// timed out, was cancelled, or returned a body that could not be decoded
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerMessage returns the backend-supplied message carried by err, if any
func ServerMessage(err error) string {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}
