package newsclient

import (
	"errors"
	"fmt"
)

const (
	// FallbackStatusMessage is used when a non-2xx body carries no usable error text.
	FallbackStatusMessage = "Failed to fetch news"
	// TransportMessage prefixes failures where no response was received.
	TransportMessage = "Failed to fetch"
)

// StatusError reports a non-2xx backend response.
type StatusError struct {
	StatusCode int
	// Message is the server-supplied error, or FallbackStatusMessage.
	Message string
}

func (e *StatusError) Error() string { return e.Message }

// TransportError reports a request that never produced a response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return TransportMessage
	}
	return fmt.Sprintf("%s: %v", TransportMessage, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a 2xx body that is not valid JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("invalid response body: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
