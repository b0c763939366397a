package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSequence is returned when the response body is valid JSON but not an array.
	ErrNotSequence = errors.New("response body is not a JSON array")
	// ErrInvalidRecord is returned by mappers for records missing required fields.
	ErrInvalidRecord = errors.New("invalid stream record")
	// ErrMapperNotFound is returned when no mapper is registered under a name.
	ErrMapperNotFound = errors.New("stream mapper not found")
	// ErrNotFound is returned when a requested stream does not exist.
	ErrNotFound = errors.New("not found")
)

// TransportError wraps a failure to issue a request or receive a response.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError is returned when the API answers with a non-2xx status.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

// Temporary reports whether retrying the request may succeed.
func (e *HTTPStatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// ParseError wraps a response body that is not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse response body: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TransformError wraps a failure to map raw records into streams.
// Index is the offending element, or -1 when the body itself had the wrong shape.
type TransformError struct {
	Index int
	Err   error
}

func (e *TransformError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("failed to transform streams: %v", e.Err)
	}
	return fmt.Sprintf("failed to transform stream at index %d: %v", e.Index, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
