package api

import (
	"errors"
	"fmt"
)

// ErrDecode is returned when a response body does not have the expected shape.
var ErrDecode = errors.New("unexpected response body")

// ServerError is a failure the backend reported with a status code and,
// usually, a structured body carrying a message.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

// TransportError is a failure with no structured response: the request never
// completed, or the reply carried no readable body.
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
