package query

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError is the structured failure surfaced when the tutor service
// cannot produce an answer. It is caught at the orchestrator boundary and
// converted into a user-visible message; the history is never mutated on
// this path.
type TransportError struct {
	Status      int
	Description string
	Err         error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query failed (%d %s): %v", e.Status, e.Description, e.Err)
	}
	return fmt.Sprintf("query failed (%d %s)", e.Status, e.Description)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError builds a TransportError with an explicit status.
func NewTransportError(status int, description string, err error) *TransportError {
	return &TransportError{Status: status, Description: description, Err: err}
}

// AsTransportError passes through an existing *TransportError and wraps any
// other failure as a bad-gateway transport fault.
func AsTransportError(err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	return &TransportError{
		Status:      http.StatusBadGateway,
		Description: "tutor service unavailable",
		Err:         err,
	}
}
