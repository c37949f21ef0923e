package flows

import (
	"fmt"
)

// ValidationError reports a field rejected before any backend call. Err is
// the host sentinel; Reason is the validator's reason code.
type ValidationError struct {
	Err    error
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s %s", e.Err, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ProcedureError is a remote procedure that ran but reported failure with
// its own code.
type ProcedureError struct {
	Procedure string
	Code      string
	Message   string
	Err       error
}

func (e *ProcedureError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Procedure, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Procedure, e.Code, e.Message)
}

func (e *ProcedureError) Unwrap() error {
	return e.Err
}

func invalid(sentinel error, field, reason string) error {
	return &ValidationError{Err: sentinel, Field: field, Reason: reason}
}

func storeError(sentinel, err error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}
