package normalizer

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField marks a required field that is absent or of the wrong type.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidValue marks a field that is present but cannot be interpreted.
	ErrInvalidValue = errors.New("invalid field value")
)

// Kinds of records reported in a ValidationError
const (
	KindVisit   = "visit"
	KindJourney = "journey"
)

// ValidationError identifies the record and field that failed validation.
type ValidationError struct {
	Kind   string // visit or journey
	Index  int    // position in the loaded sequence
	Source string // file the record came from
	Field  string // dotted path, e.g. duration.startTimestamp
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s record %d (%s): %s: %v", e.Kind, e.Index, e.Source, e.Field, e.Err)
	}
	return fmt.Sprintf("%s record %d: %s: %v", e.Kind, e.Index, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// fieldError is raised inside a record and completed by the caller with the record identity.
type fieldError struct {
	field string
	err   error
}

func (e *fieldError) Error() string {
	return e.field + ": " + e.err.Error()
}

func missing(field string) *fieldError {
	return &fieldError{field: field, err: ErrMissingField}
}

func invalid(field string, cause error) *fieldError {
	return &fieldError{field: field, err: fmt.Errorf("%w: %v", ErrInvalidValue, cause)}
}
