package etl

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedSource means the source document is not a record array
	// nor a single-key object wrapping one.
	ErrMalformedSource = errors.New("malformed source")
	// ErrInvalidRecord is wrapped by every validation failure.
	ErrInvalidRecord = errors.New("invalid record")
)

// FieldError reports the field that made a raw record invalid.
type FieldError struct {
	Kind  Kind
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: field %q: %v", e.Kind.singular(), e.Field, e.Err)
}

func (e *FieldError) Unwrap() []error { return []error{ErrInvalidRecord, e.Err} }

func fieldErr(kind Kind, field string, err error) error {
	return &FieldError{Kind: kind, Field: field, Err: err}
}

var errMissing = errors.New("missing required field")
