// Package validation holds the strict JSON decoding and field-level
// normalization primitives shared by the resource parsers.
package validation

import (
	"errors"
	"fmt"
)

// ErrUnknownField is wrapped by FieldError when a payload carries a field
// outside the closed schema of the type being decoded.
var ErrUnknownField = errors.New("unknown field")

// ErrRequired is wrapped by FieldError when a required field is absent or empty.
var ErrRequired = errors.New("required field missing")

// FieldError reports why a single field of a payload failed validation.
type FieldError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *FieldError) Error() string {
	msg := e.Reason
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, msg)
	}
	return fmt.Sprintf("%s: %s (got %q)", e.Field, msg, e.Value)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Invalid builds a FieldError for a value that is present but unacceptable.
func Invalid(field, value, reason string) *FieldError {
	return &FieldError{Field: field, Value: value, Reason: reason}
}

// Missing builds a FieldError for an absent or empty required field.
func Missing(field string) *FieldError {
	return &FieldError{Field: field, Reason: "required", Err: ErrRequired}
}

// Field joins a parent path and a child name, e.g. Field("name[0]", "given").
func Field(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

// Index renders an indexed path segment, e.g. Index("name", 2) == "name[2]".
func Index(field string, i int) string {
	return fmt.Sprintf("%s[%d]", field, i)
}
