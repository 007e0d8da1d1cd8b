package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// DecodeStrict decodes data into dst, rejecting fields dst does not declare
// and anything after the first JSON value. Errors come back as *FieldError
// rooted at scope.
func DecodeStrict(data []byte, dst any, scope string) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &FieldError{Field: scope, Reason: "empty document", Err: ErrRequired}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeError(scope, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return &FieldError{Field: scope, Reason: "trailing data after JSON value"}
	}
	return nil
}

func decodeError(scope string, err error) error {
	var fe *FieldError
	if errors.As(err, &fe) {
		if fe.Field == "" {
			fe.Field = scope
		} else {
			fe.Field = Field(scope, fe.Field)
		}
		return fe
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &FieldError{
			Field:  Field(scope, typeErr.Field),
			Value:  typeErr.Value,
			Reason: "expected " + typeErr.Type.String(),
			Err:    err,
		}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &FieldError{Field: scope, Reason: "malformed JSON", Err: err}
	}

	// encoding/json has no typed error for unknown fields.
	const unknownPrefix = "json: unknown field "
	if msg := err.Error(); strings.HasPrefix(msg, unknownPrefix) {
		name := strings.Trim(strings.TrimPrefix(msg, unknownPrefix), `"`)
		return &FieldError{Field: Field(scope, name), Reason: "not allowed", Err: ErrUnknownField}
	}

	return &FieldError{Field: scope, Reason: err.Error(), Err: err}
}
