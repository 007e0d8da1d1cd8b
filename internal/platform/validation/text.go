package validation

import (
	"bytes"
	"encoding/json"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Text trims surrounding whitespace and normalizes s to NFC.
func Text(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Required returns the normalized value of a required string field.
// A nil or blank value is a FieldError.
func Required(field string, v *string) (string, error) {
	if v == nil {
		return "", Missing(field)
	}
	s := Text(*v)
	if s == "" {
		return "", &FieldError{Field: field, Reason: "must not be empty", Err: ErrRequired}
	}
	return s, nil
}

// Optional returns the normalized value of an optional string field.
// Blank strings are treated as absent.
func Optional(v *string) *string {
	if v == nil {
		return nil
	}
	s := Text(*v)
	if s == "" {
		return nil
	}
	return &s
}

// StringOrList accepts a JSON string, a JSON list of strings, or null.
// Several FHIR fields arrive in either shape.
type StringOrList []string

func (s *StringOrList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = nil
		return nil
	case len(b) > 0 && b[0] == '"':
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*s = StringOrList{one}
		return nil
	case len(b) > 0 && b[0] == '[':
		var many []string
		if err := json.Unmarshal(b, &many); err != nil {
			return &FieldError{Reason: "expected a list of strings", Value: string(b)}
		}
		*s = many
		return nil
	}
	return &FieldError{Reason: "expected a string or a list of strings", Value: string(b)}
}

// Values returns the normalized, non-blank members.
func (s StringOrList) Values() []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		if v = Text(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Collapse reduces the list to at most one value. Blank members are dropped;
// more than one remaining value is a FieldError.
func (s StringOrList) Collapse(field string) (*string, error) {
	vals := s.Values()
	switch len(vals) {
	case 0:
		return nil, nil
	case 1:
		return &vals[0], nil
	default:
		return nil, Invalid(field, strings.Join(vals, ", "), "expected a single value")
	}
}
