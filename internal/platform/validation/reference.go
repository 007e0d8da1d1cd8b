package validation

import (
	"strings"

	"github.com/google/uuid"
)

// ParseUUID parses a resource id. Both the canonical form and urn:uuid form
// are accepted.
func ParseUUID(field, value string) (uuid.UUID, error) {
	v := Text(value)
	if v == "" {
		return uuid.Nil, Missing(field)
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, &FieldError{Field: field, Value: value, Reason: "not a UUID", Err: err}
	}
	return id, nil
}

// ParseReference resolves a literal reference such as "Patient/<uuid>" to
// the referenced id. The resource type prefix is optional and matched
// case-insensitively.
func ParseReference(field, ref, resourceType string) (uuid.UUID, error) {
	v := Text(ref)
	prefix := resourceType + "/"
	if len(v) >= len(prefix) && strings.EqualFold(v[:len(prefix)], prefix) {
		v = v[len(prefix):]
	} else if strings.Contains(v, "/") {
		return uuid.Nil, Invalid(field, ref, "expected a "+resourceType+" reference")
	}
	return ParseUUID(field, v)
}
