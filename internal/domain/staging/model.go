// Package staging reads and acknowledges the raw resource rows landed by
// ingestion, and appends new ones.
package staging

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind is a resource kind with its own staging table.
type Kind string

const (
	KindPatient Kind = "patient"
	KindAllergy Kind = "allergy"
)

// Kinds lists the kinds in the order a run refines them. Patients go first
// so allergy events can refer to patients refined in the same run.
var Kinds = []Kind{KindPatient, KindAllergy}

// Table is the staging table holding rows of this kind.
func (k Kind) Table() string {
	switch k {
	case KindPatient:
		return "patients"
	case KindAllergy:
		return "allergies"
	}
	return ""
}

// ResourceType is the FHIR resourceType carried by payloads of this kind.
func (k Kind) ResourceType() string {
	switch k {
	case KindPatient:
		return "Patient"
	case KindAllergy:
		return "AllergyIntolerance"
	}
	return ""
}

// ParseKind accepts the kind name or its FHIR resource type, in any case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "patient", "patients":
		return KindPatient, nil
	case "allergy", "allergies", "allergyintolerance":
		return KindAllergy, nil
	}
	return "", fmt.Errorf("unknown resource kind %q", s)
}

// RawRecord is one staged JSON document.
type RawRecord struct {
	ID           int64           `json:"id"`
	Payload      json.RawMessage `json:"payload"`
	Acknowledged bool            `json:"acknowledged"`
	CreatedAt    time.Time       `json:"created_at"`
}

// IDs returns the ids of rows in order.
func IDs(rows []RawRecord) []int64 {
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}
