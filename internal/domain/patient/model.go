// Package patient refines raw FHIR Patient resources into demographics,
// names, addresses and telecoms.
package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/refinery/internal/platform/validation"
)

type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

var genders = validation.Synonyms[Gender]{
	"female": GenderFemale,
	"male":   GenderMale,
}

// Patient is a fully validated resource: it carries at least one name,
// address and telecom.
type Patient struct {
	SourceID string
	Demographics
	Names     []Name
	Addresses []Address
	Telecoms  []Telecom
}

// Demographics is the row stored in the patients table.
type Demographics struct {
	UUID      uuid.UUID
	BirthDate time.Time
	Gender    Gender
}

type Name struct {
	PatientUUID uuid.UUID
	Use         string
	Family      string
	Given       []string
	Prefix      *string
}

type Address struct {
	PatientUUID uuid.UUID
	Lines       []string
	City        string
	State       string
	PostalCode  *string
	Country     string
}

// Line is the stored form of the address lines.
func (a Address) Line() string {
	return strings.Join(a.Lines, ", ")
}

// FullAddress renders the address on one line, skipping empty parts.
func (a Address) FullAddress() string {
	parts := append([]string{}, a.Lines...)
	parts = append(parts, a.City, a.State)
	if a.PostalCode != nil {
		parts = append(parts, *a.PostalCode)
	}
	parts = append(parts, a.Country)

	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

type Telecom struct {
	PatientUUID uuid.UUID
	System      string
	Value       string
	Use         string
}

func (t Telecom) IsEmail() bool {
	return strings.EqualFold(t.System, "email")
}

func (t Telecom) IsPhone() bool {
	return strings.EqualFold(t.System, "phone") || strings.EqualFold(t.System, "mobile")
}
