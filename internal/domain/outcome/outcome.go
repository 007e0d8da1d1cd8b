// Package outcome describes the row-scoped failures a refiner reports back
// to the coordinator.
package outcome

import (
	"errors"
	"sort"

	"github.com/ehr/refinery/internal/platform/validation"
)

// Entity names the kind of record a failure belongs to.
type Entity string

const (
	EntityPatient Entity = "patient"
	EntityName    Entity = "name"
	EntityAddress Entity = "address"
	EntityTelecom Entity = "telecom"
	EntityEvent   Entity = "allergy_event"
	EntityCoding  Entity = "allergy_coding"
)

// Reason is the closed set of causes a row can be withheld from
// acknowledgment for.
type Reason string

const (
	// Patient level.
	ReasonInvalidPayload      Reason = "invalid_payload"
	ReasonInvalidUUID         Reason = "invalid_uuid"
	ReasonInvalidDemographics Reason = "invalid_demographics"
	ReasonNoValidNames        Reason = "no_valid_names"
	ReasonNoValidAddresses    Reason = "no_valid_addresses"
	ReasonNoValidTelecoms     Reason = "no_valid_telecoms"

	// Patient sub-entities dropped individually.
	ReasonInvalidName    Reason = "invalid_name"
	ReasonInvalidAddress Reason = "invalid_address"
	ReasonInvalidTelecom Reason = "invalid_telecom"

	// Allergy.
	ReasonInvalidEvent  Reason = "invalid_event"
	ReasonInvalidCoding Reason = "invalid_coding"
)

// Failure is one row-scoped problem. RecordID is the staging row id, which
// is what acknowledgment is decided on.
type Failure struct {
	RecordID int64  `json:"record_id"`
	SourceID string `json:"source_id,omitempty"`
	Entity   Entity `json:"entity"`
	Reason   Reason `json:"reason"`
	Field    string `json:"field,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// New builds a Failure, lifting the field path out of a validation error.
func New(recordID int64, sourceID string, entity Entity, reason Reason, err error) Failure {
	f := Failure{RecordID: recordID, SourceID: sourceID, Entity: entity, Reason: reason}
	if err != nil {
		f.Detail = err.Error()
		var fe *validation.FieldError
		if errors.As(err, &fe) {
			f.Field = fe.Field
		}
	}
	return f
}

// RecordIDs returns the distinct record ids across all lists, ascending.
func RecordIDs(lists ...[]Failure) []int64 {
	seen := make(map[int64]struct{})
	for _, l := range lists {
		for _, f := range l {
			seen[f.RecordID] = struct{}{}
		}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CountByReason tallies failures per reason, for logging.
func CountByReason(fs []Failure) map[Reason]int {
	out := make(map[Reason]int)
	for _, f := range fs {
		out[f.Reason]++
	}
	return out
}
