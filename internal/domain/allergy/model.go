// Package allergy refines raw FHIR AllergyIntolerance resources into
// interned allergy codes and allergy events.
package allergy

import (
	"time"

	"github.com/google/uuid"

	"github.com/ehr/refinery/internal/platform/validation"
)

type Category string

const (
	CategoryFood        Category = "food"
	CategoryPetAllergy  Category = "pet_allergy"
	CategoryEnvironment Category = "environment"
)

var categories = validation.Synonyms[Category]{
	"food":          CategoryFood,
	"pet_allergy":   CategoryPetAllergy,
	"pet allergy":   CategoryPetAllergy,
	"pet allergies": CategoryPetAllergy,
	"pet_allergies": CategoryPetAllergy,
	"environment":   CategoryEnvironment,
	"environmental": CategoryEnvironment,
}

// CodeKey is the natural key of an allergy code.
type CodeKey struct {
	System  string
	Code    string
	Display string
}

// Code is an interned row of the allergy_codes table.
type Code struct {
	ID int64
	CodeKey
}

// Event is a row of the allergy_events table. Its UUID is derived from the
// source resource id, so re-ingesting the same resource maps to the same row.
type Event struct {
	UUID         uuid.UUID
	SourceID     string
	PatientUUID  uuid.UUID
	Category     *Category
	Criticality  string
	CodeID       int64
	RecordedDate time.Time
}

// eventNamespace seeds the name-based UUIDs of resources whose id is not a UUID.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:refinery:AllergyIntolerance"))

// EventUUID maps a source id to the event's primary key. UUID ids are used
// as is; anything else gets a deterministic version 5 UUID.
func EventUUID(sourceID string) uuid.UUID {
	if id, err := uuid.Parse(sourceID); err == nil {
		return id
	}
	return uuid.NewSHA1(eventNamespace, []byte(sourceID))
}
