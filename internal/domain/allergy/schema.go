package allergy

import (
	"encoding/json"

	"github.com/ehr/refinery/internal/platform/validation"
)

const resourceType = "AllergyIntolerance"

type resourceDoc struct {
	ResourceType *string                 `json:"resourceType"`
	ID           *string                 `json:"id"`
	Type         *string                 `json:"type"`
	Category     validation.StringOrList `json:"category"`
	Criticality  *string                 `json:"criticality"`
	Code         json.RawMessage         `json:"code"`
	Patient      json.RawMessage         `json:"patient"`
	RecordedDate *string                 `json:"recordedDate"`
}

type codeDoc struct {
	Coding []json.RawMessage `json:"coding"`
	Text   *string           `json:"text"`
}

type codingDoc struct {
	System  *string `json:"system"`
	Code    *string `json:"code"`
	Display *string `json:"display"`
}

type referenceDoc struct {
	Reference *string `json:"reference"`
}

// Candidate is an event that passed validation but whose coding has not yet
// been checked.
type Candidate struct {
	Event
	code json.RawMessage
}

// ParseEvent validates everything about an AllergyIntolerance document
// except its coding.
func ParseEvent(payload []byte) (Candidate, error) {
	var doc resourceDoc
	if err := validation.DecodeStrict(payload, &doc, resourceType); err != nil {
		return Candidate{}, err
	}

	var c Candidate
	if doc.ResourceType != nil {
		if rt := validation.Text(*doc.ResourceType); rt != resourceType {
			return Candidate{}, validation.Invalid("resourceType", rt, "expected "+resourceType)
		}
	}

	id, err := validation.Required("id", doc.ID)
	if err != nil {
		return Candidate{}, err
	}
	c.SourceID = id
	c.UUID = EventUUID(id)

	if len(doc.Patient) == 0 {
		return Candidate{}, validation.Missing("patient")
	}
	var ref referenceDoc
	if err := validation.DecodeStrict(doc.Patient, &ref, "patient"); err != nil {
		return Candidate{}, err
	}
	reference, err := validation.Required("patient.reference", ref.Reference)
	if err != nil {
		return Candidate{}, err
	}
	if c.PatientUUID, err = validation.ParseReference("patient.reference", reference, "Patient"); err != nil {
		return Candidate{}, err
	}

	category, err := doc.Category.Collapse("category")
	if err != nil {
		return Candidate{}, err
	}
	if category != nil {
		cat, err := categories.Match("category", *category)
		if err != nil {
			return Candidate{}, err
		}
		c.Category = &cat
	}

	if c.Criticality, err = validation.Required("criticality", doc.Criticality); err != nil {
		return Candidate{}, err
	}

	if doc.RecordedDate == nil {
		return Candidate{}, validation.Missing("recordedDate")
	}
	if c.RecordedDate, err = validation.ParseDateTime("recordedDate", *doc.RecordedDate); err != nil {
		return Candidate{}, err
	}

	c.code = doc.Code
	return c, nil
}

// CodeKey extracts the first coding of the candidate's code.
func (c Candidate) CodeKey() (CodeKey, error) {
	return ParseCoding(c.code)
}

// ParseCoding reads code.coding[0] from a raw CodeableConcept.
func ParseCoding(raw json.RawMessage) (CodeKey, error) {
	if len(raw) == 0 {
		return CodeKey{}, validation.Missing("code")
	}
	var code codeDoc
	if err := validation.DecodeStrict(raw, &code, "code"); err != nil {
		return CodeKey{}, err
	}
	if len(code.Coding) == 0 {
		return CodeKey{}, validation.Missing("code.coding")
	}

	var coding codingDoc
	if err := validation.DecodeStrict(code.Coding[0], &coding, "code.coding[0]"); err != nil {
		return CodeKey{}, err
	}

	var k CodeKey
	var err error
	if k.System, err = validation.Required("code.coding[0].system", coding.System); err != nil {
		return CodeKey{}, err
	}
	if k.Code, err = validation.Required("code.coding[0].code", coding.Code); err != nil {
		return CodeKey{}, err
	}
	if k.Display, err = validation.Required("code.coding[0].display", coding.Display); err != nil {
		return CodeKey{}, err
	}
	return k, nil
}
