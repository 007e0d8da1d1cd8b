package patient

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/ehr/refinery/internal/domain/outcome"
	"github.com/ehr/refinery/internal/platform/validation"
)

const resourceType = "Patient"

// Nested items are kept raw so that each can fail on its own.
type resourceDoc struct {
	ResourceType *string           `json:"resourceType"`
	ID           *string           `json:"id"`
	Name         []json.RawMessage `json:"name"`
	Telecom      []json.RawMessage `json:"telecom"`
	Gender       *string           `json:"gender"`
	BirthDate    *string           `json:"birthDate"`
	Address      []json.RawMessage `json:"address"`
}

type nameDoc struct {
	Use    *string                 `json:"use"`
	Family validation.StringOrList `json:"family"`
	Given  validation.StringOrList `json:"given"`
	Prefix validation.StringOrList `json:"prefix"`
}

type addressDoc struct {
	Line       validation.StringOrList `json:"line"`
	City       *string                 `json:"city"`
	State      *string                 `json:"state"`
	PostalCode *string                 `json:"postalCode"`
	Country    *string                 `json:"country"`
}

type telecomDoc struct {
	System *string `json:"system"`
	Value  *string `json:"value"`
	Use    *string `json:"use"`
}

// Parse validates one staged Patient document. Names, addresses and
// telecoms that fail validation are dropped and reported individually; the
// patient itself is rejected, with ok false, when its envelope is invalid or
// nothing valid survives in one of the three lists.
func Parse(recordID int64, payload []byte) (p Patient, failures []outcome.Failure, ok bool) {
	reject := func(reason outcome.Reason, err error) (Patient, []outcome.Failure, bool) {
		return Patient{}, append(failures, outcome.New(recordID, p.SourceID, outcome.EntityPatient, reason, err)), false
	}

	var doc resourceDoc
	if err := validation.DecodeStrict(payload, &doc, "Patient"); err != nil {
		return reject(outcome.ReasonInvalidPayload, err)
	}
	if doc.ID != nil {
		p.SourceID = validation.Text(*doc.ID)
	}
	if rt, err := validation.Required("resourceType", doc.ResourceType); err != nil {
		return reject(outcome.ReasonInvalidPayload, err)
	} else if rt != resourceType {
		return reject(outcome.ReasonInvalidPayload, validation.Invalid("resourceType", rt, "expected "+resourceType))
	}

	id, err := validation.ParseUUID("id", p.SourceID)
	if err != nil {
		return reject(outcome.ReasonInvalidUUID, err)
	}
	p.UUID = id

	for i, raw := range doc.Name {
		n, err := parseName(validation.Index("name", i), raw)
		if err != nil {
			failures = append(failures, outcome.New(recordID, p.SourceID, outcome.EntityName, outcome.ReasonInvalidName, err))
			continue
		}
		n.PatientUUID = id
		p.Names = append(p.Names, n)
	}
	if len(p.Names) == 0 {
		return reject(outcome.ReasonNoValidNames, errors.New("no valid names"))
	}

	for i, raw := range doc.Address {
		a, err := parseAddress(validation.Index("address", i), raw)
		if err != nil {
			failures = append(failures, outcome.New(recordID, p.SourceID, outcome.EntityAddress, outcome.ReasonInvalidAddress, err))
			continue
		}
		a.PatientUUID = id
		p.Addresses = append(p.Addresses, a)
	}
	if len(p.Addresses) == 0 {
		return reject(outcome.ReasonNoValidAddresses, errors.New("no valid addresses"))
	}

	for i, raw := range doc.Telecom {
		t, err := parseTelecom(validation.Index("telecom", i), raw)
		if err != nil {
			failures = append(failures, outcome.New(recordID, p.SourceID, outcome.EntityTelecom, outcome.ReasonInvalidTelecom, err))
			continue
		}
		t.PatientUUID = id
		p.Telecoms = append(p.Telecoms, t)
	}
	if len(p.Telecoms) == 0 {
		return reject(outcome.ReasonNoValidTelecoms, errors.New("no valid telecoms"))
	}

	if doc.BirthDate == nil {
		return reject(outcome.ReasonInvalidDemographics, validation.Missing("birthDate"))
	}
	if p.BirthDate, err = validation.ParseDate("birthDate", *doc.BirthDate); err != nil {
		return reject(outcome.ReasonInvalidDemographics, err)
	}
	gender, err := validation.Required("gender", doc.Gender)
	if err != nil {
		return reject(outcome.ReasonInvalidDemographics, err)
	}
	if p.Gender, err = genders.Match("gender", gender); err != nil {
		return reject(outcome.ReasonInvalidDemographics, err)
	}

	return p, failures, true
}

func parseName(field string, raw json.RawMessage) (Name, error) {
	var doc nameDoc
	if err := validation.DecodeStrict(raw, &doc, field); err != nil {
		return Name{}, err
	}

	var n Name
	var err error
	if n.Use, err = validation.Required(validation.Field(field, "use"), doc.Use); err != nil {
		return Name{}, err
	}

	family, err := doc.Family.Collapse(validation.Field(field, "family"))
	if err != nil {
		return Name{}, err
	}
	if family == nil {
		return Name{}, validation.Missing(validation.Field(field, "family"))
	}
	n.Family = *family

	n.Given = doc.Given.Values()
	if len(n.Given) == 0 {
		return Name{}, validation.Missing(validation.Field(field, "given"))
	}
	for _, g := range n.Given {
		if strings.Contains(g, givenSep) {
			return Name{}, validation.Invalid(validation.Field(field, "given"), g, "contains a control character")
		}
	}

	if n.Prefix, err = doc.Prefix.Collapse(validation.Field(field, "prefix")); err != nil {
		return Name{}, err
	}
	return n, nil
}

func parseAddress(field string, raw json.RawMessage) (Address, error) {
	var doc addressDoc
	if err := validation.DecodeStrict(raw, &doc, field); err != nil {
		return Address{}, err
	}

	a := Address{Lines: doc.Line.Values(), PostalCode: validation.Optional(doc.PostalCode)}
	if len(a.Lines) == 0 {
		return Address{}, validation.Missing(validation.Field(field, "line"))
	}

	var err error
	if a.City, err = validation.Required(validation.Field(field, "city"), doc.City); err != nil {
		return Address{}, err
	}
	if a.State, err = validation.Required(validation.Field(field, "state"), doc.State); err != nil {
		return Address{}, err
	}
	if a.Country, err = validation.Required(validation.Field(field, "country"), doc.Country); err != nil {
		return Address{}, err
	}
	return a, nil
}

func parseTelecom(field string, raw json.RawMessage) (Telecom, error) {
	var doc telecomDoc
	if err := validation.DecodeStrict(raw, &doc, field); err != nil {
		return Telecom{}, err
	}

	var t Telecom
	var err error
	if t.System, err = validation.Required(validation.Field(field, "system"), doc.System); err != nil {
		return Telecom{}, err
	}
	if t.Value, err = validation.Required(validation.Field(field, "value"), doc.Value); err != nil {
		return Telecom{}, err
	}
	if t.Use, err = validation.Required(validation.Field(field, "use"), doc.Use); err != nil {
		return Telecom{}, err
	}
	return t, nil
}
