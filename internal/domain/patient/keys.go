package patient

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// givenSep joins given names inside a comparable key. The parser rejects
// given names containing it.
const givenSep = "\x1f"

type NameKey struct {
	PatientUUID uuid.UUID
	Use         string
	Family      string
	Given       string
	Prefix      pgtype.Text
}

// GivenNames splits the joined given names back into a list.
func (k NameKey) GivenNames() []string {
	if k.Given == "" {
		return []string{}
	}
	return strings.Split(k.Given, givenSep)
}

func (n Name) Key() NameKey {
	return NameKey{
		PatientUUID: n.PatientUUID,
		Use:         n.Use,
		Family:      n.Family,
		Given:       strings.Join(n.Given, givenSep),
		Prefix:      optionalText(n.Prefix),
	}
}

type AddressKey struct {
	PatientUUID uuid.UUID
	City        string
	State       string
	Country     string
	PostalCode  pgtype.Text
	Line        string
}

func (a Address) Key() AddressKey {
	return AddressKey{
		PatientUUID: a.PatientUUID,
		City:        a.City,
		State:       a.State,
		Country:     a.Country,
		PostalCode:  optionalText(a.PostalCode),
		Line:        a.Line(),
	}
}

type TelecomKey struct {
	PatientUUID uuid.UUID
	System      string
	Value       string
	Use         string
}

func (t Telecom) Key() TelecomKey {
	return TelecomKey{PatientUUID: t.PatientUUID, System: t.System, Value: t.Value, Use: t.Use}
}

func optionalText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}
