package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ehr/refinery/internal/platform/db"
)

const (
	tablePatients  = "patients"
	tableNames     = "patient_names"
	tableAddresses = "addresses"
	tableTelecoms  = "telecoms"
)

var (
	nameColumns = []db.Column{
		{Name: "patient_uuid"}, {Name: "use"}, {Name: "family"}, {Name: "given"}, {Name: "prefix", Nullable: true},
	}
	addressColumns = []db.Column{
		{Name: "patient_uuid"}, {Name: "city"}, {Name: "state"}, {Name: "country"},
		{Name: "postal_code", Nullable: true}, {Name: "line"},
	}
	telecomColumns = []db.Column{
		{Name: "patient_uuid"}, {Name: "system"}, {Name: "value"}, {Name: "use"},
	}
)

type storePG struct {
	q      db.Querier
	schema string
}

// NewStorePG returns a Store over the refined tables in schema.
func NewStorePG(q db.Querier, schema string) Store {
	return &storePG{q: q, schema: schema}
}

func (s *storePG) table(name string) string { return db.Table(s.schema, name) }

func (s *storePG) ExistingPatients(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Demographics, error) {
	out := make(map[uuid.UUID]Demographics)
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.q.Query(ctx,
		`SELECT uuid, birth_date, gender FROM `+s.table(tablePatients)+` WHERE uuid = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query patients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d Demographics
		var gender string
		if err := rows.Scan(&d.UUID, &d.BirthDate, &gender); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		d.Gender = Gender(gender)
		out[d.UUID] = d
	}
	return out, rows.Err()
}

func (s *storePG) nameQuery() db.KeyQuery[NameKey, NameKey] {
	return db.KeyQuery[NameKey, NameKey]{
		Table:   s.table(tableNames),
		Columns: nameColumns,
		Values: func(k NameKey) []any {
			return []any{k.PatientUUID, k.Use, k.Family, k.GivenNames(), k.Prefix}
		},
		Scan: func(rows pgx.Rows) (NameKey, error) {
			var k NameKey
			var given []string
			if err := rows.Scan(&k.PatientUUID, &k.Use, &k.Family, &given, &k.Prefix); err != nil {
				return NameKey{}, err
			}
			return Name{PatientUUID: k.PatientUUID, Use: k.Use, Family: k.Family, Given: given, Prefix: textPtr(k.Prefix)}.Key(), nil
		},
	}
}

func (s *storePG) ExistingNames(ctx context.Context, keys []NameKey) ([]NameKey, error) {
	return s.nameQuery().Run(ctx, s.q, keys)
}

func (s *storePG) addressQuery() db.KeyQuery[AddressKey, AddressKey] {
	return db.KeyQuery[AddressKey, AddressKey]{
		Table:   s.table(tableAddresses),
		Columns: addressColumns,
		Values: func(k AddressKey) []any {
			return []any{k.PatientUUID, k.City, k.State, k.Country, k.PostalCode, k.Line}
		},
		Scan: func(rows pgx.Rows) (AddressKey, error) {
			var k AddressKey
			err := rows.Scan(&k.PatientUUID, &k.City, &k.State, &k.Country, &k.PostalCode, &k.Line)
			return k, err
		},
	}
}

func (s *storePG) ExistingAddresses(ctx context.Context, keys []AddressKey) ([]AddressKey, error) {
	return s.addressQuery().Run(ctx, s.q, keys)
}

func (s *storePG) telecomQuery() db.KeyQuery[TelecomKey, TelecomKey] {
	return db.KeyQuery[TelecomKey, TelecomKey]{
		Table:   s.table(tableTelecoms),
		Columns: telecomColumns,
		Values: func(k TelecomKey) []any {
			return []any{k.PatientUUID, k.System, k.Value, k.Use}
		},
		Scan: func(rows pgx.Rows) (TelecomKey, error) {
			var k TelecomKey
			err := rows.Scan(&k.PatientUUID, &k.System, &k.Value, &k.Use)
			return k, err
		},
	}
}

func (s *storePG) ExistingTelecoms(ctx context.Context, keys []TelecomKey) ([]TelecomKey, error) {
	return s.telecomQuery().Run(ctx, s.q, keys)
}

func (s *storePG) copy(ctx context.Context, table string, cols []string, n int, row func(i int) []any) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	return s.q.CopyFrom(ctx, pgx.Identifier{s.schema, table}, cols, pgx.CopyFromSlice(n, func(i int) ([]any, error) {
		return row(i), nil
	}))
}

func (s *storePG) InsertPatients(ctx context.Context, ps []Demographics) (int64, error) {
	now := time.Now().UTC()
	return s.copy(ctx, tablePatients, []string{"uuid", "birth_date", "gender", "created_at"}, len(ps), func(i int) []any {
		return []any{ps[i].UUID, ps[i].BirthDate, string(ps[i].Gender), now}
	})
}

func (s *storePG) InsertNames(ctx context.Context, ns []Name) (int64, error) {
	return s.copy(ctx, tableNames, []string{"patient_uuid", "use", "family", "given", "prefix"}, len(ns), func(i int) []any {
		n := ns[i]
		return []any{n.PatientUUID, n.Use, n.Family, n.Given, n.Prefix}
	})
}

func (s *storePG) InsertAddresses(ctx context.Context, as []Address) (int64, error) {
	return s.copy(ctx, tableAddresses, []string{"patient_uuid", "line", "city", "state", "postal_code", "country"}, len(as), func(i int) []any {
		a := as[i]
		return []any{a.PatientUUID, a.Line(), a.City, a.State, a.PostalCode, a.Country}
	})
}

func (s *storePG) InsertTelecoms(ctx context.Context, ts []Telecom) (int64, error) {
	return s.copy(ctx, tableTelecoms, []string{"patient_uuid", "system", "value", "use"}, len(ts), func(i int) []any {
		t := ts[i]
		return []any{t.PatientUUID, t.System, t.Value, t.Use}
	})
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}
