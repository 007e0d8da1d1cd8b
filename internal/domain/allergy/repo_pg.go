package allergy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ehr/refinery/internal/platform/db"
)

const (
	tableCodes  = "allergy_codes"
	tableEvents = "allergy_events"
)

var codeColumns = []db.Column{{Name: "system"}, {Name: "code"}, {Name: "display"}}

type storePG struct {
	q      db.Querier
	schema string
}

// NewStorePG returns a Store over the refined tables in schema.
func NewStorePG(q db.Querier, schema string) Store {
	return &storePG{q: q, schema: schema}
}

func (s *storePG) codeQuery() db.KeyQuery[CodeKey, Code] {
	return db.KeyQuery[CodeKey, Code]{
		Table:   db.Table(s.schema, tableCodes),
		Columns: codeColumns,
		Select:  "id, " + db.ColumnList(codeColumns),
		Values: func(k CodeKey) []any {
			return []any{k.System, k.Code, k.Display}
		},
		Scan: func(rows pgx.Rows) (Code, error) {
			var c Code
			err := rows.Scan(&c.ID, &c.System, &c.Code, &c.Display)
			return c, err
		},
	}
}

func (s *storePG) ResolveCodes(ctx context.Context, keys []CodeKey) (map[CodeKey]int64, error) {
	codes, err := s.codeQuery().Run(ctx, s.q, keys)
	if err != nil {
		return nil, err
	}
	out := make(map[CodeKey]int64, len(codes))
	for _, c := range codes {
		out[c.CodeKey] = c.ID
	}
	return out, nil
}

func (s *storePG) InsertCodes(ctx context.Context, keys []CodeKey) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.q.CopyFrom(ctx, pgx.Identifier{s.schema, tableCodes}, []string{"system", "code", "display"},
		pgx.CopyFromSlice(len(keys), func(i int) ([]any, error) {
			return []any{keys[i].System, keys[i].Code, keys[i].Display}, nil
		}))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("allergy code inserted concurrently: %w", err)
		}
		return 0, err
	}
	return n, nil
}

func (s *storePG) ExistingEvents(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.q.Query(ctx, `SELECT uuid FROM `+db.Table(s.schema, tableEvents)+` WHERE uuid = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query allergy events: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (s *storePG) InsertEvents(ctx context.Context, events []Event) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	return s.q.CopyFrom(ctx, pgx.Identifier{s.schema, tableEvents},
		[]string{"uuid", "patient_uuid", "category", "criticality", "code_id", "recorded_date", "created_at"},
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			var category *string
			if e.Category != nil {
				c := string(*e.Category)
				category = &c
			}
			return []any{e.UUID, e.PatientUUID, category, e.Criticality, e.CodeID, e.RecordedDate, now}, nil
		}))
}
