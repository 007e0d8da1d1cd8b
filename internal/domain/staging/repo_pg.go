package staging

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ehr/refinery/internal/platform/db"
)

type StorePG struct {
	q      db.Querier
	schema string
	kind   Kind
}

// NewStorePG returns a Store and Appender over <schema>.<kind table>. q is
// usually the batch transaction.
func NewStorePG(q db.Querier, schema string, kind Kind) *StorePG {
	return &StorePG{q: q, schema: schema, kind: kind}
}

func (s *StorePG) table() string { return db.Table(s.schema, s.kind.Table()) }

func fetchSQL(table string) string {
	return `SELECT id, payload, acknowledged, created_at FROM ` + table + `
		WHERE acknowledged = false AND id > $1
		ORDER BY id ASC
		LIMIT $2`
}

func ackSQL(table string) string {
	return `UPDATE ` + table + ` SET acknowledged = true WHERE id = ANY($1) AND acknowledged = false`
}

func (s *StorePG) FetchUnacked(ctx context.Context, afterID int64, limit int) ([]RawRecord, error) {
	rows, err := s.q.Query(ctx, fetchSQL(s.table()), afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unacked %s: %w", s.kind, err)
	}
	defer rows.Close()

	var out []RawRecord
	for rows.Next() {
		var r RawRecord
		if err := rows.Scan(&r.ID, &r.Payload, &r.Acknowledged, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", s.kind, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", s.kind, err)
	}
	return out, nil
}

func (s *StorePG) Ack(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.q.Exec(ctx, ackSQL(s.table()), ids)
	if err != nil {
		return 0, fmt.Errorf("ack %d %s rows: %w", len(ids), s.kind, err)
	}
	return tag.RowsAffected(), nil
}

var appendColumns = []string{"payload", "created_at"}

func (s *StorePG) Append(ctx context.Context, payloads [][]byte) (int64, error) {
	if len(payloads) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	n, err := s.q.CopyFrom(ctx,
		pgx.Identifier{s.schema, s.kind.Table()},
		appendColumns,
		pgx.CopyFromSlice(len(payloads), func(i int) ([]any, error) {
			return []any{string(payloads[i]), now}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("append %d %s rows: %w", len(payloads), s.kind, err)
	}
	return n, nil
}
