package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// MaxBindParams is the postgres limit on bind parameters per statement.
const MaxBindParams = 65535

// Column is one component of a composite natural key.
type Column struct {
	Name     string
	Nullable bool
}

// Table renders a schema-qualified, quoted table name.
func Table(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

// ColumnList renders quoted column names separated by commas.
func ColumnList(cols []Column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = pgx.Identifier{c.Name}.Sanitize()
	}
	return strings.Join(names, ", ")
}

// MatchAny renders a predicate matching any of the given key tuples:
//
//	("a" = $1 AND "b" IS NOT DISTINCT FROM $2) OR ("a" = $3 AND ...)
//
// Placeholders are numbered from offset+1. Nullable columns compare with
// IS NOT DISTINCT FROM so that a NULL key component matches a NULL column.
func MatchAny(cols []Column, tuples [][]any, offset int) (string, []any) {
	if len(tuples) == 0 {
		return "FALSE", nil
	}

	var b strings.Builder
	args := make([]any, 0, len(tuples)*len(cols))
	n := offset
	for i, tuple := range tuples {
		if len(tuple) != len(cols) {
			panic(fmt.Sprintf("db.MatchAny: tuple %d has %d values for %d columns", i, len(tuple), len(cols)))
		}
		if i > 0 {
			b.WriteString(" OR ")
		}
		b.WriteByte('(')
		for j, c := range cols {
			if j > 0 {
				b.WriteString(" AND ")
			}
			n++
			op := "="
			if c.Nullable {
				op = "IS NOT DISTINCT FROM"
			}
			fmt.Fprintf(&b, "%s %s $%d", pgx.Identifier{c.Name}.Sanitize(), op, n)
			args = append(args, tuple[j])
		}
		b.WriteByte(')')
	}
	return b.String(), args
}

// TuplesPerStatement is how many key tuples of the given width fit in one
// statement after reserving some placeholders for other arguments.
func TuplesPerStatement(width, reserved int) int {
	if width <= 0 {
		return 0
	}
	return (MaxBindParams - reserved) / width
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

// SelectMatching renders a SELECT of selectList from table restricted to rows
// matching any of the key tuples.
func SelectMatching(table, selectList string, cols []Column, tuples [][]any) (string, []any) {
	where, args := MatchAny(cols, tuples, 0)
	return "SELECT " + selectList + " FROM " + table + " WHERE " + where, args
}

// KeyQuery looks up rows by composite natural key, one statement per chunk
// of keys sized to stay under MaxBindParams.
type KeyQuery[K, R any] struct {
	Table   string
	Columns []Column
	// Select is the column list to return. Empty selects the key columns.
	Select string
	Values func(K) []any
	Scan   func(pgx.Rows) (R, error)
}

func (kq KeyQuery[K, R]) Run(ctx context.Context, q Querier, keys []K) ([]R, error) {
	selectList := kq.Select
	if selectList == "" {
		selectList = ColumnList(kq.Columns)
	}

	var out []R
	for _, chunk := range Chunk(keys, TuplesPerStatement(len(kq.Columns), 0)) {
		tuples := make([][]any, len(chunk))
		for i, k := range chunk {
			tuples[i] = kq.Values(k)
		}
		sql, args := SelectMatching(kq.Table, selectList, kq.Columns, tuples)

		rows, err := q.Query(ctx, sql, args...)
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", kq.Table, err)
		}
		for rows.Next() {
			r, err := kq.Scan(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan %s: %w", kq.Table, err)
			}
			out = append(out, r)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate %s: %w", kq.Table, err)
		}
	}
	return out, nil
}
