package pipeline

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ehr/refinery/internal/domain/allergy"
	"github.com/ehr/refinery/internal/domain/patient"
	"github.com/ehr/refinery/internal/domain/staging"
	"github.com/ehr/refinery/internal/platform/db"
)

// PGRunner runs batches against one database holding both the staging and
// refined schemas, so one transaction covers the refined writes and the ack.
type PGRunner struct {
	pool          db.Beginner
	stagingSchema string
	refinedSchema string
}

func NewPGRunner(pool db.Beginner, stagingSchema, refinedSchema string) *PGRunner {
	return &PGRunner{pool: pool, stagingSchema: stagingSchema, refinedSchema: refinedSchema}
}

func (r *PGRunner) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{q: tx, stagingSchema: r.stagingSchema, refinedSchema: r.refinedSchema})
	})
}

type pgTx struct {
	q             db.Querier
	stagingSchema string
	refinedSchema string
}

func (t *pgTx) Staging(kind staging.Kind) staging.Store {
	return staging.NewStorePG(t.q, t.stagingSchema, kind)
}

func (t *pgTx) Patients() patient.Store {
	return patient.NewStorePG(t.q, t.refinedSchema)
}

func (t *pgTx) Allergies() allergy.Store {
	return allergy.NewStorePG(t.q, t.refinedSchema)
}
