// Package pipeline drives refinement: it pulls batches of unacknowledged
// staging rows, hands them to the refiner for their kind, and acknowledges
// the rows that refined cleanly in the same transaction as the writes.
package pipeline

import (
	"context"

	"github.com/ehr/refinery/internal/domain/allergy"
	"github.com/ehr/refinery/internal/domain/outcome"
	"github.com/ehr/refinery/internal/domain/patient"
	"github.com/ehr/refinery/internal/domain/staging"
)

// Tx exposes the stores bound to one batch transaction.
type Tx interface {
	Staging(kind staging.Kind) staging.Store
	Patients() patient.Store
	Allergies() allergy.Store
}

// TxRunner runs fn in a transaction, committing when it returns nil.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Result is what a stage reports back for one batch.
type Result struct {
	Failures []outcome.Failure
	Inserted int64
}

// Stage refines batches of one kind.
type Stage struct {
	Kind   staging.Kind
	Refine func(ctx context.Context, tx Tx, rows []staging.RawRecord) (Result, error)
}

func PatientStage(r *patient.Refiner) Stage {
	return Stage{
		Kind: staging.KindPatient,
		Refine: func(ctx context.Context, tx Tx, rows []staging.RawRecord) (Result, error) {
			rep, err := r.Refine(ctx, tx.Patients(), rows)
			if err != nil {
				return Result{}, err
			}
			return Result{Failures: rep.Failures(), Inserted: rep.Inserted.Total()}, nil
		},
	}
}

func AllergyStage(r *allergy.Refiner) Stage {
	return Stage{
		Kind: staging.KindAllergy,
		Refine: func(ctx context.Context, tx Tx, rows []staging.RawRecord) (Result, error) {
			rep, err := r.Refine(ctx, tx.Allergies(), rows)
			if err != nil {
				return Result{}, err
			}
			return Result{Failures: rep.Failures(), Inserted: rep.Inserted.Total()}, nil
		},
	}
}
