package pipeline

import (
	"fmt"

	"github.com/ehr/refinery/internal/domain/outcome"
	"github.com/ehr/refinery/internal/domain/staging"
)

// AckSet returns the ids of rows that have no failure, in row order.
func AckSet(rows []staging.RawRecord, failures []outcome.Failure) []int64 {
	failed := make(map[int64]struct{}, len(failures))
	for _, f := range failures {
		failed[f.RecordID] = struct{}{}
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		if _, ok := failed[r.ID]; !ok {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// BatchError is a batch that was rolled back. Its rows stay unacknowledged.
type BatchError struct {
	Kind    staging.Kind
	FirstID int64
	LastID  int64
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s batch %d..%d: %v", e.Kind, e.FirstID, e.LastID, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
