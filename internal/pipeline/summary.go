package pipeline

import (
	"time"

	"github.com/ehr/refinery/internal/domain/staging"
)

// KindSummary tallies one kind across a run.
type KindSummary struct {
	Kind          staging.Kind `json:"kind"`
	Batches       int          `json:"batches"`
	FailedBatches int          `json:"failed_batches"`
	Fetched       int64        `json:"fetched"`
	Acked         int64        `json:"acked"`
	Rejected      int64        `json:"rejected"`
	Inserted      int64        `json:"inserted"`
}

// Summary describes a finished run.
type Summary struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Kinds      []KindSummary `json:"kinds"`
	Errors     []string      `json:"errors,omitempty"`
}

// Clean reports whether every batch committed and every fetched row was
// acknowledged.
func (s *Summary) Clean() bool {
	for _, k := range s.Kinds {
		if k.FailedBatches > 0 || k.Acked != k.Fetched {
			return false
		}
	}
	return true
}

func (s *Summary) Kind(k staging.Kind) (KindSummary, bool) {
	for _, ks := range s.Kinds {
		if ks.Kind == k {
			return ks, true
		}
	}
	return KindSummary{}, false
}
