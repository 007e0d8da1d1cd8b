package allergy

import (
	"context"

	"github.com/google/uuid"
)

// Store is the refined-side persistence the allergy refiner needs.
type Store interface {
	// ResolveCodes returns the ids of the codes already stored.
	ResolveCodes(ctx context.Context, keys []CodeKey) (map[CodeKey]int64, error)
	// InsertCodes bulk-inserts codes known to be absent.
	InsertCodes(ctx context.Context, keys []CodeKey) (int64, error)
	ExistingEvents(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	InsertEvents(ctx context.Context, events []Event) (int64, error)
}
