package patient

import (
	"context"

	"github.com/google/uuid"
)

// Store is the refined-side persistence the patient refiner needs. Lookups
// take the full key set of a batch and return the subset already stored.
type Store interface {
	ExistingPatients(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Demographics, error)
	ExistingNames(ctx context.Context, keys []NameKey) ([]NameKey, error)
	ExistingAddresses(ctx context.Context, keys []AddressKey) ([]AddressKey, error)
	ExistingTelecoms(ctx context.Context, keys []TelecomKey) ([]TelecomKey, error)

	InsertPatients(ctx context.Context, ps []Demographics) (int64, error)
	InsertNames(ctx context.Context, ns []Name) (int64, error)
	InsertAddresses(ctx context.Context, as []Address) (int64, error)
	InsertTelecoms(ctx context.Context, ts []Telecom) (int64, error)
}
