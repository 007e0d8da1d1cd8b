package staging

import "context"

// Store is the staging side of a batch: fetch unacknowledged rows past a
// cursor, and acknowledge the ones that were refined.
type Store interface {
	// FetchUnacked returns at most limit unacknowledged rows with id greater
	// than afterID, ascending by id.
	FetchUnacked(ctx context.Context, afterID int64, limit int) ([]RawRecord, error)
	// Ack marks the given rows acknowledged and returns how many changed.
	Ack(ctx context.Context, ids []int64) (int64, error)
}

// Appender bulk-appends raw payloads as new unacknowledged rows.
type Appender interface {
	Append(ctx context.Context, payloads [][]byte) (int64, error)
}
