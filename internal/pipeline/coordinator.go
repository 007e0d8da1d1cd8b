package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/refinery/internal/domain/outcome"
	"github.com/ehr/refinery/internal/domain/staging"
)

const DefaultBatchSize = 1000

type Coordinator struct {
	txr       TxRunner
	stages    []Stage
	batchSize int
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCoordinator runs stages in the given order. A batchSize of zero or
// less uses DefaultBatchSize.
func NewCoordinator(txr TxRunner, stages []Stage, batchSize int, logger zerolog.Logger) *Coordinator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Coordinator{
		txr:       txr,
		stages:    stages,
		batchSize: batchSize,
		logger:    logger,
		now:       time.Now,
	}
}

// Run refines every unacknowledged row present for each stage's kind. A
// batch that fails is rolled back and skipped; the run carries on with the
// next one. Run only returns an error when it cannot make progress at all:
// the context ended or a fetch failed.
func (c *Coordinator) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{StartedAt: c.now().UTC()}
	defer func() { sum.FinishedAt = c.now().UTC() }()

	for _, st := range c.stages {
		ks, err := c.runStage(ctx, st, sum)
		sum.Kinds = append(sum.Kinds, ks)
		if err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (c *Coordinator) runStage(ctx context.Context, st Stage, sum *Summary) (KindSummary, error) {
	ks := KindSummary{Kind: st.Kind}
	log := c.logger.With().Str("kind", string(st.Kind)).Logger()

	var cursor int64
	for {
		if err := ctx.Err(); err != nil {
			return ks, err
		}

		var (
			rows  []staging.RawRecord
			res   Result
			acked int64
		)
		err := c.txr.InTx(ctx, func(tx Tx) error {
			store := tx.Staging(st.Kind)

			var err error
			rows, err = store.FetchUnacked(ctx, cursor, c.batchSize)
			if err != nil || len(rows) == 0 {
				return err
			}

			if res, err = st.Refine(ctx, tx, rows); err != nil {
				return err
			}

			ids := AckSet(rows, res.Failures)
			if len(ids) == 0 {
				return nil
			}
			if acked, err = store.Ack(ctx, ids); err != nil {
				return fmt.Errorf("ack: %w", err)
			}
			if acked != int64(len(ids)) {
				log.Warn().Int("expected", len(ids)).Int64("acked", acked).Msg("some rows were already acknowledged")
			}
			return nil
		})

		if len(rows) == 0 {
			if err != nil {
				return ks, fmt.Errorf("fetch %s after id %d: %w", st.Kind, cursor, err)
			}
			return ks, nil
		}

		first, last := rows[0].ID, rows[len(rows)-1].ID
		cursor = last
		ks.Batches++
		ks.Fetched += int64(len(rows))

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ks, err
			}
			berr := &BatchError{Kind: st.Kind, FirstID: first, LastID: last, Err: err}
			ks.FailedBatches++
			sum.Errors = append(sum.Errors, berr.Error())
			log.Error().Err(err).Int64("first_id", first).Int64("last_id", last).Msg("batch rolled back")
			continue
		}

		rejected := outcome.RecordIDs(res.Failures)
		ks.Acked += acked
		ks.Rejected += int64(len(rejected))
		ks.Inserted += res.Inserted

		ev := log.Info().
			Int64("first_id", first).
			Int64("last_id", last).
			Int("fetched", len(rows)).
			Int64("acked", acked).
			Int("rejected", len(rejected)).
			Int64("inserted", res.Inserted)
		if len(rejected) > 0 {
			ev = ev.Interface("reasons", outcome.CountByReason(res.Failures))
		}
		ev.Msg("batch committed")
	}
}
