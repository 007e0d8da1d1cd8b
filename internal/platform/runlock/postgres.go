package runlock

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres holds a session advisory lock on a connection taken out of the
// pool for the duration of the run.
type Postgres struct {
	pool *pgxpool.Pool
	name string
}

func NewPostgres(pool *pgxpool.Pool, name string) *Postgres {
	return &Postgres{pool: pool, name: name}
}

func (p *Postgres) Acquire(ctx context.Context) (Release, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection for run lock: %w", err)
	}

	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, p.name).Scan(&ok); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		conn.Release()
		return nil, ErrHeld
	}

	var once sync.Once
	return func(ctx context.Context) error {
		var err error
		once.Do(func() {
			defer conn.Release()
			var unlocked bool
			if err = conn.QueryRow(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, p.name).Scan(&unlocked); err != nil {
				err = fmt.Errorf("release run lock: %w", err)
				return
			}
			if !unlocked {
				err = ErrLost
			}
		})
		return err
	}, nil
}
