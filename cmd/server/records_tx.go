package main

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	dErrors "userdir/pkg/domain-errors"
	txcontext "userdir/pkg/platform/tx"
)

const defaultRecordsTxTimeout = 5 * time.Second

// recordsPostgresTx runs a record use case in one pgx transaction. The
// transaction travels in the callback's context, where PostgresStore
// picks it up.
type recordsPostgresTx struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func newRecordsPostgresTx(pool *pgxpool.Pool, timeout time.Duration) *recordsPostgresTx {
	return &recordsPostgresTx{pool: pool, timeout: timeout}
}

func (t *recordsPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultRecordsTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction timed out")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit transaction")
	}
	return nil
}
