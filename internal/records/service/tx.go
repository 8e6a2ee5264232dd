package service

import (
	"context"
	"sync"
	"time"

	dErrors "userdir/pkg/domain-errors"
)

// StoreTx provides a transactional boundary around one use case. The
// callback receives the context to use for store calls; returning an error
// rolls the unit of work back. Implementations may wrap a database
// transaction or, in-memory, a coarse lock.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// defaultTxTimeout is the maximum duration of a unit of work when the
// caller's context has no deadline.
const defaultTxTimeout = 5 * time.Second

// lockTx serializes use cases with a single mutex. It pairs with stores
// that apply writes immediately: every use case validates before its only
// write, so a failed callback has nothing to undo.
type lockTx struct {
	mu      sync.Mutex
	timeout time.Duration
}

// NewLockTx returns the in-process StoreTx used with the in-memory store.
func NewLockTx(timeout time.Duration) StoreTx {
	return &lockTx{timeout: timeout}
}

func (t *lockTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}
