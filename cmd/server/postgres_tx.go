package main

import (
	"context"
	"database/sql"
	"errors"
	"time"

	dErrors "loancore/pkg/domain-errors"
	"loancore/pkg/platform/tx"
)

// postgresTxRunner runs the callback inside one SQL transaction, carried in
// the context so every store touched by the callback shares the commit.
type postgresTxRunner struct {
	db      *sql.DB
	timeout time.Duration
}

func newPostgresTxRunner(db *sql.DB, timeout time.Duration) *postgresTxRunner {
	return &postgresTxRunner{db: db, timeout: timeout}
}

func (r *postgresTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorageTimeout, "transaction aborted: context cancelled")
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = tx.DefaultTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return r.translate(err, "begin transaction")
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return r.translate(err, "commit transaction")
	}
	return nil
}

func (r *postgresTxRunner) translate(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeStorageTimeout, op+" exceeded time bound")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, op)
}
