package tx

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	dErrors "museion/pkg/domain-errors"
)

// Runner executes a function as one atomic commit. Every public mutating
// operation runs exactly one RunInTx; everything the function touches through
// the participating stores commits together or not at all.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// defaultTxTimeout bounds how long a transaction may wait for the commit
// lock plus execute, when the caller did not set a deadline.
const defaultTxTimeout = 5 * time.Second

// SerialRunner models the host ledger's serial commit ordering for in-memory
// deployments: one transaction at a time over the whole state. Correctness
// rests on the validate-then-mutate discipline — fn performs all fallible
// checks before its first mutation, and memory store apply steps are
// infallible — so an error return means nothing happened.
type SerialRunner struct {
	sem     chan struct{}
	timeout time.Duration
}

func NewSerialRunner() *SerialRunner {
	return &SerialRunner{sem: make(chan struct{}, 1), timeout: defaultTxTimeout}
}

func (r *SerialRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "transaction aborted: commit lock wait timed out")
	}
	defer func() { <-r.sem }()

	return fn(ctx)
}

// SQLRunner runs fn inside a PostgreSQL transaction at serializable
// isolation. The *sql.Tx rides the context (WithTx); postgres stores detect
// it and route their statements through it, so fn's store calls all land in
// the same transaction.
type SQLRunner struct {
	db *sql.DB
}

func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sqlTx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		_ = sqlTx.Rollback()
		if isSerializationFailure(err) {
			return dErrors.Wrap(err, dErrors.CodeConflict, "transaction serialization conflict")
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return dErrors.Wrap(err, dErrors.CodeConflict, "transaction serialization conflict")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	return nil
}

// isSerializationFailure reports SQLSTATE 40001. Serializable transactions
// that lose a concurrency race fail with it; callers may retry, the ledger
// state is untouched.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}
