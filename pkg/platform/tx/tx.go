package tx

import (
	"context"
	"database/sql"
)

type txKey struct{}

// WithTx rides a SQL transaction on the context. Postgres stores route their
// statements through it so every store call inside one RunInTx lands in the
// same transaction.
func WithTx(ctx context.Context, sqlTx *sql.Tx) context.Context {
	if sqlTx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, sqlTx)
}

// From returns the ambient transaction, if any. Stores fall back to their
// connection pool when none is present (read-only paths).
func From(ctx context.Context) (*sql.Tx, bool) {
	sqlTx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return sqlTx, ok
}
