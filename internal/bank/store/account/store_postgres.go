package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"museion/internal/bank/models"
	"museion/pkg/domain"
	"museion/pkg/platform/sentinel"
	txcontext "museion/pkg/platform/tx"
	"museion/pkg/requestcontext"
)

// Postgres persists funds accounts. Balance guards live in the UPDATE
// predicate: an adjustment that would go negative matches zero rows and
// surfaces as sentinel.ErrInsufficient, leaving the row untouched.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Get(ctx context.Context, addr domain.Address) (*models.Account, error) {
	query := `
		SELECT address, available, escrowed, updated_at
		FROM funds_accounts
		WHERE address = $1
	`
	var (
		acct  models.Account
		rawID string
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, addr.String()).Scan(
		&rawID,
		&acct.Available,
		&acct.Escrowed,
		&acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select funds account: %w", err)
	}
	acct.Address = domain.Address(rawID)
	return &acct, nil
}

func (s *Postgres) Adjust(ctx context.Context, addr domain.Address, availableDelta, escrowedDelta int64) error {
	now := requestcontext.Now(ctx)

	ensure := `
		INSERT INTO funds_accounts (address, available, escrowed, updated_at)
		VALUES ($1, 0, 0, $2)
		ON CONFLICT (address) DO NOTHING
	`
	if _, err := s.execer(ctx).ExecContext(ctx, ensure, addr.String(), now); err != nil {
		return fmt.Errorf("ensure funds account: %w", err)
	}

	update := `
		UPDATE funds_accounts
		SET available = available + $2,
		    escrowed = escrowed + $3,
		    updated_at = $4
		WHERE address = $1
		  AND available + $2 >= 0
		  AND escrowed + $3 >= 0
	`
	result, err := s.execer(ctx).ExecContext(ctx, update, addr.String(), availableDelta, escrowedDelta, now)
	if err != nil {
		return fmt.Errorf("adjust funds account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust funds account: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrInsufficient
	}
	return nil
}
