package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"museion/internal/rewards/models"
	"museion/pkg/domain"
	"museion/pkg/platform/sentinel"
	txcontext "museion/pkg/platform/tx"
	"museion/pkg/requestcontext"
)

// Postgres persists reward accounts. Badges are stored as a comma-joined
// text column: the set is small, append-only, and read back whole.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Get(ctx context.Context, addr domain.Address) (*models.Account, error) {
	return s.findByAddress(ctx, addr, false)
}

func (s *Postgres) findByAddress(ctx context.Context, addr domain.Address, forUpdate bool) (*models.Account, error) {
	query := `
		SELECT address, points, badges, mints, sales, purchases, created_at, updated_at
		FROM reward_accounts
		WHERE address = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var (
		acct   models.Account
		rawID  string
		badges string
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, addr.String()).Scan(
		&rawID,
		&acct.Points,
		&badges,
		&acct.Mints,
		&acct.Sales,
		&acct.Purchases,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select reward account: %w", err)
	}
	acct.Address = domain.Address(rawID)
	if badges != "" {
		acct.Badges = strings.Split(badges, ",")
	}
	return &acct, nil
}

// Execute locks (or creates) the row, applies mutate, and writes it back.
func (s *Postgres) Execute(ctx context.Context, addr domain.Address, mutate func(*models.Account)) (*models.Account, error) {
	now := requestcontext.Now(ctx)

	ensure := `
		INSERT INTO reward_accounts (address, points, badges, mints, sales, purchases, created_at, updated_at)
		VALUES ($1, 0, '', 0, 0, 0, $2, $2)
		ON CONFLICT (address) DO NOTHING
	`
	if _, err := s.execer(ctx).ExecContext(ctx, ensure, addr.String(), now); err != nil {
		return nil, fmt.Errorf("ensure reward account: %w", err)
	}

	acct, err := s.findByAddress(ctx, addr, true)
	if err != nil {
		return nil, err
	}
	mutate(acct)
	acct.UpdatedAt = now

	update := `
		UPDATE reward_accounts
		SET points = $2, badges = $3, mints = $4, sales = $5, purchases = $6, updated_at = $7
		WHERE address = $1
	`
	_, err = s.execer(ctx).ExecContext(ctx, update,
		acct.Address.String(),
		acct.Points,
		strings.Join(acct.Badges, ","),
		acct.Mints,
		acct.Sales,
		acct.Purchases,
		acct.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward account: %w", err)
	}
	return acct, nil
}

// Ranking orders by points descending, address ascending.
func (s *Postgres) Ranking(ctx context.Context, limit int) ([]models.RankEntry, error) {
	query := `
		SELECT address, points
		FROM reward_accounts
		ORDER BY points DESC, address ASC
		LIMIT $1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query ranking: %w", err)
	}
	defer rows.Close()

	var entries []models.RankEntry
	for rows.Next() {
		var (
			entry models.RankEntry
			addr  string
		)
		if err := rows.Scan(&addr, &entry.Points); err != nil {
			return nil, fmt.Errorf("scan ranking entry: %w", err)
		}
		entry.Address = domain.Address(addr)
		entry.Rank = len(entries) + 1
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranking entries: %w", err)
	}
	return entries, nil
}
