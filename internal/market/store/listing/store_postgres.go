package listing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"museion/internal/market/models"
	"museion/pkg/domain"
	"museion/pkg/platform/sentinel"
	txcontext "museion/pkg/platform/tx"
)

// Postgres persists listings. The at-most-one-active invariant is enforced
// by a partial unique index on (token_id) WHERE state = 'active'.
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

const uniqueViolation = "23505"

func (s *Postgres) Create(ctx context.Context, l *models.Listing) error {
	query := `
		INSERT INTO listings (token_id, seller, price, state, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id uint64
	err := s.execer(ctx).QueryRowContext(ctx, query,
		uint64(l.TokenID),
		l.Seller.String(),
		l.Price,
		string(l.State),
		nullTime(l.ExpiresAt),
		l.CreatedAt,
		l.UpdatedAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert listing: %w", err)
	}
	l.ID = domain.ListingID(id)
	return nil
}

func (s *Postgres) FindActiveByToken(ctx context.Context, tokenID domain.TokenID) (*models.Listing, error) {
	query := `
		SELECT id, token_id, seller, price, state, expires_at, created_at, updated_at
		FROM listings
		WHERE token_id = $1 AND state = 'active'
	`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uint64(tokenID)))
}

func (s *Postgres) findByID(ctx context.Context, id domain.ListingID, forUpdate bool) (*models.Listing, error) {
	query := `
		SELECT id, token_id, seller, price, state, expires_at, created_at, updated_at
		FROM listings
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uint64(id)))
}

func (s *Postgres) scanOne(row *sql.Row) (*models.Listing, error) {
	var (
		l         models.Listing
		rawID     uint64
		tokenID   uint64
		seller    string
		state     string
		expiresAt sql.NullTime
	)
	err := row.Scan(&rawID, &tokenID, &seller, &l.Price, &state, &expiresAt, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select listing: %w", err)
	}
	l.ID = domain.ListingID(rawID)
	l.TokenID = domain.TokenID(tokenID)
	l.Seller = domain.Address(seller)
	l.State = models.ListingState(state)
	if expiresAt.Valid {
		t := expiresAt.Time
		l.ExpiresAt = &t
	}
	return &l, nil
}

// Execute reads the listing FOR UPDATE, validates, mutates, writes back.
func (s *Postgres) Execute(
	ctx context.Context,
	id domain.ListingID,
	validate func(*models.Listing) error,
	mutate func(*models.Listing),
) (*models.Listing, error) {
	l, err := s.findByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(l); err != nil {
			return nil, err
		}
	}
	mutate(l)

	query := `
		UPDATE listings
		SET state = $2, updated_at = $3
		WHERE id = $1
	`
	_, err = s.execer(ctx).ExecContext(ctx, query, uint64(l.ID), string(l.State), l.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update listing: %w", err)
	}
	return l, nil
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}
