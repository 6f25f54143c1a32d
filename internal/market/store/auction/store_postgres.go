package auction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"museion/internal/market/models"
	"museion/pkg/domain"
	"museion/pkg/platform/sentinel"
	txcontext "museion/pkg/platform/tx"
)

// Postgres persists auctions. A partial unique index on (token_id) WHERE
// state = 'active' enforces at most one live auction per token.
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

func (s *Postgres) Create(ctx context.Context, a *models.Auction) error {
	query := `
		INSERT INTO auctions (
			token_id, seller, start_price, current_bid, highest_bidder,
			state, ends_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	var id uint64
	err := s.execer(ctx).QueryRowContext(ctx, query,
		uint64(a.TokenID),
		a.Seller.String(),
		a.StartPrice,
		a.CurrentBid,
		a.HighestBidder.String(),
		string(a.State),
		a.EndsAt,
		a.CreatedAt,
		a.UpdatedAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert auction: %w", err)
	}
	a.ID = domain.AuctionID(id)
	return nil
}

func (s *Postgres) FindActiveByToken(ctx context.Context, tokenID domain.TokenID) (*models.Auction, error) {
	query := `
		SELECT id, token_id, seller, start_price, current_bid, highest_bidder,
		       state, ends_at, created_at, updated_at
		FROM auctions
		WHERE token_id = $1 AND state = 'active'
	`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uint64(tokenID)))
}

func (s *Postgres) findByID(ctx context.Context, id domain.AuctionID, forUpdate bool) (*models.Auction, error) {
	query := `
		SELECT id, token_id, seller, start_price, current_bid, highest_bidder,
		       state, ends_at, created_at, updated_at
		FROM auctions
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uint64(id)))
}

func (s *Postgres) scanOne(row *sql.Row) (*models.Auction, error) {
	var (
		a       models.Auction
		rawID   uint64
		tokenID uint64
		seller  string
		bidder  string
		state   string
	)
	err := row.Scan(&rawID, &tokenID, &seller, &a.StartPrice, &a.CurrentBid, &bidder,
		&state, &a.EndsAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select auction: %w", err)
	}
	a.ID = domain.AuctionID(rawID)
	a.TokenID = domain.TokenID(tokenID)
	a.Seller = domain.Address(seller)
	a.HighestBidder = domain.Address(bidder)
	a.State = models.AuctionState(state)
	return &a, nil
}

// Execute reads the auction FOR UPDATE, validates, mutates, writes back.
func (s *Postgres) Execute(
	ctx context.Context,
	id domain.AuctionID,
	validate func(*models.Auction) error,
	mutate func(*models.Auction),
) (*models.Auction, error) {
	a, err := s.findByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(a); err != nil {
			return nil, err
		}
	}
	mutate(a)

	query := `
		UPDATE auctions
		SET current_bid = $2, highest_bidder = $3, state = $4, updated_at = $5
		WHERE id = $1
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uint64(a.ID),
		a.CurrentBid,
		a.HighestBidder.String(),
		string(a.State),
		a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update auction: %w", err)
	}
	return a, nil
}
