package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"museion/internal/token/models"
	"museion/pkg/domain"
	"museion/pkg/platform/sentinel"
	txcontext "museion/pkg/platform/tx"
)

// Postgres persists tokens and provenance. Token IDs come from the tokens
// BIGSERIAL, which PostgreSQL guarantees monotonic and never reused.
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

func (s *Postgres) Create(ctx context.Context, t *models.Token) error {
	query := `
		INSERT INTO tokens (
			institution_id, creator, holder, metadata_uri,
			royalty_pct, transfer_count, minted_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var id uint64
	err := s.execer(ctx).QueryRowContext(ctx, query,
		t.Institution.String(),
		t.Creator.String(),
		t.Holder.String(),
		t.MetadataURI,
		t.RoyaltyPct,
		t.TransferCount,
		t.MintedAt,
		t.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	t.ID = domain.TokenID(id)
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.TokenID) (*models.Token, error) {
	return s.findByID(ctx, id, false)
}

func (s *Postgres) findByID(ctx context.Context, id domain.TokenID, forUpdate bool) (*models.Token, error) {
	query := `
		SELECT id, institution_id, creator, holder, metadata_uri,
		       royalty_pct, transfer_count, minted_at, updated_at
		FROM tokens
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var (
		t           models.Token
		rawID       uint64
		institution string
		creator     string
		holder      string
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, uint64(id)).Scan(
		&rawID,
		&institution,
		&creator,
		&holder,
		&t.MetadataURI,
		&t.RoyaltyPct,
		&t.TransferCount,
		&t.MintedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select token: %w", err)
	}
	t.ID = domain.TokenID(rawID)
	t.Institution = domain.InstitutionID(institution)
	t.Creator = domain.Address(creator)
	t.Holder = domain.Address(holder)
	return &t, nil
}

// Execute reads the token FOR UPDATE, validates, mutates, and writes back.
func (s *Postgres) Execute(
	ctx context.Context,
	id domain.TokenID,
	validate func(*models.Token) error,
	mutate func(*models.Token),
) (*models.Token, error) {
	t, err := s.findByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(t); err != nil {
			return nil, err
		}
	}
	mutate(t)

	query := `
		UPDATE tokens
		SET holder = $2, metadata_uri = $3, transfer_count = $4, updated_at = $5
		WHERE id = $1
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uint64(t.ID),
		t.Holder.String(),
		t.MetadataURI,
		t.TransferCount,
		t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update token: %w", err)
	}
	return t, nil
}

func (s *Postgres) Count(ctx context.Context) (uint64, error) {
	var count uint64
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM tokens`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return count, nil
}

func (s *Postgres) AppendProvenance(ctx context.Context, entry *models.ProvenanceEntry) error {
	query := `
		INSERT INTO token_provenance (token_id, seq, kind, from_addr, to_addr, price, note, occurred_at)
		VALUES (
			$1,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM token_provenance WHERE token_id = $1),
			$2, $3, $4, $5, $6, $7
		)
		RETURNING seq
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		uint64(entry.TokenID),
		string(entry.Kind),
		entry.From.String(),
		entry.To.String(),
		entry.Price,
		entry.Note,
		entry.OccurredAt,
	).Scan(&entry.Seq)
	if err != nil {
		return fmt.Errorf("insert provenance entry: %w", err)
	}
	return nil
}

func (s *Postgres) ListProvenance(ctx context.Context, id domain.TokenID) ([]models.ProvenanceEntry, error) {
	query := `
		SELECT token_id, seq, kind, from_addr, to_addr, price, note, occurred_at
		FROM token_provenance
		WHERE token_id = $1
		ORDER BY seq ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uint64(id))
	if err != nil {
		return nil, fmt.Errorf("query provenance: %w", err)
	}
	defer rows.Close()

	var entries []models.ProvenanceEntry
	for rows.Next() {
		var (
			entry models.ProvenanceEntry
			rawID uint64
			kind  string
			from  string
			to    string
		)
		if err := rows.Scan(&rawID, &entry.Seq, &kind, &from, &to, &entry.Price, &entry.Note, &entry.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan provenance entry: %w", err)
		}
		entry.TokenID = domain.TokenID(rawID)
		entry.Kind = models.ProvenanceKind(kind)
		entry.From = domain.Address(from)
		entry.To = domain.Address(to)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provenance entries: %w", err)
	}
	return entries, nil
}
