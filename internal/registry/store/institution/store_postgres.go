package institution

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"museion/internal/registry/models"
	"museion/pkg/domain"
	"museion/pkg/platform/sentinel"
	txcontext "museion/pkg/platform/tx"
)

// Postgres persists institutions. Statements route through the ambient
// transaction when one rides the context, so Execute's read-validate-write
// lands in the caller's commit.
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

func (s *Postgres) Create(ctx context.Context, inst *models.Institution) error {
	query := `
		INSERT INTO institutions (
			id, name, description, verified, status,
			collection_count, credential_hash, registered_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		inst.ID.String(),
		inst.Name,
		inst.Description,
		inst.Verified,
		string(inst.Status),
		inst.CollectionCount,
		inst.CredentialHash,
		inst.RegisteredAt,
		inst.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert institution: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.InstitutionID) (*models.Institution, error) {
	return s.findByID(ctx, id, false)
}

func (s *Postgres) findByID(ctx context.Context, id domain.InstitutionID, forUpdate bool) (*models.Institution, error) {
	query := `
		SELECT id, name, description, verified, status,
		       collection_count, credential_hash, registered_at, updated_at
		FROM institutions
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var (
		inst   models.Institution
		rawID  string
		status string
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, id.String()).Scan(
		&rawID,
		&inst.Name,
		&inst.Description,
		&inst.Verified,
		&status,
		&inst.CollectionCount,
		&inst.CredentialHash,
		&inst.RegisteredAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select institution: %w", err)
	}
	inst.ID = domain.InstitutionID(rawID)
	inst.Status = models.Status(status)
	return &inst, nil
}

// Execute reads the row FOR UPDATE, validates, mutates, and writes it back.
// Outside an ambient transaction the row lock only covers the single
// statement, so callers that need atomicity run this inside tx.Runner.
func (s *Postgres) Execute(
	ctx context.Context,
	id domain.InstitutionID,
	validate func(*models.Institution) error,
	mutate func(*models.Institution),
) (*models.Institution, error) {
	inst, err := s.findByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(inst); err != nil {
			return nil, err
		}
	}
	mutate(inst)

	query := `
		UPDATE institutions
		SET name = $2, description = $3, verified = $4, status = $5,
		    collection_count = $6, updated_at = $7
		WHERE id = $1
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		inst.ID.String(),
		inst.Name,
		inst.Description,
		inst.Verified,
		string(inst.Status),
		inst.CollectionCount,
		inst.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update institution: %w", err)
	}
	return inst, nil
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM institutions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count institutions: %w", err)
	}
	return count, nil
}
