package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"museion/internal/events"
	txcontext "museion/pkg/platform/tx"
)

// Postgres persists the outbox. Seq is a BIGSERIAL assigned at insert, so
// sequence order matches commit order under serializable isolation. The
// event body is stored as JSONB with Seq injected from the column on read.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Append(ctx context.Context, event *events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	query := `
		INSERT INTO outbox (event_id, event_type, occurred_at, payload, published)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING seq
	`
	err = s.execer(ctx).QueryRowContext(ctx, query,
		event.ID,
		string(event.Type),
		event.OccurredAt,
		payload,
	).Scan(&event.Seq)
	if err != nil {
		return fmt.Errorf("insert outbox row: %w", err)
	}
	return nil
}

func (s *Postgres) FetchUnpublished(ctx context.Context, limit int) ([]events.Event, error) {
	query := `
		SELECT seq, payload
		FROM outbox
		WHERE NOT published
		ORDER BY seq
		LIMIT $1
	`
	return s.scanEvents(ctx, query, limit)
}

func (s *Postgres) MarkPublished(ctx context.Context, seqs []uint64) error {
	if len(seqs) == 0 {
		return nil
	}
	ids := make([]int64, len(seqs))
	for i, seq := range seqs {
		ids[i] = int64(seq)
	}
	query := `UPDATE outbox SET published = TRUE WHERE seq = ANY($1)`
	if _, err := s.execer(ctx).ExecContext(ctx, query, int64Array(ids)); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}

func (s *Postgres) ListAfter(ctx context.Context, after uint64, limit int) ([]events.Event, error) {
	query := `
		SELECT seq, payload
		FROM outbox
		WHERE seq > $1
		ORDER BY seq
		LIMIT $2
	`
	return s.scanEvents(ctx, query, int64(after), limit)
}

func (s *Postgres) scanEvents(ctx context.Context, query string, args ...any) ([]events.Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select outbox rows: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var (
			seq     uint64
			payload []byte
		)
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		var event events.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("unmarshal event seq %d: %w", seq, err)
		}
		event.Seq = seq
		out = append(out, event)
	}
	return out, rows.Err()
}

// int64Array renders a Postgres bigint array literal. database/sql has no
// native array support without a driver-specific type.
func int64Array(values []int64) string {
	buf := make([]byte, 0, len(values)*8+2)
	buf = append(buf, '{')
	for i, v := range values {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = fmt.Appendf(buf, "%d", v)
	}
	buf = append(buf, '}')
	return string(buf)
}
