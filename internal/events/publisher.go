package events

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	eventmetrics "museion/internal/events/metrics"
	dErrors "museion/pkg/domain-errors"
	"museion/pkg/requestcontext"
)

// Publisher is the port services emit through. Implementations append to the
// outbox within the ambient transaction, so a failed Emit must fail the
// surrounding operation: events are part of the committed fact, not
// telemetry.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Store is the transactional outbox. Append participates in the ambient
// transaction (sql.Tx from context on postgres, commit lock on memory);
// Fetch/Mark/List run outside transactions from the relay and read paths.
type Store interface {
	// Append assigns Seq and persists the event. Must be called inside the
	// transaction that performs the mutation the event describes.
	Append(ctx context.Context, event *Event) error
	// FetchUnpublished returns up to limit events not yet relayed, in
	// sequence order.
	FetchUnpublished(ctx context.Context, limit int) ([]Event, error)
	// MarkPublished records that the relay delivered the given sequences.
	MarkPublished(ctx context.Context, seqs []uint64) error
	// ListAfter returns up to limit events with Seq > after, in sequence
	// order, regardless of published state.
	ListAfter(ctx context.Context, after uint64, limit int) ([]Event, error)
}

// OutboxPublisher stamps identity and request metadata onto events and
// appends them to the outbox.
type OutboxPublisher struct {
	store   Store
	logger  *slog.Logger
	metrics *eventmetrics.Metrics
}

func NewOutboxPublisher(store Store, logger *slog.Logger) *OutboxPublisher {
	return &OutboxPublisher{store: store, logger: logger}
}

// WithMetrics attaches pipeline metrics and returns the publisher.
func (p *OutboxPublisher) WithMetrics(m *eventmetrics.Metrics) *OutboxPublisher {
	p.metrics = m
	return p
}

// Emit fills in ID, timestamp, and request ID, then appends. Fail-closed:
// callers treat an error here as a failure of the whole operation.
func (p *OutboxPublisher) Emit(ctx context.Context, event Event) error {
	event.ID = uuid.NewString()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if err := p.store.Append(ctx, &event); err != nil {
		p.logger.ErrorContext(ctx, "event append failed",
			"event_type", event.Type,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record event")
	}
	if p.metrics != nil {
		p.metrics.EventsAppended.Inc()
	}
	return nil
}
