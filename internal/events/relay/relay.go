// Package relay drains the transactional outbox to the broker. Delivery is
// at-least-once: a row is marked published only after the broker acknowledges
// the record, so a crash between produce and mark replays the event. A
// circuit breaker stops hammering an unreachable broker; the outbox holds the
// backlog until it recovers.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"museion/internal/events"
	eventmetrics "museion/internal/events/metrics"
	"museion/pkg/platform/circuit"
)

// Producer delivers one record and returns only after broker acknowledgement.
type Producer interface {
	Produce(ctx context.Context, key, value []byte) error
}

// Archiver receives every relayed event exactly after broker ack. Archive
// failures are logged, not retried: the outbox remains the source of truth.
type Archiver interface {
	Put(event events.Event) error
}

const (
	defaultInterval  = 250 * time.Millisecond
	defaultBatchSize = 100
)

// Relay is the outbox drain worker.
type Relay struct {
	store     events.Store
	producer  Producer
	archive   Archiver
	breaker   *circuit.Breaker
	logger    *slog.Logger
	metrics   *eventmetrics.Metrics
	interval  time.Duration
	batchSize int
}

type Option func(*Relay)

func WithArchive(a Archiver) Option {
	return func(r *Relay) { r.archive = a }
}

func WithMetrics(m *eventmetrics.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) { r.interval = d }
}

func WithBatchSize(n int) Option {
	return func(r *Relay) { r.batchSize = n }
}

func New(store events.Store, producer Producer, logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		store:     store,
		producer:  producer,
		breaker:   circuit.New("event-relay", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		logger:    logger,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drains the outbox until ctx is cancelled. Blocking; run it in its own
// goroutine (the server uses an errgroup).
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drain(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.ErrorContext(ctx, "relay drain failed", "error", err)
			}
		}
	}
}

// drain relays batches until the outbox is empty or the breaker opens.
func (r *Relay) drain(ctx context.Context) error {
	for {
		batch, err := r.store.FetchUnpublished(ctx, r.batchSize)
		if err != nil {
			return fmt.Errorf("fetch unpublished: %w", err)
		}
		if r.metrics != nil {
			r.metrics.RelayBacklog.Set(float64(len(batch)))
		}
		if len(batch) == 0 {
			return nil
		}

		delivered := make([]uint64, 0, len(batch))
		for _, event := range batch {
			if r.breaker.IsOpen() {
				// Probe with one record per tick while open.
				if len(delivered) > 0 {
					break
				}
			}
			if err := r.relayOne(ctx, event); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if opened, change := r.breaker.RecordFailure(); opened && change.Opened {
					r.logger.WarnContext(ctx, "relay breaker opened", "error", err)
				}
				if r.metrics != nil {
					r.metrics.RelayFailures.Inc()
				}
				break
			}
			if closed, change := r.breaker.RecordSuccess(); closed && change.Closed {
				r.logger.InfoContext(ctx, "relay breaker closed")
			}
			delivered = append(delivered, event.Seq)
		}

		if len(delivered) > 0 {
			if err := r.store.MarkPublished(ctx, delivered); err != nil {
				// Rows stay unpublished and will be produced again;
				// consumers dedupe on event ID.
				return fmt.Errorf("mark published: %w", err)
			}
			if r.metrics != nil {
				r.metrics.EventsRelayed.Add(float64(len(delivered)))
			}
		}
		if len(delivered) < len(batch) {
			return nil
		}
	}
}

func (r *Relay) relayOne(ctx context.Context, event events.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event seq %d: %w", event.Seq, err)
	}
	if err := r.producer.Produce(ctx, []byte(event.ID), value); err != nil {
		return err
	}
	if r.archive != nil {
		if err := r.archive.Put(event); err != nil {
			r.logger.ErrorContext(ctx, "event archive write failed",
				"seq", event.Seq,
				"error", err,
			)
		}
	}
	return nil
}
