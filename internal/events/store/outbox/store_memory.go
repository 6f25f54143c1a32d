package outbox

import (
	"context"
	"sort"
	"sync"

	"museion/internal/events"
)

// InMemory keeps the outbox as an append-only slice ordered by sequence.
// Append is infallible, which the in-memory transaction discipline relies
// on: by the time a service appends, all validation has passed.
type InMemory struct {
	mu      sync.RWMutex
	rows    []row
	nextSeq uint64
}

type row struct {
	event     events.Event
	published bool
}

func NewInMemory() *InMemory {
	return &InMemory{nextSeq: 1}
}

func (s *InMemory) Append(_ context.Context, event *events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.Seq = s.nextSeq
	s.nextSeq++
	s.rows = append(s.rows, row{event: *event})
	return nil
}

func (s *InMemory) FetchUnpublished(_ context.Context, limit int) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]events.Event, 0, limit)
	for i := range s.rows {
		if s.rows[i].published {
			continue
		}
		out = append(out, s.rows[i].event)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemory) MarkPublished(_ context.Context, seqs []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, seq := range seqs {
		// Seq n lives at index n-1; sequences are dense and start at 1.
		if idx := int(seq) - 1; idx >= 0 && idx < len(s.rows) {
			s.rows[idx].published = true
		}
	}
	return nil
}

func (s *InMemory) ListAfter(_ context.Context, after uint64, limit int) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := sort.Search(len(s.rows), func(i int) bool {
		return s.rows[i].event.Seq > after
	})

	out := make([]events.Event, 0, limit)
	for i := start; i < len(s.rows) && len(out) < limit; i++ {
		out = append(out, s.rows[i].event)
	}
	return out, nil
}
