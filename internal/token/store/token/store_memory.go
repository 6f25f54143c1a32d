package token

import (
	"context"
	"sync"

	"museion/internal/token/models"
	"museion/pkg/domain"
	"museion/pkg/platform/sentinel"
)

// InMemory keeps tokens and provenance in mutex-guarded maps. The token ID
// counter lives here: monotonic, starting at 1, never reused.
type InMemory struct {
	mu         sync.RWMutex
	tokens     map[domain.TokenID]*models.Token
	provenance map[domain.TokenID][]models.ProvenanceEntry
	nextID     uint64
}

func NewInMemory() *InMemory {
	return &InMemory{
		tokens:     make(map[domain.TokenID]*models.Token),
		provenance: make(map[domain.TokenID][]models.ProvenanceEntry),
		nextID:     1,
	}
}

// Create assigns the next token ID and persists the token.
func (s *InMemory) Create(_ context.Context, t *models.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = domain.TokenID(s.nextID)
	s.nextID++
	cp := *t
	s.tokens[t.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.TokenID) (*models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.tokens[id]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// Execute runs validate then mutate on the token under the store lock.
func (s *InMemory) Execute(
	_ context.Context,
	id domain.TokenID,
	validate func(*models.Token) error,
	mutate func(*models.Token),
) (*models.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tokens[id]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	if validate != nil {
		if err := validate(t); err != nil {
			return nil, err
		}
	}
	mutate(t)
	cp := *t
	return &cp, nil
}

func (s *InMemory) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.tokens)), nil
}

// AppendProvenance assigns the per-token sequence and appends the entry.
func (s *InMemory) AppendProvenance(_ context.Context, entry *models.ProvenanceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Seq = uint64(len(s.provenance[entry.TokenID])) + 1
	s.provenance[entry.TokenID] = append(s.provenance[entry.TokenID], *entry)
	return nil
}

func (s *InMemory) ListProvenance(_ context.Context, id domain.TokenID) ([]models.ProvenanceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.provenance[id]
	out := make([]models.ProvenanceEntry, len(entries))
	copy(out, entries)
	return out, nil
}
