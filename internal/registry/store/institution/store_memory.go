package institution

import (
	"context"
	"sync"

	"museion/internal/registry/models"
	"museion/pkg/domain"
	"museion/pkg/platform/sentinel"
)

// InMemory keeps institutions in a mutex-guarded map. Execute holds the lock
// across validate and mutate so concurrent admins cannot interleave, matching
// the postgres store's FOR UPDATE semantics.
type InMemory struct {
	mu           sync.RWMutex
	institutions map[domain.InstitutionID]*models.Institution
}

func NewInMemory() *InMemory {
	return &InMemory{institutions: make(map[domain.InstitutionID]*models.Institution)}
}

func (s *InMemory) Create(_ context.Context, inst *models.Institution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.institutions[inst.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	cp := *inst
	s.institutions[inst.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.InstitutionID) (*models.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, exists := s.institutions[id]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	cp := *inst
	return &cp, nil
}

// Execute runs validate then mutate on the institution under the store lock.
// The mutation is applied to the stored record only when validate passes;
// the returned copy reflects the post-mutation state.
func (s *InMemory) Execute(
	_ context.Context,
	id domain.InstitutionID,
	validate func(*models.Institution) error,
	mutate func(*models.Institution),
) (*models.Institution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, exists := s.institutions[id]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	if validate != nil {
		if err := validate(inst); err != nil {
			return nil, err
		}
	}
	mutate(inst)
	cp := *inst
	return &cp, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.institutions), nil
}
