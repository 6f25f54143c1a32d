package listing

import (
	"context"
	"sync"

	"museion/internal/market/models"
	"museion/pkg/domain"
	"museion/pkg/platform/sentinel"
)

// InMemory keeps listings in mutex-guarded maps with an active-per-token
// index enforcing the at-most-one-active invariant at the store boundary.
type InMemory struct {
	mu       sync.RWMutex
	listings map[domain.ListingID]*models.Listing
	active   map[domain.TokenID]domain.ListingID
	nextID   uint64
}

func NewInMemory() *InMemory {
	return &InMemory{
		listings: make(map[domain.ListingID]*models.Listing),
		active:   make(map[domain.TokenID]domain.ListingID),
		nextID:   1,
	}
}

// Create assigns the next listing ID and persists the listing. Returns
// sentinel.ErrConflict when an active listing already exists for the token.
func (s *InMemory) Create(_ context.Context, l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.active[l.TokenID]; exists {
		return sentinel.ErrConflict
	}
	l.ID = domain.ListingID(s.nextID)
	s.nextID++
	cp := *l
	s.listings[l.ID] = &cp
	s.active[l.TokenID] = l.ID
	return nil
}

// FindActiveByToken returns the token's active listing, if any. Lazily
// expired listings are still returned as stored; the service folds expiry.
func (s *InMemory) FindActiveByToken(_ context.Context, tokenID domain.TokenID) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.active[tokenID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.listings[id]
	return &cp, nil
}

// Execute runs validate then mutate on the listing under the store lock.
// A mutation out of the Active state drops the active index entry.
func (s *InMemory) Execute(
	_ context.Context,
	id domain.ListingID,
	validate func(*models.Listing) error,
	mutate func(*models.Listing),
) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, exists := s.listings[id]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	if validate != nil {
		if err := validate(l); err != nil {
			return nil, err
		}
	}
	mutate(l)
	if !l.IsActive() {
		if activeID, ok := s.active[l.TokenID]; ok && activeID == l.ID {
			delete(s.active, l.TokenID)
		}
	}
	cp := *l
	return &cp, nil
}
