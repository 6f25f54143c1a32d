package auction

import (
	"context"
	"sync"

	"museion/internal/market/models"
	"museion/pkg/domain"
	"museion/pkg/platform/sentinel"
)

// InMemory keeps auctions in mutex-guarded maps with an active-per-token
// index, mirroring the listing store.
type InMemory struct {
	mu       sync.RWMutex
	auctions map[domain.AuctionID]*models.Auction
	active   map[domain.TokenID]domain.AuctionID
	nextID   uint64
}

func NewInMemory() *InMemory {
	return &InMemory{
		auctions: make(map[domain.AuctionID]*models.Auction),
		active:   make(map[domain.TokenID]domain.AuctionID),
		nextID:   1,
	}
}

// Create assigns the next auction ID and persists the auction. Returns
// sentinel.ErrConflict when an active auction already exists for the token.
func (s *InMemory) Create(_ context.Context, a *models.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.active[a.TokenID]; exists {
		return sentinel.ErrConflict
	}
	a.ID = domain.AuctionID(s.nextID)
	s.nextID++
	cp := *a
	s.auctions[a.ID] = &cp
	s.active[a.TokenID] = a.ID
	return nil
}

// FindActiveByToken returns the token's active auction, if any.
func (s *InMemory) FindActiveByToken(_ context.Context, tokenID domain.TokenID) (*models.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.active[tokenID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.auctions[id]
	return &cp, nil
}

// Execute runs validate then mutate on the auction under the store lock.
func (s *InMemory) Execute(
	_ context.Context,
	id domain.AuctionID,
	validate func(*models.Auction) error,
	mutate func(*models.Auction),
) (*models.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.auctions[id]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	if validate != nil {
		if err := validate(a); err != nil {
			return nil, err
		}
	}
	mutate(a)
	if !a.IsActive() {
		if activeID, ok := s.active[a.TokenID]; ok && activeID == a.ID {
			delete(s.active, a.TokenID)
		}
	}
	cp := *a
	return &cp, nil
}
