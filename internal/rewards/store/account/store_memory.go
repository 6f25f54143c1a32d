package account

import (
	"context"
	"sort"
	"sync"

	"museion/internal/rewards/models"
	"museion/pkg/domain"
	"museion/pkg/platform/sentinel"
	"museion/pkg/requestcontext"
)

// InMemory keeps reward accounts in a mutex-guarded map. Execute creates the
// account lazily, so every address has an implicit zero account.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[domain.Address]*models.Account
}

func NewInMemory() *InMemory {
	return &InMemory{accounts: make(map[domain.Address]*models.Account)}
}

func (s *InMemory) Get(_ context.Context, addr domain.Address) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, exists := s.accounts[addr]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	cp := s.clone(acct)
	return &cp, nil
}

// Execute applies mutate to the account under the store lock, creating the
// account on first touch. The mutation must be infallible.
func (s *InMemory) Execute(ctx context.Context, addr domain.Address, mutate func(*models.Account)) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := requestcontext.Now(ctx)
	acct, exists := s.accounts[addr]
	if !exists {
		acct = &models.Account{Address: addr, CreatedAt: now}
		s.accounts[addr] = acct
	}
	mutate(acct)
	acct.UpdatedAt = now
	cp := s.clone(acct)
	return &cp, nil
}

// Ranking returns up to limit accounts ordered by points descending, ties by
// address ascending for determinism.
func (s *InMemory) Ranking(_ context.Context, limit int) ([]models.RankEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]models.RankEntry, 0, len(s.accounts))
	for _, acct := range s.accounts {
		entries = append(entries, models.RankEntry{Address: acct.Address, Points: acct.Points})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].Address < entries[j].Address
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (s *InMemory) clone(acct *models.Account) models.Account {
	cp := *acct
	cp.Badges = append([]string(nil), acct.Badges...)
	return cp
}
