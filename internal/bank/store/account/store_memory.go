package account

import (
	"context"
	"sync"

	"museion/internal/bank/models"
	"museion/pkg/domain"
	"museion/pkg/platform/sentinel"
	"museion/pkg/requestcontext"
)

// InMemory keeps funds accounts in a mutex-guarded map. Accounts are created
// lazily on the first crediting adjustment.
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
	cp := *acct
	return &cp, nil
}

// Adjust applies deltas to the available and escrowed balances. Returns
// sentinel.ErrInsufficient without mutating when either balance would go
// negative.
func (s *InMemory) Adjust(ctx context.Context, addr domain.Address, availableDelta, escrowedDelta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, exists := s.accounts[addr]
	if !exists {
		acct = &models.Account{Address: addr}
		s.accounts[addr] = acct
	}
	if acct.Available+availableDelta < 0 || acct.Escrowed+escrowedDelta < 0 {
		return sentinel.ErrInsufficient
	}
	acct.Available += availableDelta
	acct.Escrowed += escrowedDelta
	acct.UpdatedAt = requestcontext.Now(ctx)
	return nil
}
