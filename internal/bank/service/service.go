// Package service implements the settlement bank: the on-ledger funds
// accounts that marketplace settlement moves value between. Deposits stand in
// for the out-of-scope payment rail; everything else is internal movement.
package service

import (
	"context"
	"errors"
	"log/slog"

	"museion/internal/bank/models"
	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
	"museion/pkg/platform/sentinel"
	"museion/pkg/platform/tx"
	"museion/pkg/requestcontext"
)

// AccountStore is the bank's persistence port. Adjust must reject any
// movement that would leave a balance negative, without partial effect.
type AccountStore interface {
	Get(ctx context.Context, addr domain.Address) (*models.Account, error)
	Adjust(ctx context.Context, addr domain.Address, availableDelta, escrowedDelta int64) error
}

// Service owns funds accounts. The exported mutators below are the HTTP
// surface; the movement methods (Debit, Credit, Hold, Release, Capture) are
// internal capabilities the marketplace calls inside its own transaction.
type Service struct {
	accounts AccountStore
	runner   tx.Runner
	admin    domain.Address
	logger   *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(accounts AccountStore, runner tx.Runner, admin domain.Address, opts ...Option) *Service {
	s := &Service{accounts: accounts, runner: runner, admin: admin, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deposit credits an address from the platform faucet. Admin only.
func (s *Service) Deposit(ctx context.Context, addr domain.Address, amount int64, caller domain.Address) (*models.Account, error) {
	if caller != s.admin {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not the administrative authority")
	}
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "deposit amount must be positive")
	}

	var acct *models.Account
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.accounts.Adjust(txCtx, addr, amount, 0); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to credit deposit")
		}
		a, err := s.accounts.Get(txCtx, addr)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load funds account")
		}
		acct = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "deposit credited",
		"address", addr,
		"amount", amount,
		"request_id", requestcontext.RequestID(ctx),
	)
	return acct, nil
}

// Balance returns the account for an address. Unknown addresses read as zero
// balances rather than errors: every address trivially holds nothing.
func (s *Service) Balance(ctx context.Context, addr domain.Address) (*models.Account, error) {
	acct, err := s.accounts.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &models.Account{Address: addr}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load funds account")
	}
	return acct, nil
}

// The movement methods below run inside the caller's ambient transaction and
// return sentinel.ErrInsufficient untranslated; the marketplace decides
// whether that means insufficient_payment or settlement_failed.

// Debit removes available funds.
func (s *Service) Debit(ctx context.Context, addr domain.Address, amount int64) error {
	return s.accounts.Adjust(ctx, addr, -amount, 0)
}

// Credit adds available funds.
func (s *Service) Credit(ctx context.Context, addr domain.Address, amount int64) error {
	return s.accounts.Adjust(ctx, addr, amount, 0)
}

// Hold moves available funds into escrow (auction bid).
func (s *Service) Hold(ctx context.Context, addr domain.Address, amount int64) error {
	return s.accounts.Adjust(ctx, addr, -amount, amount)
}

// Release moves escrowed funds back to available (outbid refund, cancel).
func (s *Service) Release(ctx context.Context, addr domain.Address, amount int64) error {
	return s.accounts.Adjust(ctx, addr, amount, -amount)
}

// Capture burns escrowed funds at settlement; the split credits the
// recipients separately.
func (s *Service) Capture(ctx context.Context, addr domain.Address, amount int64) error {
	return s.accounts.Adjust(ctx, addr, 0, -amount)
}
