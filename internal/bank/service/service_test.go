package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"museion/internal/bank/service"
	"museion/internal/bank/store/account"
	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
	"museion/pkg/platform/sentinel"
	"museion/pkg/platform/tx"
)

const (
	admin = domain.Address("admin:platform")
	bob   = domain.Address("bob:collector")
)

func newService() *service.Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return service.New(account.NewInMemory(), tx.NewSerialRunner(), admin,
		service.WithLogger(log),
	)
}

func TestDeposit_AdminOnly(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Deposit(ctx, bob, 100, bob)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = svc.Deposit(ctx, bob, 0, admin)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))

	acct, err := svc.Deposit(ctx, bob, 100, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(100), acct.Available)
}

func TestBalance_UnknownAddressReadsZero(t *testing.T) {
	svc := newService()

	acct, err := svc.Balance(context.Background(), "nobody:collector")
	require.NoError(t, err)
	assert.Equal(t, int64(0), acct.Available)
	assert.Equal(t, int64(0), acct.Escrowed)
}

func TestFundMovements_NeverGoNegative(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Deposit(ctx, bob, 100, admin)
	require.NoError(t, err)

	err = svc.Debit(ctx, bob, 101)
	assert.ErrorIs(t, err, sentinel.ErrInsufficient)

	err = svc.Hold(ctx, bob, 101)
	assert.ErrorIs(t, err, sentinel.ErrInsufficient)

	require.NoError(t, svc.Hold(ctx, bob, 60))
	acct, err := svc.Balance(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(40), acct.Available)
	assert.Equal(t, int64(60), acct.Escrowed)

	// Capture burns escrow; releasing more than held is refused.
	err = svc.Release(ctx, bob, 61)
	assert.ErrorIs(t, err, sentinel.ErrInsufficient)
	require.NoError(t, svc.Capture(ctx, bob, 60))

	acct, err = svc.Balance(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(40), acct.Available)
	assert.Equal(t, int64(0), acct.Escrowed)
}
