//go:build integration

package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bankservice "museion/internal/bank/service"
	bankaccount "museion/internal/bank/store/account"
	"museion/internal/events"
	"museion/internal/events/store/outbox"
	marketservice "museion/internal/market/service"
	"museion/internal/market/store/auction"
	"museion/internal/market/store/listing"
	registryservice "museion/internal/registry/service"
	"museion/internal/registry/store/institution"
	rewardservice "museion/internal/rewards/service"
	rewardaccount "museion/internal/rewards/store/account"
	tokenservice "museion/internal/token/service"
	tokenstore "museion/internal/token/store/token"
	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
	"museion/pkg/platform/tx"
	"museion/pkg/testutil/containers"
)

// newPGFixture wires the full stack over PostgreSQL: serializable
// transactions, FOR UPDATE row locking, and the partial unique indexes that
// back the one-active-listing invariant.
func newPGFixture(t *testing.T) (*fixture, *outbox.Postgres) {
	t.Helper()

	db := containers.NewPostgres(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := tx.NewSQLRunner(db)
	ob := outbox.NewPostgres(db)
	pub := events.NewOutboxPublisher(ob, log)

	registrySvc := registryservice.New(institution.NewPostgres(db), runner, admin,
		registryservice.WithLogger(log),
		registryservice.WithPublisher(pub),
	)
	rewardSvc := rewardservice.New(rewardaccount.NewPostgres(db),
		rewardservice.WithLogger(log),
		rewardservice.WithPublisher(pub),
	)
	tokenSvc := tokenservice.New(tokenstore.NewPostgres(db), registrySvc, runner,
		tokenservice.WithLogger(log),
		tokenservice.WithPublisher(pub),
		tokenservice.WithRewardRecorder(rewardSvc),
	)
	bankSvc := bankservice.New(bankaccount.NewPostgres(db), runner, admin,
		bankservice.WithLogger(log),
	)
	marketSvc := marketservice.New(listing.NewPostgres(db), auction.NewPostgres(db), tokenSvc, bankSvc, runner, treasury,
		marketservice.WithLogger(log),
		marketservice.WithPublisher(pub),
		marketservice.WithRewardRecorder(rewardSvc),
	)

	return &fixture{
		registry: registrySvc,
		tokens:   tokenSvc,
		bank:     bankSvc,
		rewards:  rewardSvc,
		market:   marketSvc,
	}, ob
}

func TestPostgres_BuySettlesAtomically(t *testing.T) {
	f, ob := newPGFixture(t)
	ctx := context.Background()

	tokenID := f.mintToken(t, alice, 10)
	f.fund(t, bob, 1000)

	_, err := f.market.List(ctx, tokenID, 1000, alice, nil)
	require.NoError(t, err)

	sold, split, err := f.market.Buy(ctx, tokenID, bob, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(100), split.Royalty)
	assert.Equal(t, int64(20), split.Fee)
	assert.Equal(t, int64(880), split.Proceeds)
	assert.NotNil(t, sold)

	// Royalty and proceeds both land on alice as creator-seller.
	assert.Equal(t, int64(980), f.available(t, alice))
	assert.Equal(t, int64(20), f.available(t, treasury))
	assert.Equal(t, int64(0), f.available(t, bob))

	tok, err := f.tokens.Get(ctx, tokenID)
	require.NoError(t, err)
	assert.Equal(t, bob, tok.Holder)

	// Outbox sequences are dense and commit-ordered.
	all, err := ob.ListAfter(ctx, 0, 100)
	require.NoError(t, err)
	require.NotEmpty(t, all)
	for i, e := range all {
		assert.Equal(t, uint64(i+1), e.Seq)
	}
	last := all[len(all)-1]
	assert.Equal(t, events.TypeTokenSold, last.Type)
}

func TestPostgres_SecondActiveListingRejected(t *testing.T) {
	f, _ := newPGFixture(t)
	ctx := context.Background()

	tokenID := f.mintToken(t, alice, 10)
	_, err := f.market.List(ctx, tokenID, 500, alice, nil)
	require.NoError(t, err)

	// The partial unique index turns the duplicate insert into a conflict.
	_, err = f.market.List(ctx, tokenID, 700, alice, nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyListed))
}

func TestPostgres_FailedBuyLeavesStateUntouched(t *testing.T) {
	f, _ := newPGFixture(t)
	ctx := context.Background()

	tokenID := f.mintToken(t, alice, 10)
	f.fund(t, bob, 400) // below asking price

	_, err := f.market.List(ctx, tokenID, 1000, alice, nil)
	require.NoError(t, err)

	_, _, err = f.market.Buy(ctx, tokenID, bob, 1000)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSettlementFailed))

	l, err := f.market.GetListing(ctx, tokenID)
	require.NoError(t, err)
	assert.Equal(t, "active", string(l.State))
	assert.Equal(t, int64(400), f.available(t, bob))

	tok, err := f.tokens.Get(ctx, tokenID)
	require.NoError(t, err)
	assert.Equal(t, alice, tok.Holder)
}

func TestPostgres_ConcurrentBuyersOneWinner(t *testing.T) {
	f, _ := newPGFixture(t)
	ctx := context.Background()

	tokenID := f.mintToken(t, alice, 10)
	buyers := make([]domain.Address, 4)
	for i := range buyers {
		buyers[i] = domain.Address(fmt.Sprintf("buyer%d:collector", i))
		f.fund(t, buyers[i], 1000)
	}
	_, err := f.market.List(ctx, tokenID, 1000, alice, nil)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []domain.Address
	)
	for _, buyer := range buyers {
		wg.Add(1)
		go func(b domain.Address) {
			defer wg.Done()
			if _, _, err := f.market.Buy(ctx, tokenID, b, 1000); err == nil {
				mu.Lock()
				wins = append(wins, b)
				mu.Unlock()
			}
		}(buyer)
	}
	wg.Wait()

	require.Len(t, wins, 1, "exactly one buyer settles")
	tok, err := f.tokens.Get(ctx, tokenID)
	require.NoError(t, err)
	assert.Equal(t, wins[0], tok.Holder)
}
