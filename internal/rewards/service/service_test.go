package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"museion/internal/events"
	"museion/internal/events/store/outbox"
	"museion/internal/rewards/service"
	"museion/internal/rewards/store/account"
	"museion/pkg/domain"
	dErrors "museion/pkg/domain-errors"
)

const (
	alice = domain.Address("alice:museum")
	bob   = domain.Address("bob:collector")
)

func newService(t *testing.T) (*service.Service, *outbox.InMemory) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ob := outbox.NewInMemory()
	svc := service.New(account.NewInMemory(),
		service.WithLogger(log),
		service.WithPublisher(events.NewOutboxPublisher(ob, log)),
	)
	return svc, ob
}

func TestPointsPolicy(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.OnMinted(ctx, "louvre", alice))
	require.NoError(t, svc.OnListed(ctx, alice))
	require.NoError(t, svc.OnSold(ctx, alice, bob, 1000))

	aliceAcct, err := svc.Account(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(16), aliceAcct.Points, "mint 10 + list 1 + sale 5")
	assert.Equal(t, uint64(1), aliceAcct.Mints)
	assert.Equal(t, uint64(1), aliceAcct.Sales)

	bobAcct, err := svc.Account(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(3), bobAcct.Points)
	assert.Equal(t, uint64(1), bobAcct.Purchases)
}

func TestBadges_AwardedExactlyOnce(t *testing.T) {
	svc, ob := newService(t)
	ctx := context.Background()

	// Two purchases; first_acquisition must land once.
	require.NoError(t, svc.OnSold(ctx, alice, bob, 100))
	require.NoError(t, svc.OnSold(ctx, alice, bob, 100))

	bobAcct, err := svc.Account(ctx, bob)
	require.NoError(t, err)
	count := 0
	for _, b := range bobAcct.Badges {
		if b == "first_acquisition" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	all, err := ob.ListAfter(ctx, 0, 100)
	require.NoError(t, err)
	emitted := 0
	for _, e := range all {
		if e.Type == events.TypeBadgeAwarded && e.Badge == "first_acquisition" && e.Actor == bob {
			emitted++
		}
	}
	assert.Equal(t, 1, emitted)
}

func TestBadges_Thresholds(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	// Ten mints earn prolific_curator and cross the 100-point patron line.
	for i := 0; i < 10; i++ {
		require.NoError(t, svc.OnMinted(ctx, "louvre", alice))
	}
	acct, err := svc.Account(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(100), acct.Points)
	assert.Contains(t, acct.Badges, "prolific_curator")
	assert.Contains(t, acct.Badges, "patron")
	assert.NotContains(t, acct.Badges, "benefactor")
}

func TestRanking_OrderAndTies(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	// alice: 10, bravo/charlie tie at 5 each, resolved by address.
	require.NoError(t, svc.OnMinted(ctx, "louvre", alice))
	require.NoError(t, svc.OnSold(ctx, "charlie:collector", bob, 100)) // seller +5, buyer +3
	require.NoError(t, svc.OnSold(ctx, "bravo:collector", bob, 100))

	entries, err := svc.Ranking(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, alice, entries[0].Address)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, domain.Address("bob:collector"), entries[1].Address, "6 points")
	assert.Equal(t, domain.Address("bravo:collector"), entries[2].Address, "tie broken by address")
	assert.Equal(t, domain.Address("charlie:collector"), entries[3].Address)

	_, err = svc.Ranking(ctx, 0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
}

func TestRanking_LimitApplies(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.OnListed(ctx, domain.Address(fmt.Sprintf("seller%d:collector", i))))
	}
	entries, err := svc.Ranking(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestAccount_UnseenAddressReadsZero(t *testing.T) {
	svc, _ := newService(t)

	acct, err := svc.Account(context.Background(), "nobody:collector")
	require.NoError(t, err)
	assert.Equal(t, int64(0), acct.Points)
	assert.Empty(t, acct.Badges)
}

func TestBadgeCatalog(t *testing.T) {
	svc, _ := newService(t)

	catalog := svc.Badges(context.Background())
	require.NotEmpty(t, catalog)
	ids := make(map[string]bool, len(catalog))
	for _, b := range catalog {
		assert.False(t, ids[b.ID], "badge ids are unique")
		ids[b.ID] = true
	}
	assert.True(t, ids["first_acquisition"])
	assert.True(t, ids["first_sale"])
}
