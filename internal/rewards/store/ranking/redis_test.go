//go:build integration

package ranking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"museion/pkg/testutil/containers"
)

func TestRedisRanking_TopOrdersByPointsThenAddress(t *testing.T) {
	r := New(containers.NewRedis(t))
	ctx := context.Background()

	require.NoError(t, r.Update(ctx, "alice:museum", 100))
	require.NoError(t, r.Update(ctx, "charlie:collector", 50))
	require.NoError(t, r.Update(ctx, "bravo:collector", 50))

	entries, err := r.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "alice:museum", entries[0].Address.String())
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "bravo:collector", entries[1].Address.String(), "ties broken by address")
	assert.Equal(t, "charlie:collector", entries[2].Address.String())
}

func TestRedisRanking_UpdateOverwritesScore(t *testing.T) {
	r := New(containers.NewRedis(t))
	ctx := context.Background()

	require.NoError(t, r.Update(ctx, "alice:museum", 10))
	require.NoError(t, r.Update(ctx, "alice:museum", 25))

	entries, err := r.Top(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(25), entries[0].Points)
}

func TestRedisRanking_LimitApplies(t *testing.T) {
	r := New(containers.NewRedis(t))
	ctx := context.Background()

	require.NoError(t, r.Update(ctx, "alice:museum", 3))
	require.NoError(t, r.Update(ctx, "bob:collector", 2))
	require.NoError(t, r.Update(ctx, "carol:collector", 1))

	entries, err := r.Top(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
