// Package ranking provides the Redis-backed read path for the leaderboard.
// The sorted set is a cache of the primary store's point totals, not a source
// of truth: writes are best-effort and reads fall back to the primary store.
package ranking

import (
	"context"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"museion/internal/platform/redis"
	"museion/internal/rewards/models"
	"museion/pkg/domain"
)

const rankingKey = "museion:ranking"

// Redis mirrors point totals into a sorted set for cheap top-N reads.
type Redis struct {
	client *redis.Client
}

func New(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Update records an address's current point total.
func (r *Redis) Update(ctx context.Context, addr domain.Address, points int64) error {
	err := r.client.ZAdd(ctx, rankingKey, goredis.Z{
		Score:  float64(points),
		Member: addr.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("update ranking index: %w", err)
	}
	return nil
}

// Top returns up to limit entries by points descending. Redis orders equal
// scores by reverse member order, so the page is re-sorted to the ledger's
// tie rule (address ascending); ties that straddle the page boundary may
// differ from the primary store, which is acceptable for a cache.
func (r *Redis) Top(ctx context.Context, limit int) ([]models.RankEntry, error) {
	zs, err := r.client.ZRevRangeWithScores(ctx, rankingKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read ranking index: %w", err)
	}

	entries := make([]models.RankEntry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, models.RankEntry{
			Address: domain.Address(member),
			Points:  int64(z.Score),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].Address < entries[j].Address
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
