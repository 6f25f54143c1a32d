package ranking

import (
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"museion/internal/platform/redis"
	"museion/internal/rewards/service"
)

// The index is built from the platform client wrapper, the same value main
// hands over. No connection is made; this pins the constructor's type.
func TestNew_AcceptsPlatformClient(t *testing.T) {
	client := &redis.Client{Client: goredis.NewClient(&goredis.Options{})}
	t.Cleanup(func() { _ = client.Close() })

	var index service.RankingIndex = New(client)
	assert.NotNil(t, index)
}
