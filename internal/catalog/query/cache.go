package query

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront-services/internal/models"
)

// Snapshot is the rows and the total of one page, read together from the
// backend. They are cached as one value so a hit can never pair rows from
// one catalog state with a total from another.
type Snapshot struct {
	Products []models.Product `json:"products"`
	Total    int              `json:"total"`
}

// PageCache remembers page snapshots. Implementations treat every failure
// as a miss.
type PageCache interface {
	Get(ctx context.Context, key string) (Snapshot, bool)
	Set(ctx context.Context, key string, snap Snapshot)
}

type RedisPageCache struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewRedisPageCache(client redis.Cmdable, ttl time.Duration) *RedisPageCache {
	return &RedisPageCache{client: client, ttl: ttl, prefix: "catalog:page:"}
}

func (c *RedisPageCache) Get(ctx context.Context, key string) (Snapshot, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false
	}
	return snap, true
}

func (c *RedisPageCache) Set(ctx context.Context, key string, snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.prefix+key, data, c.ttl).Err()
}
