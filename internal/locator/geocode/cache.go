package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront-services/internal/common/logger"
	"storefront-services/internal/common/metrics"
)

type cacheEntry struct {
	Miss   bool    `json:"miss,omitempty"`
	Result *Result `json:"result,omitempty"`
}

// CachedResolver persists results in Redis so stores are not geocoded again
// on every load. Definite misses are cached for missTTL; transient failures
// are never cached.
type CachedResolver struct {
	inner   Resolver
	client  redis.Cmdable
	ttl     time.Duration
	missTTL time.Duration
	logger  logger.Logger
}

func NewCachedResolver(inner Resolver, client redis.Cmdable, ttl, missTTL time.Duration, log logger.Logger) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		client:  client,
		ttl:     ttl,
		missTTL: missTTL,
		logger:  log.WithFields(map[string]interface{}{"component": "geocode-cache"}),
	}
}

func CacheKey(req Request) string {
	normalized := strings.ToLower(join(req.Address, req.City, req.State, req.ZipCode, req.Country))
	sum := sha256.Sum256([]byte(normalized))
	return "geocode:" + hex.EncodeToString(sum[:16])
}

func (c *CachedResolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key := CacheKey(req)

	if entry, ok := c.lookup(ctx, key); ok {
		metrics.GeocodeCacheHits.Inc()
		if entry.Miss {
			return nil, ErrNoResult
		}
		return entry.Result, nil
	}

	res, err := c.inner.Resolve(ctx, req)
	switch {
	case err == nil:
		c.store(ctx, key, cacheEntry{Result: res}, c.ttl)
	case errors.Is(err, ErrNoResult) && !errors.Is(err, ErrTimeout) && !errors.Is(err, ErrProviderFailed):
		c.store(ctx, key, cacheEntry{Miss: true}, c.missTTL)
	}
	return res, err
}

func (c *CachedResolver) lookup(ctx context.Context, key string) (cacheEntry, bool) {
	var entry cacheEntry
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("geocode cache read failed", map[string]interface{}{"error": err.Error()})
		}
		return entry, false
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return entry, false
	}
	return entry, entry.Miss || entry.Result != nil
}

func (c *CachedResolver) store(ctx context.Context, key string, entry cacheEntry, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("geocode cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
