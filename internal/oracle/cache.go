package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PriceCache is a Redis-backed TTL cache for oracle readings, shared by
// the HTTP source (read-through) and the websocket stream (write-behind).
type PriceCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewPriceCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *PriceCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceCache{rdb: rdb, ttl: ttl, logger: logger}
}

func priceKey(chainID int64, oracleAddress string) string {
	return fmt.Sprintf("oracle:price:%d:%s", chainID, oracleAddress)
}

// Get returns a cached reading, or (nil, false) on miss. A reading whose
// timestamp is older than the cache TTL is treated as a miss even if the
// key has not been evicted yet.
func (c *PriceCache) Get(ctx context.Context, chainID int64, oracleAddress string) (*Price, bool) {
	data, err := c.rdb.Get(ctx, priceKey(chainID, oracleAddress)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("oracle.cache_get_failed",
			zap.String("feed", oracleAddress),
			zap.Error(err))
		return nil, false
	}

	var p Price
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false
	}
	if time.Since(p.Timestamp) > c.ttl {
		return nil, false
	}
	return &p, true
}

// Put stores a reading with the cache TTL.
func (c *PriceCache) Put(ctx context.Context, chainID int64, oracleAddress string, p *Price) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, priceKey(chainID, oracleAddress), data, c.ttl).Err()
}

// HealthCheck pings Redis.
func (c *PriceCache) HealthCheck(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
