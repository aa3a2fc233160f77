package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"sportseval/ingestion/internal/metrics"
)

// Config holds Redis connection configuration
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RedisCache caches per-date identity indexes. All methods are safe on a
// nil receiver so the pipeline degrades to uncached operation when Redis
// is unavailable.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg Config, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func identityIndexKey(sport string, date time.Time) string {
	return fmt.Sprintf("identity_index:%s:%s", sport, date.Format("2006-01-02"))
}

// GetIdentityIndex retrieves a cached identity index for a sport and date.
// Returns (nil, false) on miss or any Redis failure.
func (c *RedisCache) GetIdentityIndex(ctx context.Context, sport string, date time.Time) (map[string]string, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	payload, err := c.client.Get(ctx, identityIndexKey(sport, date)).Bytes()
	if err == redis.Nil {
		metrics.RecordCacheMiss()
		return nil, false
	}
	if err != nil {
		log.Warn().Err(err).Str("sport", sport).Msg("Identity index cache read failed")
		metrics.RecordCacheMiss()
		return nil, false
	}

	var entries map[string]string
	if err := json.Unmarshal(payload, &entries); err != nil {
		log.Warn().Err(err).Str("sport", sport).Msg("Identity index cache payload corrupt")
		metrics.RecordCacheMiss()
		return nil, false
	}

	metrics.RecordCacheHit()
	return entries, true
}

// SetIdentityIndex stores an identity index for a sport and date
func (c *RedisCache) SetIdentityIndex(ctx context.Context, sport string, date time.Time, entries map[string]string) {
	if c == nil || c.client == nil {
		return
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		log.Warn().Err(err).Str("sport", sport).Msg("Failed to marshal identity index")
		return
	}

	if err := c.client.Set(ctx, identityIndexKey(sport, date), payload, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("sport", sport).Msg("Identity index cache write failed")
	}
}

// InvalidateIdentityIndex drops a cached index, used after forecast rebuilds
func (c *RedisCache) InvalidateIdentityIndex(ctx context.Context, sport string, date time.Time) {
	if c == nil || c.client == nil {
		return
	}

	if err := c.client.Del(ctx, identityIndexKey(sport, date)).Err(); err != nil {
		log.Warn().Err(err).Str("sport", sport).Msg("Identity index cache invalidation failed")
	}
}
