package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ViewCache keeps per-event view counts in redis for a short TTL so hot
// public pages do not hammer the stats service.
type ViewCache struct {
	redisdb *redis.Client
	ttl     time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewViewCache(cfg RedisConfig, ttl time.Duration) *ViewCache {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &ViewCache{redisdb: redisdb, ttl: ttl}
}

func (c *ViewCache) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *ViewCache) Close() error {
	return c.redisdb.Close()
}

func viewKey(eventID string) string {
	return "views:" + eventID
}

// Get returns the cached count; a miss or a redis error both read as absent.
func (c *ViewCache) Get(ctx context.Context, eventID string) (int64, bool) {
	raw, err := c.redisdb.Get(ctx, viewKey(eventID)).Result()
	if err != nil {
		return 0, false
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}

	return n, true
}

func (c *ViewCache) Set(ctx context.Context, eventID string, views int64) {
	_ = c.redisdb.Set(ctx, viewKey(eventID), strconv.FormatInt(views, 10), c.ttl).Err()
}
