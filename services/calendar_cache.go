package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// CalendarCache stores aggregated calendar responses. Implementations must
// treat every failure as a miss.
//
// Get returns a slot naming the entry as of the read. Callers pass that slot
// to Set, so a result computed before an Invalidate lands in the old
// generation and is never served afterwards. An empty slot disables Set.
type CalendarCache interface {
	Get(ctx context.Context, key string, dst interface{}) (slot string, hit bool)
	Set(ctx context.Context, slot string, value interface{})
	Invalidate(ctx context.Context)
}

const calendarGenerationKey = "calendar:gen"

// RedisCalendarCache namespaces entries by a generation counter; bumping the
// counter drops every cached range at once without scanning keys.
type RedisCalendarCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(addr, password string, db, poolSize int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})
}

func NewRedisCalendarCache(client *redis.Client, ttl time.Duration) *RedisCalendarCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCalendarCache{client: client, ttl: ttl}
}

func (c *RedisCalendarCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, calendarGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCalendarCache) key(ctx context.Context, key string) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("calendar:%d:%s", gen, key), nil
}

func (c *RedisCalendarCache) Get(ctx context.Context, key string, dst interface{}) (string, bool) {
	full, err := c.key(ctx, key)
	if err != nil {
		log.Printf("warning: calendar cache unavailable: %v", err)
		return "", false
	}
	raw, err := c.client.Get(ctx, full).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("warning: calendar cache read failed: %v", err)
		}
		return full, false
	}
	return full, json.Unmarshal(raw, dst) == nil
}

func (c *RedisCalendarCache) Set(ctx context.Context, slot string, value interface{}) {
	if slot == "" {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, slot, data, c.ttl).Err(); err != nil {
		log.Printf("warning: calendar cache write failed: %v", err)
	}
}

func (c *RedisCalendarCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, calendarGenerationKey).Err(); err != nil {
		log.Printf("warning: calendar cache invalidation failed: %v", err)
	}
}

type NoopCalendarCache struct{}

func (NoopCalendarCache) Get(context.Context, string, interface{}) (string, bool) { return "", false }

func (NoopCalendarCache) Set(context.Context, string, interface{}) {}

func (NoopCalendarCache) Invalidate(context.Context) {}
