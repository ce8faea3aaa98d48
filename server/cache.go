/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package server

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	playersCacheKeyPrefix = "clubratings:players:"
	playersCacheTTL       = 5 * time.Minute
)

// PlayerCache holds rendered player list responses keyed by rating type.
type PlayerCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte)
	Invalidate(ctx context.Context)
}

// RedisCache stores player lists in redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to url. When redis is unreachable the error is
// logged and an in-process cache is returned instead.
func NewRedisCache(ctx context.Context, url string) PlayerCache {
	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("server.cache: bad REDIS_URL: %v; using memory cache", err)
		return NewMemoryCache()
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("server.cache: could not connect to redis: %v; using memory cache",
			err)
		client.Close()
		return NewMemoryCache()
	}

	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, playersCacheKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("server.cache: get %v: %v", key, err)
		}
		return nil, false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key string, val []byte) {
	err := c.client.Set(ctx, playersCacheKeyPrefix+key, val,
		playersCacheTTL).Err()
	if err != nil {
		log.Printf("server.cache: set %v: %v", key, err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, playersCacheKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("server.cache: scan: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("server.cache: invalidate: %v", err)
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

type memoryEntry struct {
	val     []byte
	expires time.Time
}

// MemoryCache is the in-process PlayerCache used when redis is not
// configured.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expires) {
		return nil, false
	}
	return e.val, true
}

func (c *MemoryCache) Set(_ context.Context, key string, val []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{val: val, expires: c.now().Add(playersCacheTTL)}
}

func (c *MemoryCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]memoryEntry)
}
