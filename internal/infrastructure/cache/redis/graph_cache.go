// Package redis caches entity graph reads in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/core/ports"
)

const defaultPrefix = "graphrag:"

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// GraphCache is a read-through cache for per-chunk entity bags in front of
// an EntityGraph. Redis failures fall back to the graph.
type GraphCache struct {
	next   ports.EntityGraph
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func NewGraphCache(next ports.EntityGraph, client *redis.Client, cfg Config, logger *slog.Logger) *GraphCache {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphCache{next: next, client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (c *GraphCache) EntitiesFor(ctx context.Context, chunkID string) (domain.EntityBag, error) {
	key := c.chunkKey(chunkID)
	var bag domain.EntityBag
	if c.get(ctx, key, &bag) {
		return bag, nil
	}

	bag, err := c.next.EntitiesFor(ctx, chunkID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, bag)
	return bag, nil
}

// AggregateCounts is not cached; count answers read the graph every time so
// writes from other processes are visible immediately.
func (c *GraphCache) AggregateCounts(ctx context.Context) (domain.CategoryCounts, error) {
	return c.next.AggregateCounts(ctx)
}

// MergeChunkEntities writes through and invalidates the chunk entry.
func (c *GraphCache) MergeChunkEntities(ctx context.Context, chunkID string, entities domain.ExtractedEntities) error {
	if err := c.next.MergeChunkEntities(ctx, chunkID, entities); err != nil {
		return err
	}
	if err := c.client.Del(ctx, c.chunkKey(chunkID)).Err(); err != nil {
		c.logger.Warn("graph_cache_invalidate_failed", "chunk_id", chunkID, "error", err)
	}
	return nil
}

func (c *GraphCache) chunkKey(chunkID string) string {
	return c.prefix + "chunk:" + chunkID
}

func (c *GraphCache) get(ctx context.Context, key string, target any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.logger.Warn("graph_cache_get_failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, target); err != nil {
		c.logger.Warn("graph_cache_decode_failed", "key", key, "error", err)
		return false
	}
	return true
}

func (c *GraphCache) set(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("graph_cache_set_failed", "key", key, "error", err)
	}
}
