// Package cache keeps the read-mostly routing table in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"issue-service/internal/model"
	"issue-service/internal/routing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	graphKey        = "routing:categories"
	DefaultGraphTTL = 10 * time.Minute
)

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// GraphCache is a read-through cache in front of a routing.GraphSource.
// Redis trouble degrades to reading the source directly.
type GraphCache struct {
	client *redis.Client
	source routing.GraphSource
	lister routing.CategoryLister
	ttl    time.Duration
	log    zerolog.Logger
}

// NewGraphCache caches the categories the lister returns.
func NewGraphCache(log zerolog.Logger, client *redis.Client, lister routing.CategoryLister, ttl time.Duration) *GraphCache {
	if ttl <= 0 {
		ttl = DefaultGraphTTL
	}
	return &GraphCache{
		client: client,
		source: routing.NewStoreSource(lister),
		lister: lister,
		ttl:    ttl,
		log:    log.With().Str("component", "graph_cache").Logger(),
	}
}

func (c *GraphCache) LoadGraph(ctx context.Context) (*routing.Graph, error) {
	raw, err := c.client.Get(ctx, graphKey).Bytes()
	switch {
	case err == nil:
		var categories []model.Category
		if err := json.Unmarshal(raw, &categories); err == nil {
			return routing.NewGraph(categories), nil
		}
		c.log.Warn().Msg("discarding undecodable routing table cache entry")
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn().Err(err).Msg("routing table cache read failed")
		return c.source.LoadGraph(ctx)
	}

	categories, err := c.lister.ListCategories(ctx, false)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(categories); err == nil {
		if err := c.client.Set(ctx, graphKey, payload, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Msg("routing table cache write failed")
		}
	}
	return routing.NewGraph(categories), nil
}

// Invalidate drops the cached table so the next load rereads storage.
func (c *GraphCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, graphKey).Err()
}
