// Package treecache keeps built section forests in Redis between writes.
package treecache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dalemusser/stratastore/internal/app/system/sectiontree"
	"github.com/dalemusser/stratastore/internal/domain/models"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Defaults for New.
const (
	DefaultTTL    = 10 * time.Minute
	DefaultPrefix = "stratastore:sections:"
)

// keys lists every forest the section manager caches.
var keys = []string{
	sectiontree.KeyHierarchyAll,
	sectiontree.KeyHierarchyActive,
	sectiontree.KeyNavigation,
	sectiontree.KeyHomepage,
}

// Cache is a Redis-backed sectiontree.Cache. Redis errors degrade to
// cache misses on reads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	log    *zap.Logger

	hits   int64
	misses int64
}

// Option customizes a Cache.
type Option func(*Cache)

// WithTTL sets how long a forest stays cached.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPrefix sets the Redis key prefix.
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// WithLogger sets the logger used for Redis failures.
func WithLogger(log *zap.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// New creates a Cache over client.
func New(client *redis.Client, opts ...Option) *Cache {
	c := &Cache{
		client: client,
		ttl:    DefaultTTL,
		prefix: DefaultPrefix,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ sectiontree.Cache = (*Cache)(nil)

// Get returns the forest stored under key.
func (c *Cache) Get(ctx context.Context, key string) ([]*models.SectionNode, bool) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	if err != nil {
		c.log.Warn("section cache read failed", zap.String("key", key), zap.Error(err))
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	var forest []*models.SectionNode
	if err := json.Unmarshal(val, &forest); err != nil {
		// Corrupt entry; treat as a miss.
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	return forest, true
}

// Set stores forest under key.
func (c *Cache) Set(ctx context.Context, key string, forest []*models.SectionNode) error {
	data, err := json.Marshal(forest)
	if err != nil {
		return fmt.Errorf("marshal forest: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Invalidate drops every cached forest.
func (c *Cache) Invalidate(ctx context.Context) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("invalidate section cache: %w", err)
	}
	return nil
}

// Stats returns hit and miss counters for the health endpoint.
func (c *Cache) Stats() map[string]int64 {
	return map[string]int64{
		"hits":   atomic.LoadInt64(&c.hits),
		"misses": atomic.LoadInt64(&c.misses),
	}
}
