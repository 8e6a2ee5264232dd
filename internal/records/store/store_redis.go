package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"userdir/internal/records/metrics"
	"userdir/internal/records/models"
	"userdir/pkg/domain"
)

const recordKeyPrefix = "userdir:record:"

// Backend is the full record store a cache sits in front of.
type Backend interface {
	FindByID(ctx context.Context, id domain.RecordID) (*models.Record, error)
	FindAll(ctx context.Context) ([]*models.Record, error)
	FindByBirthDateBetween(ctx context.Context, from, to domain.Date) ([]*models.Record, error)
	FindByBirthDateAfter(ctx context.Context, from domain.Date) ([]*models.Record, error)
	FindByBirthDateBefore(ctx context.Context, to domain.Date) ([]*models.Record, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, record *models.Record) (*models.Record, error)
	Delete(ctx context.Context, id domain.RecordID) error
	Ping(ctx context.Context) error
}

// RedisCache is a read-through cache for single-record lookups. Range
// queries, email checks and writes go to the backend. Writes never populate
// the cache, so an entry only ever holds a value the backend returned to a
// read; the service calls Invalidate once a write commits.
type RedisCache struct {
	Backend
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
	group   singleflight.Group
}

// NewRedisCache wraps backend with a Redis cache holding entries for ttl.
// metrics may be nil.
func NewRedisCache(backend Backend, client *redis.Client, ttl time.Duration, m *metrics.Metrics) *RedisCache {
	return &RedisCache{
		Backend: backend,
		client:  client,
		ttl:     ttl,
		metrics: m,
	}
}

// FindByID serves from Redis when possible. Concurrent misses for the same
// id share one backend lookup. A Redis failure falls through to the backend.
func (c *RedisCache) FindByID(ctx context.Context, id domain.RecordID) (*models.Record, error) {
	key := recordKey(id)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var rec models.Record
		if jsonErr := json.Unmarshal(raw, &rec); jsonErr == nil {
			c.recordHit()
			return &rec, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return c.Backend.FindByID(ctx, id)
	}
	c.recordMiss()

	v, err, _ := c.group.Do(key, func() (any, error) {
		rec, err := c.Backend.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if body, err := json.Marshal(rec); err == nil {
			_ = c.client.Set(ctx, key, body, c.ttl).Err()
		}
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	rec := *v.(*models.Record)
	return &rec, nil
}

// Ping checks both Redis and the backend.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return c.Backend.Ping(ctx)
}

// Invalidate drops the cached copy of id. Writes go straight to the
// backend inside the caller's transaction; the caller invalidates after
// commit so a concurrent reader cannot cache the pre-commit row afterwards.
func (c *RedisCache) Invalidate(ctx context.Context, id domain.RecordID) error {
	if err := c.client.Del(ctx, recordKey(id)).Err(); err != nil {
		return fmt.Errorf("invalidate cached record: %w", err)
	}
	return nil
}

func (c *RedisCache) recordHit() {
	if c.metrics != nil {
		c.metrics.RecordCacheHit()
	}
}

func (c *RedisCache) recordMiss() {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss()
	}
}

func recordKey(id domain.RecordID) string {
	return recordKeyPrefix + id.String()
}
