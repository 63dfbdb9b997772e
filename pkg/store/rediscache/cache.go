// Package rediscache puts a redis read-through cache in front of a policy
// store. Policies change rarely and are read on every uncached decision, so a
// short redis TTL takes most of that load off postgres in multi-replica
// deployments. Redis being unavailable degrades reads to the inner store; it
// never fails a decision on its own.
package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/gatehouse/pkg/authz"
	"github.com/platinummonkey/gatehouse/pkg/config"
	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/policy"
)

const keyPrefix = "gatehouse:policy:"

// PolicyCache is a read-through policy cache. It implements
// authz.PolicyStore.
type PolicyCache struct {
	client  *redis.Client
	inner   authz.PolicyStore
	ttl     time.Duration
	metrics *observability.Metrics
}

// Option configures a PolicyCache.
type Option func(*PolicyCache)

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *PolicyCache) { c.metrics = m }
}

// New connects to redis and wraps the inner store. The connection is verified
// with a ping before the cache is returned.
func New(cfg config.RedisConfig, inner authz.PolicyStore, opts ...Option) (*PolicyCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.URL,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	c := &PolicyCache{
		client: client,
		inner:  inner,
		ttl:    cfg.TTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetPolicy serves the policy from redis when possible and falls back to the
// inner store, repopulating the cache on the way out.
func (c *PolicyCache) GetPolicy(ctx context.Context, roleName string) (*policy.Policy, error) {
	key := keyPrefix + roleName

	data, err := c.client.Get(ctx, key).Result()
	if err == nil {
		p, perr := policy.Parse([]byte(data))
		if perr == nil {
			if c.metrics != nil {
				c.metrics.PolicyCacheHitsTotal.Inc()
			}
			return p, nil
		}
		// Corrupt entry: drop it and fall through to the inner store.
		c.client.Del(ctx, key)
	}
	if c.metrics != nil {
		c.metrics.PolicyCacheMissesTotal.Inc()
	}

	p, err := c.inner.GetPolicy(ctx, roleName)
	if err != nil {
		return nil, err
	}

	if data, merr := p.Marshal(); merr == nil {
		// Best effort; a failed SET only costs the next read.
		c.client.Set(ctx, key, data, c.ttl)
	}
	return p, nil
}

// PutPolicy writes through to the inner store and invalidates the cached
// entry.
func (c *PolicyCache) PutPolicy(ctx context.Context, roleName string, p policy.Policy) error {
	if err := c.inner.PutPolicy(ctx, roleName, p); err != nil {
		return err
	}
	if err := c.client.Del(ctx, keyPrefix+roleName).Err(); err != nil {
		return fmt.Errorf("policy stored but cache invalidation failed: %w", err)
	}
	return nil
}

// Invalidate drops one role's cached policy.
func (c *PolicyCache) Invalidate(ctx context.Context, roleName string) error {
	return c.client.Del(ctx, keyPrefix+roleName).Err()
}

// Client exposes the underlying redis client for health checks.
func (c *PolicyCache) Client() *redis.Client {
	return c.client
}

// Close releases the redis connection.
func (c *PolicyCache) Close() error {
	return c.client.Close()
}
