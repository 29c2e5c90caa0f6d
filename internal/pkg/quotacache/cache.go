// Package quotacache wraps calls to rate-limited external services with TTL
// caching, daily quota accounting, and at-most-one-in-flight deduplication
// per cache key.
package quotacache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	redisc "github.com/clipdigest/core/internal/pkg/redis"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "cd:api-cache:"

// RequestFunc performs the actual outbound call when the cache cannot serve it.
type RequestFunc func(ctx context.Context) (json.RawMessage, error)

// Options controls one cached request.
type Options struct {
	TTL       time.Duration
	QuotaCost int
	APIType   string
}

// Outcome reports the response and whether it was served from cache.
type Outcome struct {
	Response  json.RawMessage `json:"response"`
	FromCache bool            `json:"from_cache"`
}

// Cache serves metered external requests through Redis-backed TTL storage
// and an injected quota counter.
type Cache struct {
	rc    *redisc.Client
	quota *QuotaCounter
	group singleflight.Group
	log   *zap.Logger
}

// New builds a Cache around an owned quota counter.
func New(rc *redisc.Client, quota *QuotaCounter, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{rc: rc, quota: quota, log: log}
}

// Quota exposes the counter for usage reporting.
func (c *Cache) Quota() *QuotaCounter { return c.quota }

// Request resolves endpointKey+params through the cache. A live entry is
// returned without touching the quota counter or the request function.
// Concurrent misses for the same key share a single outbound call. The
// quota is charged when the call is issued and is not rolled back on
// failure. Quota exhaustion, whether detected locally or reported by the
// provider, is surfaced as ErrQuotaExceeded and never cached.
func (c *Cache) Request(ctx context.Context, fn RequestFunc, endpointKey string, params map[string]string, opts Options) (*Outcome, error) {
	if fn == nil {
		return nil, fmt.Errorf("quotacache: request function is nil")
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.APIType == "" {
		opts.APIType = endpointKey
	}

	key := cacheKey(endpointKey, params)

	if cached, err := c.rc.GetBytes(ctx, key); err == nil && len(cached) > 0 {
		return &Outcome{Response: cached, FromCache: true}, nil
	}

	raw, err, _ := c.group.Do(key, func() (interface{}, error) {
		// a concurrent flight may have populated the entry while this
		// caller waited for the lock
		if cached, err := c.rc.GetBytes(ctx, key); err == nil && len(cached) > 0 {
			return cachedResult{data: cached, fromCache: true}, nil
		}

		if opts.QuotaCost > 0 {
			exceeded, err := c.quota.WouldExceed(ctx, opts.QuotaCost)
			if err == nil && exceeded {
				return nil, fmt.Errorf("%s: %w", endpointKey, ErrQuotaExceeded)
			}
			if _, err := c.quota.Add(ctx, opts.APIType, opts.QuotaCost); err != nil {
				c.log.Warn("quota charge failed", zap.String("endpoint", endpointKey), zap.Error(err))
			}
		}

		started := time.Now()
		data, err := fn(ctx)
		// advisory telemetry only; fast responses sometimes indicate an
		// upstream cache but are never treated as one
		c.log.Debug("upstream call",
			zap.String("endpoint", endpointKey),
			zap.Duration("latency", time.Since(started)),
			zap.Bool("failed", err != nil),
		)
		if err != nil {
			return nil, err
		}

		if err := c.rc.Set(ctx, key, []byte(data), opts.TTL); err != nil {
			c.log.Warn("cache store failed", zap.String("endpoint", endpointKey), zap.Error(err))
		}
		return cachedResult{data: data, fromCache: false}, nil
	})
	if err != nil {
		return nil, err
	}

	result := raw.(cachedResult)
	return &Outcome{
		Response:  result.data,
		FromCache: result.fromCache,
	}, nil
}

// Invalidate drops the entry for endpointKey+params.
func (c *Cache) Invalidate(ctx context.Context, endpointKey string, params map[string]string) error {
	return c.rc.Del(ctx, cacheKey(endpointKey, params))
}

type cachedResult struct {
	data      json.RawMessage
	fromCache bool
}

// cacheKey builds a stable key from the endpoint and a canonical,
// order-independent serialization of params.
func cacheKey(endpointKey string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(endpointKey)
	for _, k := range keys {
		sb.WriteByte('&')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return fmt.Sprintf("%s%s:%x", cacheKeyPrefix, endpointKey, sum)
}
