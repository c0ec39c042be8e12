package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mediate-project/mediate/internal/models"
)

const (
	userCacheTTL       = 5 * time.Minute
	negativeCacheTTL   = 30 * time.Second
	maxCacheEntries    = 10000
	cacheCleanupPeriod = 60 * time.Second
)

type cachedUser struct {
	user      *models.User // nil for a cached miss
	fetchedAt time.Time
}

func (cu cachedUser) ttl() time.Duration {
	if cu.user == nil {
		return negativeCacheTTL
	}

	return userCacheTTL
}

// hashKey returns a hex-encoded SHA-256 hash of the API key so raw keys
// are never stored in memory.
func hashKey(apiKey string) string {
	h := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(h[:])
}

// CachedUserLookup wraps a UserLookup with a bounded in-memory cache.
// Concurrent misses for the same key share one lookup.
type CachedUserLookup struct {
	inner  UserLookup
	mu     sync.RWMutex
	cache  map[string]cachedUser
	flight singleflight.Group
	now    func() time.Time
}

// NewCachedUserLookup creates a caching wrapper around inner. ctx bounds the
// background eviction goroutine.
func NewCachedUserLookup(ctx context.Context, inner UserLookup) *CachedUserLookup {
	c := &CachedUserLookup{
		inner: inner,
		cache: make(map[string]cachedUser),
		now:   time.Now,
	}
	go c.evictLoop(ctx)

	return c
}

func (c *CachedUserLookup) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(cacheCleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			c.evictExpired()
			c.mu.Unlock()
		}
	}
}

// evictExpired drops stale entries. Caller holds c.mu.
func (c *CachedUserLookup) evictExpired() {
	now := c.now()
	for k, v := range c.cache {
		if now.Sub(v.fetchedAt) >= v.ttl() {
			delete(c.cache, k)
		}
	}
}

// GetUserByAPIKey returns a cached user or delegates to the inner lookup.
// Unknown keys are cached for a short time; other errors are not cached.
func (c *CachedUserLookup) GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	hk := hashKey(apiKey)

	c.mu.RLock()
	entry, ok := c.cache[hk]
	c.mu.RUnlock()

	if ok && c.now().Sub(entry.fetchedAt) < entry.ttl() {
		if entry.user == nil {
			return nil, models.ErrUserNotFound
		}

		u := *entry.user

		return &u, nil
	}

	v, err, _ := c.flight.Do(hk, func() (any, error) {
		u, err := c.inner.GetUserByAPIKey(ctx, apiKey)
		switch {
		case err == nil:
			c.store(hk, u)
		case errors.Is(err, models.ErrUserNotFound):
			c.store(hk, nil)
		}

		return u, err
	})
	if err != nil {
		return nil, err
	}

	u := *v.(*models.User)

	return &u, nil
}

// Invalidate drops any cached entry for apiKey.
func (c *CachedUserLookup) Invalidate(apiKey string) {
	c.mu.Lock()
	delete(c.cache, hashKey(apiKey))
	c.mu.Unlock()
}

func (c *CachedUserLookup) store(hk string, u *models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cache) >= maxCacheEntries {
		c.evictExpired()

		for k := range c.cache {
			if len(c.cache) < maxCacheEntries {
				break
			}
			delete(c.cache, k)
		}
	}

	c.cache[hk] = cachedUser{user: u, fetchedAt: c.now()}
}
