package middleware

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	bruteForceMaxAttempts = 5
	bruteForceWindow      = 15 * time.Minute
	bruteForceLockout     = 5 * time.Minute
	bruteForceCleanup     = 60 * time.Second
	bruteForceMaxRecords  = 10000
)

type failureRecord struct {
	attempts  int
	firstFail time.Time
	lockedAt  time.Time
}

func (r *failureRecord) expired(now time.Time) bool {
	if !r.lockedAt.IsZero() {
		return now.Sub(r.lockedAt) >= bruteForceLockout
	}

	return now.Sub(r.firstFail) >= bruteForceWindow
}

// BruteForceGuard tracks authentication failures per key hash and locks out
// keys that fail too often within the tracking window.
type BruteForceGuard struct {
	mu      sync.Mutex
	records map[string]*failureRecord
	log     *logrus.Logger
	now     func() time.Time
}

// NewBruteForceGuard creates a guard whose cleanup goroutine stops with ctx.
func NewBruteForceGuard(ctx context.Context, log *logrus.Logger) *BruteForceGuard {
	g := &BruteForceGuard{
		records: make(map[string]*failureRecord),
		log:     log,
		now:     time.Now,
	}
	go g.cleanupLoop(ctx)

	return g
}

// LockedFor returns how much longer apiKey stays locked out, or 0.
func (g *BruteForceGuard) LockedFor(apiKey string) time.Duration {
	kh := hashKey(apiKey)

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[kh]
	if !ok || rec.lockedAt.IsZero() {
		return 0
	}

	if left := bruteForceLockout - g.now().Sub(rec.lockedAt); left > 0 {
		return left
	}

	return 0
}

// IsBlocked reports whether apiKey is currently locked out.
func (g *BruteForceGuard) IsBlocked(apiKey string) bool {
	return g.LockedFor(apiKey) > 0
}

// RecordFailure counts a failed authentication attempt for apiKey.
func (g *BruteForceGuard) RecordFailure(apiKey string) {
	kh := hashKey(apiKey)
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[kh]
	if !ok || rec.expired(now) {
		g.records[kh] = &failureRecord{attempts: 1, firstFail: now}
		return
	}

	rec.attempts++
	if rec.attempts >= bruteForceMaxAttempts && rec.lockedAt.IsZero() {
		rec.lockedAt = now
		g.log.WithField("key_hash", kh[:16]+"...").Warn("api key locked out after repeated auth failures")
	}
}

// ResetKey clears failure tracking for apiKey after a successful login.
func (g *BruteForceGuard) ResetKey(apiKey string) {
	kh := hashKey(apiKey)

	g.mu.Lock()
	delete(g.records, kh)
	g.mu.Unlock()
}

func (g *BruteForceGuard) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(bruteForceCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweep()
		}
	}
}

func (g *BruteForceGuard) sweep() {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	for k, rec := range g.records {
		if rec.expired(now) {
			delete(g.records, k)
		}
	}

	if excess := len(g.records) - bruteForceMaxRecords; excess > 0 {
		keys := make([]string, 0, len(g.records))
		for k := range g.records {
			keys = append(keys, k)
		}

		slices.SortFunc(keys, func(a, b string) int {
			return g.records[a].firstFail.Compare(g.records[b].firstFail)
		})

		for _, k := range keys[:excess] {
			delete(g.records, k)
		}
	}
}

// BruteForceMiddleware rejects requests carrying a locked-out API key.
func BruteForceMiddleware(guard *BruteForceGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := ExtractBearerToken(c)
		if apiKey == "" {
			c.Next()
			return
		}

		if left := guard.LockedFor(apiKey); left > 0 {
			c.Header("Retry-After", strconv.Itoa(int(left.Seconds())+1))
			respondError(c, http.StatusTooManyRequests, "rate_limited", "too many failed authentication attempts")

			return
		}

		c.Next()
	}
}
