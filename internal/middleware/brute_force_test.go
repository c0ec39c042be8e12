package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mediate-project/mediate/internal/middleware"
)

func newTestGuard() (*middleware.BruteForceGuard, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	return middleware.NewBruteForceGuard(ctx, quietLogger()), cancel
}

func TestBruteForce_SuccessfulAuthResetsCount(t *testing.T) {
	guard, cancel := newTestGuard()
	defer cancel()

	guard.RecordFailure("key1")
	guard.RecordFailure("key1")
	guard.ResetKey("key1")

	if guard.IsBlocked("key1") {
		t.Fatal("key should not be blocked after reset")
	}
}

func TestBruteForce_BlocksAtMaxAttempts(t *testing.T) {
	guard, cancel := newTestGuard()
	defer cancel()

	for range 4 {
		guard.RecordFailure("badkey")
	}
	if guard.IsBlocked("badkey") {
		t.Fatal("key should not be blocked before max failures")
	}

	guard.RecordFailure("badkey")
	if !guard.IsBlocked("badkey") {
		t.Fatal("key should be blocked after max failures")
	}
	if guard.IsBlocked("otherkey") {
		t.Fatal("unrelated key should not be blocked")
	}
}

func serveWithGuard(guard *middleware.BruteForceGuard, token string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(middleware.BruteForceMiddleware(guard))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)

	return w
}

func TestBruteForce_Middleware(t *testing.T) {
	guard, cancel := newTestGuard()
	defer cancel()

	for range 5 {
		guard.RecordFailure("blockedtoken")
	}

	w := serveWithGuard(guard, "blockedtoken")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	if w := serveWithGuard(guard, ""); w.Code != http.StatusOK {
		t.Errorf("no token should pass through, got %d", w.Code)
	}
	if w := serveWithGuard(guard, "goodtoken"); w.Code != http.StatusOK {
		t.Errorf("unblocked token should pass, got %d", w.Code)
	}
}
