package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mediate-project/mediate/internal/middleware"
)

func limitedRouter(t *testing.T, ratePerSec, burst int) *gin.Engine {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := gin.New()
	r.Use(middleware.NewRateLimiter(ctx, ratePerSec, burst).Handler())
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	return r
}

func hit(r *gin.Engine, ip string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.RemoteAddr = ip + ":1000"
	r.ServeHTTP(w, req)

	return w.Code
}

func TestRateLimiter_BurstThenBlock(t *testing.T) {
	r := limitedRouter(t, 1, 2)

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i, code := range want {
		if got := hit(r, "1.2.3.4"); got != code {
			t.Fatalf("request %d: got %d, want %d", i, got, code)
		}
	}
}

func TestRateLimiter_IndependentPerIP(t *testing.T) {
	r := limitedRouter(t, 1, 1)

	hit(r, "1.1.1.1")
	if got := hit(r, "2.2.2.2"); got != http.StatusOK {
		t.Fatalf("different IP should not be rate limited, got %d", got)
	}
}

func TestRateLimiter_Refills(t *testing.T) {
	r := limitedRouter(t, 1_000_000, 2)

	for range 3 {
		if got := hit(r, "5.5.5.5"); got != http.StatusOK {
			t.Fatalf("expected tokens to refill, got %d", got)
		}
	}
}
