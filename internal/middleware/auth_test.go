package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mediate-project/mediate/internal/middleware"
	"github.com/mediate-project/mediate/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

type mockUserLookup struct {
	users map[string]*models.User
	err   error
	calls atomic.Int32
	delay time.Duration
}

func (m *mockUserLookup) GetUserByAPIKey(_ context.Context, apiKey string) (*models.User, error) {
	m.calls.Add(1)
	time.Sleep(m.delay)

	if m.err != nil {
		return nil, m.err
	}

	if u, ok := m.users[apiKey]; ok {
		return u, nil
	}

	return nil, models.ErrUserNotFound
}

func newLookup() *mockUserLookup {
	return &mockUserLookup{users: map[string]*models.User{
		"good-key": {ID: "u1", Name: "Ada", Privilege: models.PrivilegeModerator},
	}}
}

func TestAuthMiddleware(t *testing.T) {
	lookup := newLookup()

	tests := []struct {
		name       string
		authHeader string
		wantCode   int
	}{
		{"valid token", "Bearer good-key", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"invalid token", "Bearer bad-key", http.StatusUnauthorized},
		{"no bearer prefix", "good-key", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.AuthMiddleware(lookup, quietLogger(), nil))
			r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("got %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func TestAuthMiddleware_SetsActor(t *testing.T) {
	var got models.Actor
	r := gin.New()
	r.Use(middleware.AuthMiddleware(newLookup(), quietLogger(), nil))
	r.GET("/test", func(c *gin.Context) {
		got = middleware.ActorFromContext(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("Authorization", "Bearer good-key")
	r.ServeHTTP(w, req)

	if got.UserID != "u1" || got.Privilege != models.PrivilegeModerator {
		t.Fatalf("unexpected actor %+v", got)
	}
	if !got.CanModerate() {
		t.Error("moderator actor should be able to moderate")
	}
}

func TestAuthMiddleware_RecordsFailures(t *testing.T) {
	guard, cancel := newTestGuard()
	defer cancel()

	r := gin.New()
	r.Use(middleware.AuthMiddleware(newLookup(), quietLogger(), guard))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	for range 5 {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
		req.Header.Set("Authorization", "Bearer wrong")
		r.ServeHTTP(w, req)
	}

	if !guard.IsBlocked("wrong") {
		t.Fatal("expected key to be locked out after repeated failures")
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc123", "abc123"},
		{"abc123", ""},
		{"", ""},
		{"Bearer ", ""},
		{"bearer abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}
			if got := middleware.ExtractBearerToken(c); got != tt.want {
				t.Errorf("ExtractBearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestCachedUserLookup_CachesHitsAndMisses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := newLookup()
	cached := middleware.NewCachedUserLookup(ctx, inner)

	for range 3 {
		u, err := cached.GetUserByAPIKey(ctx, "good-key")
		if err != nil || u.ID != "u1" {
			t.Fatalf("unexpected result %+v, %v", u, err)
		}
	}

	for range 3 {
		if _, err := cached.GetUserByAPIKey(ctx, "nope"); !errors.Is(err, models.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	}

	if n := inner.calls.Load(); n != 2 {
		t.Errorf("inner lookups = %d, want 2", n)
	}

	cached.Invalidate("good-key")
	if _, err := cached.GetUserByAPIKey(ctx, "good-key"); err != nil {
		t.Fatal(err)
	}
	if n := inner.calls.Load(); n != 3 {
		t.Errorf("inner lookups after invalidate = %d, want 3", n)
	}
}

func TestCachedUserLookup_DoesNotCacheErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := newLookup()
	inner.err = errors.New("connection refused")
	cached := middleware.NewCachedUserLookup(ctx, inner)

	for range 2 {
		if _, err := cached.GetUserByAPIKey(ctx, "good-key"); err == nil {
			t.Fatal("expected error")
		}
	}

	if n := inner.calls.Load(); n != 2 {
		t.Errorf("inner lookups = %d, want 2", n)
	}
}

func TestCachedUserLookup_CollapsesConcurrentMisses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := newLookup()
	inner.delay = 50 * time.Millisecond
	cached := middleware.NewCachedUserLookup(ctx, inner)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cached.GetUserByAPIKey(ctx, "good-key"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if n := inner.calls.Load(); n >= 10 {
		t.Errorf("expected concurrent misses to share lookups, got %d calls", n)
	}
}
