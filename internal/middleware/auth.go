package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mediate-project/mediate/internal/models"
)

// Gin context keys set by AuthMiddleware.
const (
	UserIDKey    = "user_id"
	PrivilegeKey = "privilege"
	apiKeyKey    = "api_key"
)

// authTimingFloor is the minimum response time for rejected requests so
// valid and invalid API keys take the same time to fail.
const authTimingFloor = 50 * time.Millisecond

// UserLookup resolves an API key to its user.
type UserLookup interface {
	GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error)
}

// truncateKey returns at most the first 4 characters of key followed by "...".
func truncateKey(key string) string {
	if len(key) > 4 {
		return key[:4] + "..."
	}

	return key
}

func enforceTimingFloor(start time.Time) {
	if elapsed := time.Since(start); elapsed < authTimingFloor {
		time.Sleep(authTimingFloor - elapsed)
	}
}

// AuthMiddleware authenticates requests via Bearer token and stores the
// caller's user ID and privilege on the context. Failed attempts are
// counted by guard when it is non-nil.
func AuthMiddleware(lookup UserLookup, log *logrus.Logger, guard *BruteForceGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if c.Writer.Status() == http.StatusUnauthorized {
				enforceTimingFloor(start)
			}
		}()

		apiKey := ExtractBearerToken(c)
		if apiKey == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized", "missing or invalid authorization header")
			return
		}

		user, err := lookup.GetUserByAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			logAuthFailure(log, c, apiKey, err)

			if guard != nil {
				guard.RecordFailure(apiKey)
			}

			respondError(c, http.StatusUnauthorized, "unauthorized", "invalid api key")
			return
		}

		if guard != nil {
			guard.ResetKey(apiKey)
		}

		c.Set(UserIDKey, user.ID)
		c.Set(PrivilegeKey, string(user.Privilege))
		c.Set(apiKeyKey, apiKey)
		c.Next()
	}
}

// ActorFromContext returns the authenticated actor for the request.
func ActorFromContext(c *gin.Context) models.Actor {
	return models.Actor{
		UserID:    c.GetString(UserIDKey),
		Privilege: models.Privilege(c.GetString(PrivilegeKey)),
	}
}

// APIKeyFromContext returns the key the request authenticated with.
func APIKeyFromContext(c *gin.Context) string {
	return c.GetString(apiKeyKey)
}

// ExtractBearerToken extracts the API key from the Authorization header.
func ExtractBearerToken(c *gin.Context) string {
	key, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok {
		return ""
	}

	return strings.TrimSpace(key)
}

func logAuthFailure(log *logrus.Logger, c *gin.Context, apiKey string, err error) {
	log.WithFields(logrus.Fields{
		"client_ip":  c.ClientIP(),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"request_id": c.GetString(RequestIDKey),
		"key_prefix": truncateKey(apiKey),
	}).WithError(err).Warn("authentication failed")
}
