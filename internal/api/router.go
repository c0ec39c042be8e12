package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mediate-project/mediate/internal/dbpool"
	"github.com/mediate-project/mediate/internal/middleware"
	"github.com/mediate-project/mediate/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log            *logrus.Logger
	Pool           *dbpool.Pool // nil on the memory backend
	Hub            *ws.Hub
	Moderation     ModerationService
	Catalogue      CatalogueService
	Entities       EntityFactory
	Users          middleware.UserLookup
	CORSOrigins    []string
	Version        string
	Backend        string
	RateLimitRPS   int
	RateLimitBurst int
}

// maxBodySize bounds request bodies; entity snapshots are small.
const maxBodySize = 1 << 20

func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins: deps.CORSOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:       1 * time.Hour,
	}))
	r.Use(middleware.NewRateLimiter(ctx, deps.RateLimitRPS, deps.RateLimitBurst).Handler())
	r.Use(middleware.PrometheusMiddleware())
}

func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.Pool, deps.Hub, log, deps.Version, deps.Backend)
	entities := NewEntityHandler(deps.Moderation, deps.Catalogue, deps.Entities, log)
	moderation := NewModerationHandler(deps.Moderation, log)

	// Health and readiness are unauthenticated.
	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	users := middleware.NewCachedUserLookup(ctx, deps.Users)
	guard := middleware.NewBruteForceGuard(ctx, log)
	api.Use(middleware.BruteForceMiddleware(guard))
	api.Use(middleware.AuthMiddleware(users, log, guard))

	api.GET("/entities/:type", entities.List)
	api.POST("/entities/:type", entities.Create)
	api.GET("/entities/:type/:id", entities.Get)
	api.PUT("/entities/:type/:id", entities.Update)
	api.DELETE("/entities/:type/:id", entities.Delete)

	api.GET("/moderation", moderation.List)
	api.GET("/moderation/stats", moderation.Stats)
	api.GET("/moderation/:id", moderation.Get)
	api.GET("/moderation/:id/diff", moderation.Diff)
	api.POST("/moderation/:id/resolve", moderation.Resolve)

	if deps.Hub != nil {
		api.GET("/ws", wsHandler(ctx, log, deps.Hub, deps.CORSOrigins, users))
	}
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}
