package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"content-analyzer/internal/catalog"
	"content-analyzer/internal/results"
	"content-analyzer/internal/runs"
	"content-analyzer/internal/services/health"
	"content-analyzer/internal/shared/auth"
	"content-analyzer/internal/shared/config"
	"content-analyzer/internal/shared/metrics"
	"content-analyzer/internal/shared/server/middleware"
	"content-analyzer/internal/shared/server/respond"
)

const (
	healthPath  = "/api/v1/health"
	metricsPath = "/api/v1/metrics"
)

// RouterDeps are the handlers mounted under /api/v1. Nil handlers are skipped.
type RouterDeps struct {
	Config         config.Config
	Verifier       *auth.Verifier
	Health         *health.Service
	CatalogHandler *catalog.Handler
	ResultsHandler *results.Handler
	RunsHandler    *runs.Handler
	Limiter        *middleware.RateLimiter
}

// DefaultRateLimits keeps status polling well above run submission.
var DefaultRateLimits = map[string]middleware.RateLimitRule{
	middleware.GroupRuns:    {Rate: 0.2, Burst: 3},
	middleware.GroupPolling: {Rate: 5, Burst: 20},
	middleware.GroupDefault: {Rate: 2, Burst: 30},
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Verifier, healthPath, metricsPath),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    DefaultRateLimits,
			GroupFor: middleware.RunGroups,
			Limiter:  deps.Limiter,
		}),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		status := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if ok, _ := status["ok"].(bool); !ok {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})
	api.GET("/metrics", metrics.Handler())
	registerMeRoutes(api)

	if deps.CatalogHandler != nil {
		deps.CatalogHandler.RegisterRoutes(api)
	}
	if deps.ResultsHandler != nil {
		deps.ResultsHandler.RegisterRoutes(api)
	}
	if deps.RunsHandler != nil {
		deps.RunsHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
