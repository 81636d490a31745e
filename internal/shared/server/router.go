package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"summarize-backend/internal/analyses"
	"summarize-backend/internal/services/health"
	"summarize-backend/internal/shared/config"
	"summarize-backend/internal/shared/metrics"
	"summarize-backend/internal/shared/server/middleware"
	"summarize-backend/internal/shared/server/respond"
)

// RouterDeps holds dependencies for router construction.
type RouterDeps struct {
	Config          config.Config
	Tokens          middleware.TokenVerifier
	AnalysisHandler *analyses.Handler
	Health          *health.Service
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
	)

	r.GET("/health", func(c *gin.Context) {
		payload, ready := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, payload)
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("",
		middleware.Auth(deps.Tokens),
		middleware.RateLimit(rateLimitConfig(deps.Config)),
	)
	api.GET("/me", meHandler)
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
		deps.AnalysisHandler.RegisterHistoryRoutes(api.Group("", middleware.RequireIdentity()))
	}

	return r
}

func rateLimitConfig(cfg config.Config) middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			middleware.RateGroupUpload: middleware.PerMinute(cfg.RateLimitUploadsPerMin),
		},
		Classify: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost && c.FullPath() == "/analysis/upload" {
				return middleware.RateGroupUpload
			}
			return middleware.RateGroupRead
		},
	}
}

// meHandler reports the caller's identity.
func meHandler(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}
	response := gin.H{"userId": userID}
	if email := middleware.UserEmailFromContext(c); email != "" {
		response["email"] = email
	}
	respond.JSON(c, http.StatusOK, response)
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
