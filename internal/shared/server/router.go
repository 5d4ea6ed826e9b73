package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docvault-backend/internal/extractions"
	"docvault-backend/internal/sessions"
	"docvault-backend/internal/shared/config"
	"docvault-backend/internal/shared/metrics"
	"docvault-backend/internal/shared/server/middleware"
	"docvault-backend/internal/shared/server/respond"
)

// RouterDeps bundles the handlers and shared infrastructure the router
// needs. All fields are required except Metrics.
type RouterDeps struct {
	Config            config.Config
	Sessions          *sessions.Manager
	SessionHandler    *sessions.Handler
	ExtractionHandler *extractions.Handler
	Metrics           *metrics.Metrics
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
	if deps.Metrics != nil {
		r.Use(deps.Metrics.HTTPMiddleware())
		r.GET("/metrics", deps.Metrics.Handler())
	}

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	deps.SessionHandler.RegisterPublicRoutes(api)

	authed := api.Group("")
	authed.Use(middleware.Auth(deps.Sessions))
	deps.SessionHandler.RegisterRoutes(authed)
	deps.ExtractionHandler.RegisterRoutes(authed)

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
