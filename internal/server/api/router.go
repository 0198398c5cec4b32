package api

import (
	"net/http"

	"sightline/internal/server/api/middleware"
	"sightline/internal/server/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Router wraps the gin engine with the API routes registered
type Router struct {
	engine *gin.Engine
}

// NewRouter creates the HTTP router with all routes and middleware
func NewRouter(api *API, cfg *config.Config, logger *zap.Logger) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	m := middleware.New(cfg, logger)
	engine.Use(m.RequestID())
	engine.Use(m.Logger())
	engine.Use(m.Recovery())
	engine.Use(m.Secure())

	engine.GET("/health", api.healthCheck)

	// Agent-facing ingestion endpoints, authenticated by shared client secret
	ingest := engine.Group("/api", m.ClientAuth())
	{
		ingest.POST("/report_identity", api.reportIdentity)
		ingest.POST("/report", api.reportActivity)
		ingest.POST("/upload_screenshot", api.uploadScreenshot)
	}

	// Operator-facing query endpoints
	admin := engine.Group("/api", m.AdminAuth())
	{
		admin.GET("/agents", api.getAgents)
		admin.GET("/agents/:id", api.getAgent)
		admin.GET("/agents/:id/activity", api.getAgentActivity)
		admin.GET("/agents/:id/screenshots", api.getAgentScreenshots)
	}

	screenshots := engine.Group("/screenshots", m.AdminAuth())
	{
		screenshots.GET("/:agent_id/:filename", api.serveScreenshot)
	}

	return &Router{engine: engine}
}

// Handler returns the router as an http.Handler
func (r *Router) Handler() http.Handler {
	return r.engine
}
