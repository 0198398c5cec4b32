package api

import (
	"errors"
	"net/http"
	"strconv"

	"sightline/internal/server/api/response"
	"sightline/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getAgents handles GET /api/agents
func (api *API) getAgents(c *gin.Context) {
	resp := response.New(c, api.logger)

	agents, err := api.service.GetAgents(c.Request.Context())
	if err != nil {
		api.logger.Error("Failed to list agents", zap.Error(err))
		resp.InternalError(errors.New("failed to list agents"))
		return
	}

	resp.Success(agents)
}

// getAgent handles GET /api/agents/:id
func (api *API) getAgent(c *gin.Context) {
	resp := response.New(c, api.logger)
	agentID := c.Param("id")

	agent, err := api.service.GetAgent(c.Request.Context(), agentID)
	if err != nil {
		if errors.Is(err, types.ErrAgentNotFound) {
			resp.NotFound(err)
			return
		}
		api.logger.Error("Failed to get agent",
			zap.Error(err),
			zap.String("agent_id", agentID))
		resp.InternalError(errors.New("failed to get agent"))
		return
	}

	resp.Success(agent)
}

// getAgentActivity handles GET /api/agents/:id/activity
func (api *API) getAgentActivity(c *gin.Context) {
	resp := response.New(c, api.logger)
	agentID := c.Param("id")

	records, err := api.service.GetActivity(c.Request.Context(), agentID, queryLimit(c))
	if err != nil {
		api.logger.Error("Failed to get activity records",
			zap.Error(err),
			zap.String("agent_id", agentID))
		resp.InternalError(errors.New("failed to get activity records"))
		return
	}

	resp.Success(records)
}

// getAgentScreenshots handles GET /api/agents/:id/screenshots
func (api *API) getAgentScreenshots(c *gin.Context) {
	resp := response.New(c, api.logger)
	agentID := c.Param("id")

	records, err := api.service.GetScreenshots(c.Request.Context(), agentID, queryLimit(c))
	if err != nil {
		api.logger.Error("Failed to get screenshot records",
			zap.Error(err),
			zap.String("agent_id", agentID))
		resp.InternalError(errors.New("failed to get screenshot records"))
		return
	}

	resp.Success(records)
}

// serveScreenshot handles GET /screenshots/:agent_id/:filename
func (api *API) serveScreenshot(c *gin.Context) {
	resp := response.New(c, api.logger)
	agentID := c.Param("agent_id")
	filename := c.Param("filename")

	path, err := api.service.ScreenshotPath(agentID, filename)
	if err != nil {
		if errors.Is(err, types.ErrScreenshotNotFound) {
			resp.NotFound(err)
			return
		}
		api.logger.Error("Failed to resolve screenshot",
			zap.Error(err),
			zap.String("agent_id", agentID),
			zap.String("filename", filename))
		resp.InternalError(errors.New("failed to resolve screenshot"))
		return
	}

	resp.File(path)
}

// healthCheck handles GET /health
func (api *API) healthCheck(c *gin.Context) {
	status := api.service.HealthCheck(c.Request.Context())
	if !status.Healthy {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

func queryLimit(c *gin.Context) int64 {
	raw := c.Query("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
