package api

import (
	"errors"
	"io"
	"strings"
	"time"

	"sightline/internal/server/api/response"
	"sightline/internal/types"
	"sightline/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Placeholder stored when an optional activity field is absent
const noDataPlaceholder = "N/A"

// reportIdentity handles POST /api/report_identity
func (api *API) reportIdentity(c *gin.Context) {
	resp := response.New(c, api.logger)

	var report types.IdentityReport
	if err := c.ShouldBindJSON(&report); err != nil {
		api.logger.Warn("Invalid identity report",
			zap.Error(err),
			zap.String("client_ip", c.ClientIP()))
		resp.BadRequest(bindError(err))
		return
	}

	// A malformed optional timestamp degrades to receipt time; it never
	// rejects the whole report.
	seenAt := time.Now().UTC()
	if report.TimestampUTC != "" {
		if ts, err := utils.ParseTimestamp(report.TimestampUTC); err != nil {
			api.logger.Warn("Ignoring malformed identity timestamp",
				zap.String("agent_id", report.EmployeeID),
				zap.String("timestamp", report.TimestampUTC))
		} else {
			seenAt = ts
		}
	}

	if err := api.service.RegisterIdentity(c.Request.Context(), report.EmployeeID, report.Name, seenAt); err != nil {
		api.logger.Error("Failed to register identity",
			zap.Error(err),
			zap.String("agent_id", report.EmployeeID))
		resp.InternalError(errors.New("failed to register identity"))
		return
	}

	resp.Success(gin.H{"status": "success"})
}

// reportActivity handles POST /api/report
func (api *API) reportActivity(c *gin.Context) {
	resp := response.New(c, api.logger)

	if !strings.HasPrefix(c.ContentType(), "application/json") {
		resp.UnsupportedMediaType(errors.New("content type must be application/json"))
		return
	}

	var report types.ActivityReport
	if err := c.ShouldBindJSON(&report); err != nil {
		api.logger.Warn("Invalid activity report",
			zap.Error(err),
			zap.String("client_ip", c.ClientIP()))
		resp.BadRequest(bindError(err))
		return
	}

	timestamp, err := utils.ParseTimestamp(report.TimestampUTC)
	if err != nil {
		resp.BadRequest(types.ErrInvalidTimestamp)
		return
	}

	// Optional fields degrade to placeholders instead of failing
	window := noDataPlaceholder
	if report.ActiveWindow != nil {
		window = *report.ActiveWindow
	}
	idle := 0
	if report.SystemIdleTime != nil {
		idle = *report.SystemIdleTime
	}

	record := &types.ActivityRecord{
		AgentID:           report.EmployeeID,
		Timestamp:         timestamp,
		ActiveWindowTitle: window,
		IdleSeconds:       idle,
		ReceivedAt:        time.Now().UTC(),
	}

	if err := api.service.SaveActivity(c.Request.Context(), record); err != nil {
		api.logger.Error("Failed to save activity report",
			zap.Error(err),
			zap.String("agent_id", report.EmployeeID))
		resp.InternalError(errors.New("failed to save activity report"))
		return
	}

	resp.Success(gin.H{"status": "success"})
}

// uploadScreenshot handles POST /api/upload_screenshot
func (api *API) uploadScreenshot(c *gin.Context) {
	resp := response.New(c, api.logger)

	fileHeader, err := c.FormFile("screenshot")
	if err != nil {
		resp.BadRequest(errors.New("screenshot file part is required"))
		return
	}
	if fileHeader.Filename == "" {
		resp.BadRequest(errors.New("screenshot filename must not be empty"))
		return
	}

	employeeID := c.PostForm("employee_id")
	timestampStr := c.PostForm("timestamp_utc")
	if employeeID == "" || timestampStr == "" {
		resp.BadRequest(errors.New("employee_id and timestamp_utc are required"))
		return
	}

	timestamp, err := utils.ParseTimestamp(timestampStr)
	if err != nil {
		resp.BadRequest(types.ErrInvalidTimestamp)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		resp.BadRequest(errors.New("failed to read screenshot file part"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		resp.BadRequest(errors.New("failed to read screenshot file part"))
		return
	}

	record, err := api.service.SaveScreenshot(c.Request.Context(), &types.ScreenshotUpload{
		EmployeeID: employeeID,
		Timestamp:  timestamp,
		Filename:   fileHeader.Filename,
		Data:       data,
	})
	if err != nil {
		api.logger.Error("Failed to save screenshot",
			zap.Error(err),
			zap.String("agent_id", employeeID))
		resp.InternalError(errors.New("failed to save screenshot"))
		return
	}

	resp.Success(gin.H{
		"status":       "success",
		"storage_path": record.StoragePath,
	})
}
