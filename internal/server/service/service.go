package service

import (
	"context"
	"fmt"
	"time"

	"sightline/internal/server/blob"
	"sightline/internal/server/config"
	"sightline/internal/server/storage"
	"sightline/internal/types"
	"sightline/internal/utils"

	"go.uber.org/zap"
)

// Query limits for the browse surface
const (
	defaultActivityLimit   = 200
	defaultScreenshotLimit = 100
	maxQueryLimit          = 1000
)

// Service orchestrates ingestion and queries between the API layer, the
// record store and the blob area.
type Service struct {
	config  *config.Config
	storage storage.Storage
	blobs   *blob.Store
	logger  *zap.Logger

	ctx       context.Context
	cleanupFn context.CancelFunc
}

// NewService creates new service instance and starts background tasks
func NewService(cfg *config.Config, store storage.Storage, blobs *blob.Store, logger *zap.Logger) *Service {
	ctx, cleanupFn := context.WithCancel(context.Background())

	svc := &Service{
		config:    cfg,
		storage:   store,
		blobs:     blobs,
		logger:    logger,
		ctx:       ctx,
		cleanupFn: cleanupFn,
	}

	go svc.startStatusSweep()
	if cfg.Storage.Retention > 0 {
		go svc.startCleanupTask()
	}

	return svc
}

// Stop stops background tasks and closes the store
func (s *Service) Stop() error {
	s.cleanupFn()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.storage.Close(ctx)
}

// RegisterIdentity upserts the agent identity. seenAt is the report's
// observed timestamp, or the receipt time when the report carried none.
func (s *Service) RegisterIdentity(ctx context.Context, agentID, displayName string, seenAt time.Time) error {
	if err := s.storage.UpsertAgent(ctx, agentID, displayName, seenAt); err != nil {
		return fmt.Errorf("failed to register identity: %w", err)
	}

	s.logger.Info("Identity report processed",
		zap.String("agent_id", agentID),
		zap.String("display_name", displayName))
	return nil
}

// SaveActivity persists one activity record, then updates the agent's
// last_seen to the report's own timestamp. Activity is attributed to
// agent-observed time, not receipt time.
func (s *Service) SaveActivity(ctx context.Context, record *types.ActivityRecord) error {
	if err := s.storage.SaveActivity(ctx, record); err != nil {
		return fmt.Errorf("failed to save activity: %w", err)
	}

	if err := s.storage.UpsertAgent(ctx, record.AgentID, "", record.Timestamp); err != nil {
		return fmt.Errorf("failed to update agent last_seen: %w", err)
	}

	return nil
}

// SaveScreenshot writes the blob, inserts the metadata record, then
// upserts the agent. The order is strict: a failed record insert deletes
// the just-written blob so no file exists without a record pointing at it.
func (s *Service) SaveScreenshot(ctx context.Context, upload *types.ScreenshotUpload) (*types.ScreenshotRecord, error) {
	filename := utils.ScreenshotFilename(upload.Timestamp, upload.Filename)

	relPath, err := s.blobs.Save(upload.EmployeeID, filename, upload.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to store screenshot blob: %w", err)
	}

	record := &types.ScreenshotRecord{
		AgentID:     upload.EmployeeID,
		Timestamp:   upload.Timestamp,
		StoragePath: relPath,
		ReceivedAt:  time.Now().UTC(),
	}

	if err := s.storage.SaveScreenshot(ctx, record); err != nil {
		if rmErr := s.blobs.Remove(relPath); rmErr != nil {
			s.logger.Error("Failed to remove orphaned blob",
				zap.String("path", relPath),
				zap.Error(rmErr))
		}
		return nil, fmt.Errorf("failed to save screenshot record: %w", err)
	}

	if err := s.storage.UpsertAgent(ctx, upload.EmployeeID, "", upload.Timestamp); err != nil {
		return nil, fmt.Errorf("failed to update agent last_seen: %w", err)
	}

	s.logger.Info("Screenshot stored",
		zap.String("agent_id", upload.EmployeeID),
		zap.String("path", relPath),
		zap.Int("bytes", len(upload.Data)))
	return record, nil
}

// GetAgents returns all known agents
func (s *Service) GetAgents(ctx context.Context) ([]*types.Agent, error) {
	return s.storage.GetAgents(ctx)
}

// GetAgent returns one agent by ID
func (s *Service) GetAgent(ctx context.Context, agentID string) (*types.Agent, error) {
	return s.storage.GetAgent(ctx, agentID)
}

// GetActivity returns recent activity for an agent, newest first
func (s *Service) GetActivity(ctx context.Context, agentID string, limit int64) ([]*types.ActivityRecord, error) {
	return s.storage.GetActivity(ctx, agentID, clampLimit(limit, defaultActivityLimit))
}

// GetScreenshots returns recent screenshot records for an agent
func (s *Service) GetScreenshots(ctx context.Context, agentID string, limit int64) ([]*types.ScreenshotRecord, error) {
	return s.storage.GetScreenshots(ctx, agentID, clampLimit(limit, defaultScreenshotLimit))
}

// ScreenshotPath resolves a stored screenshot to an absolute path for serving
func (s *Service) ScreenshotPath(agentID, filename string) (string, error) {
	return s.blobs.Resolve(agentID, filename)
}

// HealthStatus health check
type HealthStatus struct {
	Healthy   bool           `json:"healthy"`
	Timestamp time.Time      `json:"timestamp"`
	Details   []HealthDetail `json:"details,omitempty"`
}

// HealthDetail represents a health detail
type HealthDetail struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// HealthCheck performs a health check
func (s *Service) HealthCheck(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Healthy:   true,
		Timestamp: time.Now().UTC(),
	}

	if err := s.storage.Health(ctx); err != nil {
		status.Healthy = false
		status.Details = append(status.Details, HealthDetail{
			Component: "storage",
			Status:    "unhealthy",
			Error:     err.Error(),
		})
	}

	return status
}

// startStatusSweep periodically flags agents that stopped reporting
func (s *Service) startStatusSweep() {
	ticker := time.NewTicker(s.config.Storage.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-s.config.Storage.OfflineThreshold)
			flagged, err := s.storage.MarkOffline(context.Background(), cutoff)
			if err != nil {
				s.logger.Error("Failed to sweep agent status", zap.Error(err))
				continue
			}
			if flagged > 0 {
				s.logger.Info("Marked agents offline", zap.Int64("count", flagged))
			}
		}
	}
}

// startCleanupTask periodically prunes records past the retention window
func (s *Service) startCleanupTask() {
	ticker := time.NewTicker(s.config.Storage.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-s.config.Storage.Retention)
			if err := s.storage.Cleanup(context.Background(), cutoff); err != nil {
				s.logger.Error("Failed to cleanup old records", zap.Error(err))
			}
		}
	}
}

// clampLimit applies the default and the hard cap to a client-supplied limit
func clampLimit(limit, def int64) int64 {
	if limit <= 0 {
		return def
	}
	if limit > maxQueryLimit {
		return maxQueryLimit
	}
	return limit
}
