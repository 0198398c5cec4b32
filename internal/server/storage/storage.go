package storage

import (
	"context"
	"time"

	"sightline/internal/types"
)

// Storage is the record store behind the collector. All shared state lives
// here; the atomic upsert is the only concurrency-control mechanism the
// ingestion path relies on.
type Storage interface {
	// UpsertAgent creates the agent on first contact or updates last_seen,
	// and display name when given, on every subsequent contact. first_seen
	// converges on the earliest seenAt observed for the agent. Safe to
	// call concurrently for the same agent ID.
	UpsertAgent(ctx context.Context, agentID, displayName string, seenAt time.Time) error

	// SaveActivity appends one activity record
	SaveActivity(ctx context.Context, record *types.ActivityRecord) error

	// SaveScreenshot appends one screenshot metadata record
	SaveScreenshot(ctx context.Context, record *types.ScreenshotRecord) error

	// GetAgents returns all agents sorted by last_seen descending
	GetAgents(ctx context.Context) ([]*types.Agent, error)

	// GetAgent returns one agent or types.ErrAgentNotFound
	GetAgent(ctx context.Context, agentID string) (*types.Agent, error)

	// GetActivity returns recent activity for an agent, newest first
	GetActivity(ctx context.Context, agentID string, limit int64) ([]*types.ActivityRecord, error)

	// GetScreenshots returns recent screenshot records, newest first
	GetScreenshots(ctx context.Context, agentID string, limit int64) ([]*types.ScreenshotRecord, error)

	// MarkOffline flags agents whose last_seen is before cutoff and
	// returns how many were flagged
	MarkOffline(ctx context.Context, cutoff time.Time) (int64, error)

	// Cleanup removes activity and screenshot records older than cutoff
	Cleanup(ctx context.Context, cutoff time.Time) error

	// Health checks store connectivity
	Health(ctx context.Context) error

	// Close releases the store connection
	Close(ctx context.Context) error
}
