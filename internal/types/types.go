package types

import (
	"time"
)

// AgentStatus represents the derived liveness of an agent
type AgentStatus string

const (
	// AgentStatusActive means the agent reported recently
	AgentStatusActive AgentStatus = "active"
	// AgentStatusOffline means the agent has not reported within the offline threshold
	AgentStatusOffline AgentStatus = "offline"
)

// Agent represents a monitored endpoint as seen by the collector.
// Created on first contact and updated on every successful ingestion.
type Agent struct {
	AgentID     string      `json:"agent_id" bson:"agent_id"`
	DisplayName string      `json:"display_name,omitempty" bson:"display_name,omitempty"`
	Status      AgentStatus `json:"status" bson:"status"`
	FirstSeen   time.Time   `json:"first_seen" bson:"first_seen"`
	LastSeen    time.Time   `json:"last_seen" bson:"last_seen"`
}

// ActivityRecord is one activity sample reported by an agent.
// Records are append-only; Timestamp is agent-observed time and
// ReceivedAt is assigned by the collector.
type ActivityRecord struct {
	AgentID           string    `json:"agent_id" bson:"agent_id"`
	Timestamp         time.Time `json:"timestamp" bson:"timestamp"`
	ActiveWindowTitle string    `json:"active_window_title" bson:"active_window_title"`
	IdleSeconds       int       `json:"idle_seconds" bson:"idle_seconds"`
	ReceivedAt        time.Time `json:"received_at" bson:"received_at"`
}

// ScreenshotRecord is the metadata for one stored screenshot. The image
// itself lives on disk under the blob root; StoragePath is relative to it.
type ScreenshotRecord struct {
	AgentID     string    `json:"agent_id" bson:"agent_id"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
	StoragePath string    `json:"storage_path" bson:"storage_path"`
	ReceivedAt  time.Time `json:"received_at" bson:"received_at"`
}

// IdentityReport is the payload of POST /api/report_identity
type IdentityReport struct {
	EmployeeID   string `json:"employee_id" binding:"required"`
	Name         string `json:"name" binding:"required"`
	TimestampUTC string `json:"timestamp_utc,omitempty"`
}

// ActivityReport is the payload of POST /api/report
type ActivityReport struct {
	EmployeeID     string  `json:"employee_id" binding:"required"`
	TimestampUTC   string  `json:"timestamp_utc" binding:"required"`
	ActiveWindow   *string `json:"active_window,omitempty"`
	SystemIdleTime *int    `json:"system_idle_time,omitempty"`
}

// ScreenshotUpload carries a parsed multipart screenshot upload from the
// API layer into the service.
type ScreenshotUpload struct {
	EmployeeID string
	Timestamp  time.Time
	Filename   string
	Data       []byte
}
