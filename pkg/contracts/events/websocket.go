// Package events contains the event contracts pushed to WebSocket clients
// while a transformation run executes.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message.
type MessageType string

const (
	// Core run message - the primary event type
	MessageTypeRunSnapshot MessageType = "run:snapshot"

	// System messages
	MessageTypeSystemStatus MessageType = "system:status"

	// Connection messages
	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"
	MessageTypeError      MessageType = "error"
)

// Run statuses.
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Stage statuses.
const (
	StageStatusPending   = "pending"
	StageStatusRunning   = "running"
	StageStatusCompleted = "completed"
	StageStatusFailed    = "failed"
	StageStatusSkipped   = "skipped"
)

// Canonical stage IDs in execution order.
const (
	StageParse       = "parse"
	StageStandardize = "standardize"
	StageRank        = "rank"
	StageWrite       = "write"
)

// BaseMessage represents the base structure for all WebSocket messages.
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message.
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// RunSnapshot is the only message type used for run progress. Each update
// replaces the previous snapshot wholesale, so clients never have to merge
// deltas.
type RunSnapshot struct {
	RunID        string          `json:"run_id"`
	Status       string          `json:"status"`
	Progress     int             `json:"progress"` // 0-100
	CurrentStage string          `json:"current_stage,omitempty"`
	Stages       []StageSnapshot `json:"stages"`
	StartedAt    time.Time       `json:"started_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	Error        string          `json:"error,omitempty"`
	Message      string          `json:"message,omitempty"`
}

// StageSnapshot represents the state of a single pipeline stage.
type StageSnapshot struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Status   string                 `json:"status"`
	Progress int                    `json:"progress"` // 0-100
	Message  string                 `json:"message,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewRunSnapshot returns a pending snapshot carrying the canonical stages
// in execution order.
func NewRunSnapshot(runID string) *RunSnapshot {
	now := time.Now()
	return &RunSnapshot{
		RunID:     runID,
		Status:    RunStatusPending,
		StartedAt: now,
		UpdatedAt: now,
		Stages: []StageSnapshot{
			{ID: StageParse, Name: "Parse input", Status: StageStatusPending},
			{ID: StageStandardize, Name: "Standardize factors", Status: StageStatusPending},
			{ID: StageRank, Name: "Rank and rescale", Status: StageStatusPending},
			{ID: StageWrite, Name: "Write outputs", Status: StageStatusPending},
		},
	}
}

// Stage returns the stage with the given ID, or nil.
func (s *RunSnapshot) Stage(id string) *StageSnapshot {
	for i := range s.Stages {
		if s.Stages[i].ID == id {
			return &s.Stages[i]
		}
	}
	return nil
}

// SystemStatusEvent reports overall service health to clients.
type SystemStatusEvent struct {
	BaseMessage
	Data struct {
		Status  string `json:"status"` // healthy|degraded|unhealthy
		Uptime  string `json:"uptime"`
		Version string `json:"version"`
	} `json:"data"`
}

// ErrorMessage represents an error pushed to clients.
type ErrorMessage struct {
	BaseMessage
	Data struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Fatal   bool   `json:"fatal"`
	} `json:"data"`
}
