package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type DispatchStatus string

const (
	DispatchStatusPending   DispatchStatus = "pending"
	DispatchStatusActive    DispatchStatus = "active"
	DispatchStatusDenied    DispatchStatus = "denied"
	DispatchStatusCompleted DispatchStatus = "completed"
	DispatchStatusFailed    DispatchStatus = "failed"
)

// DispatchJob records one request to place an agent into a room.
// At most one job per room is active at a time; a job denied by admission
// control is recorded as denied, not failed.
type DispatchJob struct {
	ID          uuid.UUID      `json:"id"`
	RoomName    string         `json:"room_name"`
	AgentType   string         `json:"agent_type"`
	Language    string         `json:"language,omitempty"`
	Status      DispatchStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

type DispatchRepository interface {
	Create(ctx context.Context, job *DispatchJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*DispatchJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status DispatchStatus) error
	SetCompleted(ctx context.Context, id uuid.UUID, status DispatchStatus, errMsg string) error
	SetSummary(ctx context.Context, id uuid.UUID, summary string) error
	ListByRoom(ctx context.Context, roomName string) ([]*DispatchJob, error)
	ListRecent(ctx context.Context, limit int) ([]*DispatchJob, error)
}
