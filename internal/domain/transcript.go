package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a transcript line.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// TranscriptEntry records a single conversational event in a room,
// used for replay and audit.
type TranscriptEntry struct {
	ID        uuid.UUID `json:"id"`
	RoomName  string    `json:"room_name"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// TranscriptRepository stores and retrieves ordered transcript entries per
// room. Implementations may be file-backed or relational; callers treat
// both as an opaque append sink.
type TranscriptRepository interface {
	Append(ctx context.Context, entry *TranscriptEntry) error
	ListByRoom(ctx context.Context, roomName string, limit, offset int) ([]*TranscriptEntry, error)
	CountByRoom(ctx context.Context, roomName string) (int64, error)
}
