package v1

import (
	"context"

	"github.com/gosuda/voxroom/internal/domain"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Transcripts() domain.TranscriptRepository
	Dispatches() domain.DispatchRepository
}

// JobDispatcher abstracts session dispatch operations for handler testing.
// *dispatch.Dispatcher satisfies this interface.
type JobDispatcher interface {
	Dispatch(ctx context.Context, roomName, agentType, language string) (*domain.DispatchJob, error)
	Stop(roomName string) error
	ActiveRooms() []string
}

// TokenIssuer abstracts room join token minting for handler testing.
// *auth.TokenIssuer satisfies this interface.
type TokenIssuer interface {
	JoinToken(roomName, identity string) (string, error)
}
