package v1_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/voxroom/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	transcripts domain.TranscriptRepository
	dispatches  domain.DispatchRepository
}

func (m *mockDataStore) Transcripts() domain.TranscriptRepository { return m.transcripts }
func (m *mockDataStore) Dispatches() domain.DispatchRepository    { return m.dispatches }

// ---------------------------------------------------------------------------
// Mock TranscriptRepository
// ---------------------------------------------------------------------------

type mockTranscriptRepo struct {
	appendFunc     func(ctx context.Context, entry *domain.TranscriptEntry) error
	listByRoomFunc func(ctx context.Context, roomName string, limit, offset int) ([]*domain.TranscriptEntry, error)
	countFunc      func(ctx context.Context, roomName string) (int64, error)
}

func (m *mockTranscriptRepo) Append(ctx context.Context, entry *domain.TranscriptEntry) error {
	return m.appendFunc(ctx, entry)
}

func (m *mockTranscriptRepo) ListByRoom(ctx context.Context, roomName string, limit, offset int) ([]*domain.TranscriptEntry, error) {
	return m.listByRoomFunc(ctx, roomName, limit, offset)
}

func (m *mockTranscriptRepo) CountByRoom(ctx context.Context, roomName string) (int64, error) {
	return m.countFunc(ctx, roomName)
}

// ---------------------------------------------------------------------------
// Mock DispatchRepository
// ---------------------------------------------------------------------------

type mockDispatchRepo struct {
	createFunc       func(ctx context.Context, job *domain.DispatchJob) error
	getByIDFunc      func(ctx context.Context, id uuid.UUID) (*domain.DispatchJob, error)
	updateStatusFunc func(ctx context.Context, id uuid.UUID, status domain.DispatchStatus) error
	setCompletedFunc func(ctx context.Context, id uuid.UUID, status domain.DispatchStatus, errMsg string) error
	setSummaryFunc   func(ctx context.Context, id uuid.UUID, summary string) error
	listByRoomFunc   func(ctx context.Context, roomName string) ([]*domain.DispatchJob, error)
	listRecentFunc   func(ctx context.Context, limit int) ([]*domain.DispatchJob, error)
}

func (m *mockDispatchRepo) Create(ctx context.Context, job *domain.DispatchJob) error {
	return m.createFunc(ctx, job)
}

func (m *mockDispatchRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DispatchJob, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockDispatchRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DispatchStatus) error {
	return m.updateStatusFunc(ctx, id, status)
}

func (m *mockDispatchRepo) SetCompleted(ctx context.Context, id uuid.UUID, status domain.DispatchStatus, errMsg string) error {
	return m.setCompletedFunc(ctx, id, status, errMsg)
}

func (m *mockDispatchRepo) SetSummary(ctx context.Context, id uuid.UUID, summary string) error {
	return m.setSummaryFunc(ctx, id, summary)
}

func (m *mockDispatchRepo) ListByRoom(ctx context.Context, roomName string) ([]*domain.DispatchJob, error) {
	return m.listByRoomFunc(ctx, roomName)
}

func (m *mockDispatchRepo) ListRecent(ctx context.Context, limit int) ([]*domain.DispatchJob, error) {
	return m.listRecentFunc(ctx, limit)
}

// ---------------------------------------------------------------------------
// Mock JobDispatcher
// ---------------------------------------------------------------------------

type mockDispatcher struct {
	dispatchFunc    func(ctx context.Context, roomName, agentType, language string) (*domain.DispatchJob, error)
	stopFunc        func(roomName string) error
	activeRoomsFunc func() []string
}

func (m *mockDispatcher) Dispatch(ctx context.Context, roomName, agentType, language string) (*domain.DispatchJob, error) {
	return m.dispatchFunc(ctx, roomName, agentType, language)
}

func (m *mockDispatcher) Stop(roomName string) error {
	return m.stopFunc(roomName)
}

func (m *mockDispatcher) ActiveRooms() []string {
	if m.activeRoomsFunc == nil {
		return nil
	}
	return m.activeRoomsFunc()
}

// ---------------------------------------------------------------------------
// Mock TokenIssuer
// ---------------------------------------------------------------------------

type mockTokenIssuer struct {
	joinTokenFunc func(roomName, identity string) (string, error)
}

func (m *mockTokenIssuer) JoinToken(roomName, identity string) (string, error) {
	return m.joinTokenFunc(roomName, identity)
}
