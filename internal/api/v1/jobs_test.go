package v1_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/voxroom/internal/api/v1"
	"github.com/gosuda/voxroom/internal/dispatch"
	"github.com/gosuda/voxroom/internal/domain"
)

func newJobTestAPI(t *testing.T) (humatest.TestAPI, *mockDataStore, *mockDispatcher) {
	t.Helper()

	_, api := humatest.New(t)
	store := &mockDataStore{}
	dispatcher := &mockDispatcher{}

	v1.RegisterJobRoutes(api, store, dispatcher)

	return api, store, dispatcher
}

func makeJob(roomName string, status domain.DispatchStatus) *domain.DispatchJob {
	now := time.Now()
	return &domain.DispatchJob{
		ID:        uuid.New(),
		RoomName:  roomName,
		AgentType: "tutor",
		Language:  "English",
		Status:    status,
		CreatedAt: now,
		StartedAt: &now,
	}
}

func TestCreateJob(t *testing.T) {
	t.Parallel()

	t.Run("dispatches and returns the active job", func(t *testing.T) {
		t.Parallel()

		api, _, dispatcher := newJobTestAPI(t)

		var gotRoom, gotType, gotLang string
		dispatcher.dispatchFunc = func(_ context.Context, roomName, agentType, language string) (*domain.DispatchJob, error) {
			gotRoom, gotType, gotLang = roomName, agentType, language
			return makeJob(roomName, domain.DispatchStatusActive), nil
		}

		resp := api.Post("/jobs", map[string]any{
			"room_name":  "study-1",
			"agent_type": "tutor",
			"language":   "English",
		})

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "study-1", gotRoom)
		assert.Equal(t, "tutor", gotType)
		assert.Equal(t, "English", gotLang)
		assert.Contains(t, resp.Body.String(), `"active"`)
	})

	t.Run("denied dispatch returns 409", func(t *testing.T) {
		t.Parallel()

		api, _, dispatcher := newJobTestAPI(t)
		dispatcher.dispatchFunc = func(_ context.Context, roomName, _, _ string) (*domain.DispatchJob, error) {
			return makeJob(roomName, domain.DispatchStatusDenied), nil
		}

		resp := api.Post("/jobs", map[string]any{"room_name": "study-1"})

		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("unknown agent type returns 400", func(t *testing.T) {
		t.Parallel()

		api, _, dispatcher := newJobTestAPI(t)
		dispatcher.dispatchFunc = func(context.Context, string, string, string) (*domain.DispatchJob, error) {
			return nil, fmt.Errorf("dispatch: %w", dispatch.ErrUnknownProfile)
		}

		resp := api.Post("/jobs", map[string]any{"room_name": "study-1", "agent_type": "astronaut"})

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("missing room name fails validation", func(t *testing.T) {
		t.Parallel()

		api, _, dispatcher := newJobTestAPI(t)
		dispatcher.dispatchFunc = func(context.Context, string, string, string) (*domain.DispatchJob, error) {
			t.Fatal("dispatcher must not be called for an invalid request")
			return nil, nil
		}

		resp := api.Post("/jobs", map[string]any{"agent_type": "tutor"})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("dispatch failure returns 500", func(t *testing.T) {
		t.Parallel()

		api, _, dispatcher := newJobTestAPI(t)
		dispatcher.dispatchFunc = func(context.Context, string, string, string) (*domain.DispatchJob, error) {
			return nil, errors.New("room service unreachable")
		}

		resp := api.Post("/jobs", map[string]any{"room_name": "study-1"})

		assert.Equal(t, http.StatusInternalServerError, resp.Code)
	})
}

func TestGetJob(t *testing.T) {
	t.Parallel()

	t.Run("returns the job", func(t *testing.T) {
		t.Parallel()

		api, store, _ := newJobTestAPI(t)
		job := makeJob("study-1", domain.DispatchStatusCompleted)
		store.dispatches = &mockDispatchRepo{
			getByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.DispatchJob, error) {
				require.Equal(t, job.ID, id)
				return job, nil
			},
		}

		resp := api.Get("/jobs/" + job.ID.String())

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), job.RoomName)
	})

	t.Run("unknown job returns 404", func(t *testing.T) {
		t.Parallel()

		api, store, _ := newJobTestAPI(t)
		store.dispatches = &mockDispatchRepo{
			getByIDFunc: func(context.Context, uuid.UUID) (*domain.DispatchJob, error) {
				return nil, domain.ErrNotFound
			},
		}

		resp := api.Get("/jobs/" + uuid.NewString())

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestListJobs(t *testing.T) {
	t.Parallel()

	t.Run("recent jobs by default", func(t *testing.T) {
		t.Parallel()

		api, store, _ := newJobTestAPI(t)
		store.dispatches = &mockDispatchRepo{
			listRecentFunc: func(_ context.Context, limit int) ([]*domain.DispatchJob, error) {
				assert.Equal(t, 50, limit)
				return []*domain.DispatchJob{makeJob("study-1", domain.DispatchStatusActive)}, nil
			},
		}

		resp := api.Get("/jobs")

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), "study-1")
	})

	t.Run("filter by room", func(t *testing.T) {
		t.Parallel()

		api, store, _ := newJobTestAPI(t)
		store.dispatches = &mockDispatchRepo{
			listByRoomFunc: func(_ context.Context, roomName string) ([]*domain.DispatchJob, error) {
				assert.Equal(t, "study-2", roomName)
				return nil, nil
			},
		}

		resp := api.Get("/jobs?room_name=study-2")

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, "[]", resp.Body.String())
	})
}
