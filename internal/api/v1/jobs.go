package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/voxroom/internal/dispatch"
	"github.com/gosuda/voxroom/internal/domain"
)

type CreateJobInput struct {
	Body struct {
		RoomName  string `json:"room_name" minLength:"1" maxLength:"128" doc:"Room to place the agent into"`
		AgentType string `json:"agent_type,omitempty" maxLength:"50" doc:"Agent persona (default: tutor)"`
		Language  string `json:"language,omitempty" maxLength:"50" doc:"Target language for the persona"`
	}
}

type CreateJobOutput struct {
	Body *domain.DispatchJob
}

type GetJobInput struct {
	ID uuid.UUID `path:"id" doc:"Dispatch job ID"`
}

type GetJobOutput struct {
	Body *domain.DispatchJob
}

type ListJobsInput struct {
	RoomName string `query:"room_name" doc:"Filter by room name"`
	Limit    int    `query:"limit" minimum:"1" maximum:"200" default:"50" doc:"Max results"`
}

type ListJobsOutput struct {
	Body []*domain.DispatchJob
}

func RegisterJobRoutes(api huma.API, store DataStore, dispatcher JobDispatcher) {
	huma.Register(api, huma.Operation{
		OperationID: "create-job",
		Method:      http.MethodPost,
		Path:        "/jobs",
		Summary:     "Dispatch an agent into a room",
		Tags:        []string{"Jobs"},
	}, func(ctx context.Context, input *CreateJobInput) (*CreateJobOutput, error) {
		job, err := dispatcher.Dispatch(ctx, input.Body.RoomName, input.Body.AgentType, input.Body.Language)
		if err != nil {
			if errors.Is(err, dispatch.ErrUnknownProfile) {
				return nil, huma.Error400BadRequest("unknown agent type: " + input.Body.AgentType)
			}
			return nil, huma.Error500InternalServerError("failed to dispatch agent", err)
		}

		// A denied job is a recorded outcome: the caller learns the room is
		// already served and can inspect the job it got back.
		if job.Status == domain.DispatchStatusDenied {
			return nil, huma.Error409Conflict("an agent is already serving room " + job.RoomName)
		}

		return &CreateJobOutput{Body: job}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/jobs/{id}",
		Summary:     "Get a dispatch job by ID",
		Tags:        []string{"Jobs"},
	}, func(ctx context.Context, input *GetJobInput) (*GetJobOutput, error) {
		job, err := store.Dispatches().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("job not found")
			}
			return nil, huma.Error500InternalServerError("failed to get job", err)
		}

		return &GetJobOutput{Body: job}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/jobs",
		Summary:     "List dispatch jobs",
		Tags:        []string{"Jobs"},
	}, func(ctx context.Context, input *ListJobsInput) (*ListJobsOutput, error) {
		var (
			jobs []*domain.DispatchJob
			err  error
		)
		if input.RoomName != "" {
			jobs, err = store.Dispatches().ListByRoom(ctx, input.RoomName)
		} else {
			jobs, err = store.Dispatches().ListRecent(ctx, input.Limit)
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list jobs", err)
		}

		if jobs == nil {
			jobs = []*domain.DispatchJob{}
		}
		return &ListJobsOutput{Body: jobs}, nil
	})
}
