package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/voxroom/internal/dispatch"
	"github.com/gosuda/voxroom/internal/domain"
)

type ListRoomsOutput struct {
	Body struct {
		Rooms []string `json:"rooms"`
	}
}

type StopRoomInput struct {
	RoomName string `path:"roomName" doc:"Room whose session should stop"`
}

type StopRoomOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

type GetTranscriptInput struct {
	RoomName string `path:"roomName" doc:"Room name"`
	Limit    int    `query:"limit" minimum:"1" maximum:"500" default:"100" doc:"Max entries"`
	Offset   int    `query:"offset" minimum:"0" default:"0" doc:"Offset for pagination"`
}

type GetTranscriptOutput struct {
	Body struct {
		RoomName string                    `json:"room_name"`
		Total    int64                     `json:"total"`
		Entries  []*domain.TranscriptEntry `json:"entries"`
	}
}

type CreateTokenInput struct {
	RoomName string `path:"roomName" doc:"Room name"`
	Body     struct {
		Identity string `json:"identity" minLength:"1" maxLength:"128" doc:"Participant identity"`
	}
}

type CreateTokenOutput struct {
	Body struct {
		Token string `json:"token"`
	}
}

func RegisterRoomRoutes(api huma.API, store DataStore, dispatcher JobDispatcher, tokens TokenIssuer) {
	huma.Register(api, huma.Operation{
		OperationID: "list-rooms",
		Method:      http.MethodGet,
		Path:        "/rooms",
		Summary:     "List rooms with an active session",
		Tags:        []string{"Rooms"},
	}, func(_ context.Context, _ *struct{}) (*ListRoomsOutput, error) {
		out := &ListRoomsOutput{}
		out.Body.Rooms = dispatcher.ActiveRooms()
		if out.Body.Rooms == nil {
			out.Body.Rooms = []string{}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "stop-room",
		Method:      http.MethodDelete,
		Path:        "/rooms/{roomName}",
		Summary:     "Stop the room's active session",
		Tags:        []string{"Rooms"},
	}, func(_ context.Context, input *StopRoomInput) (*StopRoomOutput, error) {
		if err := dispatcher.Stop(input.RoomName); err != nil {
			if errors.Is(err, dispatch.ErrNoActiveSession) {
				return nil, huma.Error404NotFound("no active session for room " + input.RoomName)
			}
			return nil, huma.Error500InternalServerError("failed to stop session", err)
		}

		out := &StopRoomOutput{}
		out.Body.Status = "stopping"
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-transcript",
		Method:      http.MethodGet,
		Path:        "/rooms/{roomName}/transcript",
		Summary:     "Get the room's stored transcript",
		Tags:        []string{"Rooms"},
	}, func(ctx context.Context, input *GetTranscriptInput) (*GetTranscriptOutput, error) {
		entries, err := store.Transcripts().ListByRoom(ctx, input.RoomName, input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list transcript", err)
		}

		total, err := store.Transcripts().CountByRoom(ctx, input.RoomName)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to count transcript", err)
		}

		out := &GetTranscriptOutput{}
		out.Body.RoomName = input.RoomName
		out.Body.Total = total
		out.Body.Entries = entries
		if out.Body.Entries == nil {
			out.Body.Entries = []*domain.TranscriptEntry{}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-room-token",
		Method:      http.MethodPost,
		Path:        "/rooms/{roomName}/token",
		Summary:     "Mint a join token for a participant",
		Tags:        []string{"Rooms"},
	}, func(_ context.Context, input *CreateTokenInput) (*CreateTokenOutput, error) {
		token, err := tokens.JoinToken(input.RoomName, input.Body.Identity)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to mint token", err)
		}

		out := &CreateTokenOutput{}
		out.Body.Token = token
		return out, nil
	})
}
