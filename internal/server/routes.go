package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/voxroom/internal/api/v1"
	"github.com/gosuda/voxroom/internal/api/ws"
)

func registerAPIRoutes(api huma.API, store v1.DataStore, dispatcher v1.JobDispatcher, tokens v1.TokenIssuer) {
	v1.RegisterJobRoutes(api, store, dispatcher)
	v1.RegisterRoomRoutes(api, store, dispatcher, tokens)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/rooms/{roomName}", hub.ServeRoom)
}
