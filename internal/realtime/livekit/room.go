// Package livekit adapts the LiveKit server SDK to the realtime.Room
// contract. The room service client is the authoritative source for the
// participant roster; the in-memory view of a freshly joined room can lag
// behind it.
package livekit

import (
	"context"
	"fmt"
	"sync"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/voxroom/internal/realtime"
)

// Config carries the LiveKit deployment coordinates.
type Config struct {
	URL       string
	APIKey    string
	APISecret string
}

// Service wraps the LiveKit room service client for roster queries and
// room teardown.
type Service struct {
	cfg    Config
	client *lksdk.RoomServiceClient
}

func NewService(cfg Config) *Service {
	return &Service{
		cfg:    cfg,
		client: lksdk.NewRoomServiceClient(cfg.URL, cfg.APIKey, cfg.APISecret),
	}
}

// ListParticipants returns the server-side roster for a room.
func (s *Service) ListParticipants(ctx context.Context, roomName string) ([]realtime.Participant, error) {
	resp, err := s.client.ListParticipants(ctx, &livekit.ListParticipantsRequest{Room: roomName})
	if err != nil {
		return nil, fmt.Errorf("livekit.Service.ListParticipants: %w", err)
	}

	out := make([]realtime.Participant, 0, len(resp.Participants))
	for _, p := range resp.Participants {
		out = append(out, realtime.Participant{
			Identity: p.Identity,
			Kind:     kindFromInfo(p.Kind),
		})
	}
	return out, nil
}

// DeleteRoom tears the room down server-side, ejecting every participant.
func (s *Service) DeleteRoom(ctx context.Context, roomName string) error {
	if _, err := s.client.DeleteRoom(ctx, &livekit.DeleteRoomRequest{Room: roomName}); err != nil {
		return fmt.Errorf("livekit.Service.DeleteRoom: %w", err)
	}
	return nil
}

// Room is a connected agent participant in one LiveKit room.
type Room struct {
	name     string
	identity string
	svc      *Service
	room     *lksdk.Room

	mu          sync.Mutex
	onDeparture func(realtime.Participant)
}

// Connect joins the room as an agent-kind participant and returns the
// adapter. The departure callback registered later receives every remote
// disconnect.
func (s *Service) Connect(roomName, identity string) (*Room, error) {
	r := &Room{
		name:     roomName,
		identity: identity,
		svc:      s,
	}

	callback := &lksdk.RoomCallback{
		OnParticipantDisconnected: func(rp *lksdk.RemoteParticipant) {
			r.handleDisconnect(rp)
		},
	}

	room, err := lksdk.ConnectToRoom(s.cfg.URL, lksdk.ConnectInfo{
		APIKey:              s.cfg.APIKey,
		APISecret:           s.cfg.APISecret,
		RoomName:            roomName,
		ParticipantIdentity: identity,
		ParticipantKind:     lksdk.ParticipantAgent,
	}, callback, lksdk.WithAutoSubscribe(true))
	if err != nil {
		return nil, fmt.Errorf("livekit.Service.Connect: %w", err)
	}

	r.room = room
	log.Info().Str("room", roomName).Str("identity", identity).Msg("joined room")
	return r, nil
}

func (r *Room) Name() string { return r.name }

// Participants queries the room service roster, excluding this agent's own
// identity so the caller sees only the other occupants.
func (r *Room) Participants(ctx context.Context) ([]realtime.Participant, error) {
	all, err := r.svc.ListParticipants(ctx, r.name)
	if err != nil {
		return nil, err
	}

	out := all[:0]
	for _, p := range all {
		if p.Identity == r.identity {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Room) OnParticipantDisconnected(fn func(realtime.Participant)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDeparture = fn
}

func (r *Room) Disconnect() error {
	r.room.Disconnect()
	log.Info().Str("room", r.name).Str("identity", r.identity).Msg("left room")
	return nil
}

func (r *Room) handleDisconnect(rp *lksdk.RemoteParticipant) {
	r.mu.Lock()
	fn := r.onDeparture
	r.mu.Unlock()
	if fn == nil {
		return
	}

	fn(realtime.Participant{
		Identity: rp.Identity(),
		Kind:     kindFromSDK(rp.Kind()),
	})
}

func kindFromInfo(kind livekit.ParticipantInfo_Kind) realtime.ParticipantKind {
	if kind == livekit.ParticipantInfo_AGENT {
		return realtime.KindAgent
	}
	return realtime.KindStandard
}

func kindFromSDK(kind lksdk.ParticipantKind) realtime.ParticipantKind {
	if kind == lksdk.ParticipantAgent {
		return realtime.KindAgent
	}
	return realtime.KindStandard
}
