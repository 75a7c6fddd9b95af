// Package simli drives a Simli avatar session over the vendor's REST API.
// The avatar service joins the room as its own participant; this adapter
// only owns the control plane.
package simli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/voxroom/internal/realtime"
)

const defaultBaseURL = "https://api.simli.ai"

// TokenFunc mints a room join token for the avatar participant.
type TokenFunc func(roomName, identity string) (string, error)

// Options configure the avatar control client.
type Options struct {
	APIKey  string
	FaceID  string
	BaseURL string

	// JoinToken lets the avatar service authenticate into the room.
	JoinToken TokenFunc

	HTTPClient *http.Client
}

// Avatar starts and stops one avatar session per room.
type Avatar struct {
	opts Options

	mu        sync.Mutex
	sessionID string
}

func New(opts Options) *Avatar {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Avatar{opts: opts}
}

// Start asks the avatar service to join the room. The returned session id
// is kept for Close.
func (a *Avatar) Start(ctx context.Context, room realtime.Room) error {
	identity := "avatar-" + room.Name()

	token, err := a.opts.JoinToken(room.Name(), identity)
	if err != nil {
		return fmt.Errorf("simli.Avatar.Start: join token: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"faceId":       a.opts.FaceID,
		"roomName":     room.Name(),
		"identity":     identity,
		"roomToken":    token,
		"handleSilent": true,
	})
	if err != nil {
		return fmt.Errorf("simli.Avatar.Start: %w", err)
	}

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	if err := a.post(ctx, "/startAvatarSession", body, &resp); err != nil {
		return fmt.Errorf("simli.Avatar.Start: %w", err)
	}

	a.mu.Lock()
	a.sessionID = resp.SessionID
	a.mu.Unlock()

	log.Info().Str("room", room.Name()).Str("session_id", resp.SessionID).Msg("avatar session started")
	return nil
}

// Close stops the avatar session. Closing an avatar that never started is
// a no-op.
func (a *Avatar) Close(ctx context.Context) error {
	a.mu.Lock()
	sessionID := a.sessionID
	a.sessionID = ""
	a.mu.Unlock()

	if sessionID == "" {
		return nil
	}

	body, err := json.Marshal(map[string]any{"sessionId": sessionID})
	if err != nil {
		return fmt.Errorf("simli.Avatar.Close: %w", err)
	}
	if err := a.post(ctx, "/stopAvatarSession", body, nil); err != nil {
		return fmt.Errorf("simli.Avatar.Close: %w", err)
	}

	log.Info().Str("session_id", sessionID).Msg("avatar session stopped")
	return nil
}

func (a *Avatar) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.opts.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", a.opts.APIKey)

	resp, err := a.opts.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("avatar api status %d: %s", resp.StatusCode, b)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	return nil
}
