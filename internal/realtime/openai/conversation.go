// Package openai adapts the OpenAI Realtime and Chat Completions APIs to
// the realtime collaborator contracts.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/voxroom/internal/realtime"
)

// ConversationOptions carries the Realtime API coordinates.
type ConversationOptions struct {
	APIKey string
	Model  string
	// BaseURL overrides the default Realtime endpoint, mainly for tests.
	BaseURL string
}

const defaultRealtimeURL = "wss://api.openai.com/v1/realtime"

// Conversation is the Realtime API control channel for one room's agent.
// Audio flows through the media plane; this adapter drives the session
// configuration, reply generation, and the inbound event stream.
type Conversation struct {
	opts ConversationOptions

	mu              sync.Mutex
	conn            *websocket.Conn
	onTranscription func(realtime.TranscriptionEvent)
	onItem          func(realtime.ConversationItem)

	readCtx    context.Context
	readCancel context.CancelFunc
	readDone   chan struct{}
}

func NewConversation(opts ConversationOptions) *Conversation {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultRealtimeURL
	}
	return &Conversation{opts: opts}
}

// event is the envelope shared by every Realtime API message.
type event struct {
	Type       string          `json:"type"`
	Transcript string          `json:"transcript,omitempty"`
	Item       *eventItem      `json:"item,omitempty"`
	Error      *eventError     `json:"error,omitempty"`
	Session    json.RawMessage `json:"session,omitempty"`
}

type eventItem struct {
	Role    string         `json:"role"`
	Content []eventContent `json:"content"`
}

type eventContent struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

type eventError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Start dials the control channel, configures the session, and begins the
// read loop.
func (c *Conversation) Start(ctx context.Context, cfg realtime.ConversationConfig) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.opts.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	url := c.opts.BaseURL + "?model=" + c.opts.Model
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return fmt.Errorf("openai.Conversation.Start: dial: %w", err)
	}

	transcription := map[string]any{
		"model": "whisper-1",
	}
	if cfg.Language != "" {
		transcription["language"] = cfg.Language
	}
	if cfg.TranscriptionMode != "" {
		transcription["task"] = cfg.TranscriptionMode
	}

	update := map[string]any{
		"type": "session.update",
		"session": map[string]any{
			"instructions":              cfg.Instructions,
			"voice":                     cfg.Voice,
			"input_audio_transcription": transcription,
		},
	}
	if err := writeJSON(ctx, conn, update); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "session update failed")
		return fmt.Errorf("openai.Conversation.Start: session update: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.readCtx, c.readCancel = context.WithCancel(context.Background())
	c.readDone = make(chan struct{})
	c.mu.Unlock()

	go c.readLoop()

	return nil
}

// GenerateReply asks the model to produce one agent turn guided by the
// given instructions.
func (c *Conversation) GenerateReply(ctx context.Context, instructions string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("openai.Conversation.GenerateReply: not started")
	}

	msg := map[string]any{
		"type": "response.create",
		"response": map[string]any{
			"instructions": instructions,
		},
	}
	if err := writeJSON(ctx, conn, msg); err != nil {
		return fmt.Errorf("openai.Conversation.GenerateReply: %w", err)
	}
	return nil
}

func (c *Conversation) OnTranscription(fn func(realtime.TranscriptionEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTranscription = fn
}

func (c *Conversation) OnConversationItem(fn func(realtime.ConversationItem)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onItem = fn
}

// Close shuts the control channel down and waits for the read loop to
// exit.
func (c *Conversation) Close(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	cancel := c.readCancel
	done := c.readDone
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.Close(websocket.StatusNormalClosure, "session ended")
	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("openai.Conversation.Close: %w", ctx.Err())
		}
	}
	if err != nil {
		return fmt.Errorf("openai.Conversation.Close: %w", err)
	}
	return nil
}

// readLoop consumes the inbound event stream until the connection or the
// context ends.
func (c *Conversation) readLoop() {
	defer close(c.readDone)

	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil || c.readCtx.Err() != nil {
			return
		}

		_, data, err := conn.Read(c.readCtx)
		if err != nil {
			if c.readCtx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				log.Warn().Err(err).Msg("realtime control channel read failed")
			}
			return
		}

		var ev event
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Warn().Err(err).Msg("realtime event decode failed")
			continue
		}
		c.dispatch(ev)
	}
}

func (c *Conversation) dispatch(ev event) {
	c.mu.Lock()
	onTranscription := c.onTranscription
	onItem := c.onItem
	c.mu.Unlock()

	switch ev.Type {
	case "conversation.item.input_audio_transcription.completed":
		if onTranscription != nil && ev.Transcript != "" {
			onTranscription(realtime.TranscriptionEvent{Text: ev.Transcript})
		}

	case "response.output_item.done":
		if onItem == nil || ev.Item == nil {
			return
		}
		item := realtime.ConversationItem{Role: ev.Item.Role}
		for _, part := range ev.Item.Content {
			switch {
			case part.Text != "":
				item.Content = append(item.Content, part.Text)
			case part.Transcript != "":
				item.Content = append(item.Content, part.Transcript)
			}
		}
		if len(item.Content) > 0 {
			onItem(item)
		}

	case "error":
		if ev.Error != nil {
			log.Error().
				Str("code", ev.Error.Code).
				Str("message", ev.Error.Message).
				Msg("realtime api error")
		}
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
