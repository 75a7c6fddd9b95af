package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/voxroom/internal/domain"
	"github.com/gosuda/voxroom/internal/realtime"
)

// Defaults for the lifecycle core.
const (
	DefaultGateCapacity  = 4
	DefaultQueueCapacity = 256
	DefaultDrainTimeout  = 5 * time.Second
)

// State is the session lifecycle state. Transitions only move forward:
// Starting -> Active -> ShuttingDown -> Closed.
type State int32

const (
	StateStarting State = iota
	StateActive
	StateShuttingDown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateShuttingDown:
		return "shutting_down"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventPublisher abstracts the pub/sub publish operation for live session
// events.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Config carries the per-room session configuration derived by the
// dispatcher. Instructions, greeting, voice, and language are opaque
// values passed through to the conversation provider unmodified.
type Config struct {
	RoomName      string
	Instructions  string
	Greeting      string
	Voice         string
	Language      string
	QueueCapacity int
	DrainTimeout  time.Duration
}

// Session wires one realtime conversation into one room and owns the
// single authoritative shutdown path. A Session is created per admitted
// room; it exclusively owns its LogSink and its admission claim.
type Session struct {
	cfg      Config
	registry *AdmissionRegistry
	gate     *Gate
	store    domain.TranscriptRepository
	room     realtime.Room
	conv     realtime.Conversation
	avatar   realtime.Avatar // optional
	pubsub   EventPublisher  // optional

	sink   *LogSink
	cancel context.CancelFunc
	runCtx context.Context
	done   chan struct{}

	// trackMu orders wg.Add against wg.Wait: once draining is set no new
	// tracked task may start, so Wait observes a stable counter.
	trackMu  sync.Mutex
	draining bool
	wg       sync.WaitGroup

	state        atomic.Int32
	shuttingDown atomic.Bool
	lastEventAt  atomic.Int64 // unix nanos of the most recent inbound event
}

// New creates a session. avatar and pubsub may be nil.
func New(
	cfg Config,
	registry *AdmissionRegistry,
	gate *Gate,
	store domain.TranscriptRepository,
	room realtime.Room,
	conv realtime.Conversation,
	avatar realtime.Avatar,
	pubsub EventPublisher,
) *Session {
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	return &Session{
		cfg:      cfg,
		registry: registry,
		gate:     gate,
		store:    store,
		room:     room,
		conv:     conv,
		avatar:   avatar,
		pubsub:   pubsub,
		done:     make(chan struct{}),
	}
}

// Start claims admission for the room and brings the session to Active:
// event handlers wired, avatar and conversation started, greeting
// dispatched. It returns (false, nil) when admission is denied — a normal
// outcome under concurrent dispatch, not an error. Once admitted, every
// failure runs the full shutdown path before the error is returned, so the
// admission claim is always released.
func (s *Session) Start(ctx context.Context) (admitted bool, err error) {
	admitted, err = s.registry.Admit(ctx, s.cfg.RoomName, s.probe)
	if err != nil {
		return false, fmt.Errorf("session.Session.Start: %w", err)
	}
	if !admitted {
		return false, nil
	}

	s.sink = NewLogSink(s.cfg.RoomName, s.store, s.cfg.QueueCapacity)
	s.runCtx, s.cancel = context.WithCancel(context.Background())

	s.conv.OnTranscription(s.handleTranscription)
	s.conv.OnConversationItem(s.handleConversationItem)
	s.room.OnParticipantDisconnected(s.handleDeparture)

	if s.avatar != nil {
		if avatarErr := s.avatar.Start(ctx, s.room); avatarErr != nil {
			s.Shutdown("avatar start failed")
			return true, fmt.Errorf("session.Session.Start: avatar: %w", avatarErr)
		}
	}

	convCfg := realtime.ConversationConfig{
		Instructions:      s.cfg.Instructions,
		Voice:             s.cfg.Voice,
		Language:          s.cfg.Language,
		TranscriptionMode: "transcribe",
	}
	if startErr := s.conv.Start(ctx, convCfg); startErr != nil {
		s.Shutdown("conversation start failed")
		return true, fmt.Errorf("session.Session.Start: conversation: %w", startErr)
	}

	if s.cfg.Greeting != "" {
		if greetErr := s.generateReply(ctx, s.cfg.Greeting); greetErr != nil {
			s.Shutdown("greeting failed")
			return true, fmt.Errorf("session.Session.Start: greeting: %w", greetErr)
		}
	}

	s.state.Store(int32(StateActive))
	s.publish("session_active", nil)
	log.Info().Str("room", s.cfg.RoomName).Msg("session active")

	return true, nil
}

// Shutdown tears the session down exactly once. It is safe to invoke
// concurrently from any trigger (departure, startup error, explicit stop):
// the first caller runs the full sequence, later callers return
// immediately. Every step past the flag is best-effort — a failure in one
// step never prevents the next, because an unreleased resource wedges the
// room for all future dispatches.
func (s *Session) Shutdown(reason string) {
	if !s.shuttingDown.CompareAndSwap(false, true) {
		return
	}

	s.state.Store(int32(StateShuttingDown))
	log.Info().Str("room", s.cfg.RoomName).Str("reason", reason).Msg("session shutting down")
	s.publish("session_closing", map[string]string{"reason": reason})

	// Stop producing new work: event handlers observe the flag, tracked
	// tasks observe the cancelled context. Work already admitted into the
	// sink queue is still flushed below.
	if s.cancel != nil {
		s.cancel()
	}
	s.trackMu.Lock()
	s.draining = true
	s.trackMu.Unlock()
	s.wg.Wait()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer closeCancel()

	if s.avatar != nil {
		if err := s.avatar.Close(closeCtx); err != nil {
			log.Error().Err(err).Str("room", s.cfg.RoomName).Msg("avatar close failed")
		}
	}

	if err := s.conv.Close(closeCtx); err != nil {
		log.Error().Err(err).Str("room", s.cfg.RoomName).Msg("realtime session close failed")
	}

	if s.sink != nil {
		s.sink.Drain(s.cfg.DrainTimeout)
	}

	s.registry.Release(s.cfg.RoomName)

	if err := s.room.Disconnect(); err != nil {
		log.Error().Err(err).Str("room", s.cfg.RoomName).Msg("room disconnect failed")
	}

	s.state.Store(int32(StateClosed))
	s.publish("session_closed", nil)
	log.Info().Str("room", s.cfg.RoomName).Msg("session closed")
	close(s.done)
}

// Done is closed once the session has fully transitioned to Closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Sink exposes the session's log sink for inspection (drop counters).
// It is nil before admission.
func (s *Session) Sink() *LogSink {
	return s.sink
}

// LastEventAt returns the time of the most recent inbound realtime event,
// or the zero time if none has arrived.
func (s *Session) LastEventAt() time.Time {
	n := s.lastEventAt.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// probe checks the room's live participant list for an existing agent.
func (s *Session) probe(ctx context.Context) (bool, error) {
	participants, err := s.room.Participants(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range participants {
		if p.Kind == realtime.KindAgent {
			return true, nil
		}
	}
	return false, nil
}

// handleTranscription records one recognized user speech segment.
func (s *Session) handleTranscription(ev realtime.TranscriptionEvent) {
	if s.shuttingDown.Load() {
		return
	}
	s.lastEventAt.Store(time.Now().UnixNano())

	s.sink.Enqueue(domain.RoleUser, ev.Text, time.Now())
	s.track(func() {
		s.publish("transcription", map[string]string{"role": string(domain.RoleUser), "text": ev.Text})
	})
}

// handleConversationItem records one completed conversational turn.
func (s *Session) handleConversationItem(item realtime.ConversationItem) {
	if s.shuttingDown.Load() {
		return
	}
	s.lastEventAt.Store(time.Now().UnixNano())

	role := roleFor(item.Role)
	text := item.Text()

	s.sink.Enqueue(role, text, time.Now())
	s.track(func() {
		s.publish("conversation_item", map[string]string{"role": string(role), "text": text})
	})
}

// handleDeparture drives the departure shutdown trigger: once no
// standard-kind participant remains, the session ends.
func (s *Session) handleDeparture(p realtime.Participant) {
	if p.Kind == realtime.KindAgent {
		return
	}
	if s.shuttingDown.Load() {
		return
	}
	s.lastEventAt.Store(time.Now().UnixNano())

	participants, err := s.room.Participants(s.runCtx)
	if err != nil {
		log.Warn().Err(err).Str("room", s.cfg.RoomName).Msg("participant list unavailable after departure")
		return
	}
	for _, remaining := range participants {
		if remaining.Kind != realtime.KindAgent {
			return
		}
	}

	s.Shutdown("participant departed")
}

// generateReply asks the conversation for one agent turn, bounded by the
// process-wide gate.
func (s *Session) generateReply(ctx context.Context, instructions string) error {
	release, err := s.gate.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("session.Session.generateReply: %w", err)
	}
	defer release()

	if err := s.conv.GenerateReply(ctx, instructions); err != nil {
		return fmt.Errorf("session.Session.generateReply: %w", err)
	}
	return nil
}

// track runs fn as a tracked task so shutdown can wait for it. Tasks are
// short (a bounded publish) and observe the session context for
// cancellation. A task arriving once draining has begun is dropped: its
// event was already debounced or is about to be, and nothing may be
// published after the closed event.
func (s *Session) track(fn func()) {
	s.trackMu.Lock()
	if s.draining {
		s.trackMu.Unlock()
		return
	}
	s.wg.Add(1)
	s.trackMu.Unlock()

	go func() {
		defer s.wg.Done()
		if s.runCtx.Err() != nil {
			return
		}
		fn()
	}()
}

// publish sends a session event to the room channel, fire-and-forget.
func (s *Session) publish(evtType string, fields map[string]string) {
	if s.pubsub == nil {
		return
	}

	evt := map[string]string{
		"type": evtType,
		"room": s.cfg.RoomName,
	}
	for k, v := range fields {
		evt[k] = v
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if pubErr := s.pubsub.Publish(ctx, "room:"+s.cfg.RoomName, payload); pubErr != nil {
		log.Error().Err(pubErr).Str("room", s.cfg.RoomName).Msg("session event publish failed")
	}
}

func roleFor(role string) domain.Role {
	switch role {
	case "user":
		return domain.RoleUser
	case "system":
		return domain.RoleSystem
	default:
		return domain.RoleAgent
	}
}
