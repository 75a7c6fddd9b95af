// Package dispatch places one agent session into one room per job and
// tracks the job through its lifecycle.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/voxroom/internal/domain"
	"github.com/gosuda/voxroom/internal/realtime"
	"github.com/gosuda/voxroom/internal/session"
)

// ErrNoActiveSession is returned when a stop targets a room without a
// running session.
var ErrNoActiveSession = errors.New("dispatch: no active session for room") //nolint:gochecknoglobals // sentinel error

// Collaborators bundles the per-room realtime endpoints a session drives.
// Avatar may be nil.
type Collaborators struct {
	Room         realtime.Room
	Conversation realtime.Conversation
	Avatar       realtime.Avatar
}

// Connector establishes the realtime collaborators for one room.
type Connector interface {
	Connect(ctx context.Context, roomName string) (Collaborators, error)
}

// Config tunes the dispatcher.
type Config struct {
	QueueCapacity int
	DrainTimeout  time.Duration
	// Summarize enables a post-session transcript summary on the job.
	Summarize bool
}

// Dispatcher owns the admission registry and the reply gate shared by all
// sessions in the process, and runs one session per dispatched job.
type Dispatcher struct {
	cfg       Config
	profiles  *Profiles
	jobs      domain.DispatchRepository
	store     domain.TranscriptRepository
	connector Connector
	registry  *session.AdmissionRegistry
	gate      *session.Gate
	generator realtime.Generator     // optional
	pubsub    session.EventPublisher // optional

	mu     sync.Mutex
	active map[string]*session.Session // keyed by room name

	wg sync.WaitGroup
}

func NewDispatcher(
	cfg Config,
	profiles *Profiles,
	jobs domain.DispatchRepository,
	store domain.TranscriptRepository,
	connector Connector,
	gate *session.Gate,
	generator realtime.Generator,
	pubsub session.EventPublisher,
) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		profiles:  profiles,
		jobs:      jobs,
		store:     store,
		connector: connector,
		registry:  session.NewAdmissionRegistry(),
		gate:      gate,
		generator: generator,
		pubsub:    pubsub,
		active:    make(map[string]*session.Session),
	}
}

// Dispatch creates a job, connects the room, and starts the session. A
// denial by admission control completes the job as denied and is not an
// error. On success the job is active and the session runs until a
// shutdown trigger fires.
func (d *Dispatcher) Dispatch(ctx context.Context, roomName, agentType, language string) (*domain.DispatchJob, error) {
	if agentType == "" {
		agentType = DefaultAgentType
	}

	profile, err := d.profiles.Get(agentType)
	if err != nil {
		return nil, fmt.Errorf("dispatch.Dispatcher.Dispatch: %w", err)
	}
	if language == "" {
		language = profile.Language
	}

	job := &domain.DispatchJob{
		ID:        uuid.New(),
		RoomName:  roomName,
		AgentType: agentType,
		Language:  language,
		Status:    domain.DispatchStatusPending,
		CreatedAt: time.Now(),
	}
	if err := d.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("dispatch.Dispatcher.Dispatch: create job: %w", err)
	}

	collab, err := d.connector.Connect(ctx, roomName)
	if err != nil {
		d.completeJob(job, domain.DispatchStatusFailed, "connect failed: "+err.Error())
		return nil, fmt.Errorf("dispatch.Dispatcher.Dispatch: connect: %w", err)
	}

	vars := map[string]string{
		"room":     roomName,
		"language": language,
	}
	sessCfg := session.Config{
		RoomName:      roomName,
		Instructions:  Expand(profile.Instructions, vars),
		Greeting:      Expand(profile.Greeting, vars),
		Voice:         profile.Voice,
		Language:      language,
		QueueCapacity: d.cfg.QueueCapacity,
		DrainTimeout:  d.cfg.DrainTimeout,
	}

	sess := session.New(sessCfg, d.registry, d.gate, d.store, collab.Room, collab.Conversation, collab.Avatar, d.pubsub)

	admitted, err := sess.Start(ctx)
	if err != nil {
		// The session already ran its shutdown path and released the room.
		d.completeJob(job, domain.DispatchStatusFailed, err.Error())
		return nil, fmt.Errorf("dispatch.Dispatcher.Dispatch: %w", err)
	}
	if !admitted {
		// The session never touched its collaborators; the room connection
		// is ours to put back.
		if discErr := collab.Room.Disconnect(); discErr != nil {
			log.Warn().Err(discErr).Str("room", roomName).Msg("room disconnect after denial failed")
		}
		d.completeJob(job, domain.DispatchStatusDenied, "an agent is already serving this room")
		log.Info().Str("room", roomName).Str("job_id", job.ID.String()).Msg("dispatch denied")
		return job, nil
	}

	now := time.Now()
	job.Status = domain.DispatchStatusActive
	job.StartedAt = &now
	if err := d.jobs.UpdateStatus(ctx, job.ID, domain.DispatchStatusActive); err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("job status update failed")
	}

	d.mu.Lock()
	d.active[roomName] = sess
	d.mu.Unlock()

	d.wg.Add(1)
	go d.waitForCompletion(job, sess)

	log.Info().
		Str("room", roomName).
		Str("agent_type", agentType).
		Str("job_id", job.ID.String()).
		Msg("session dispatched")

	return job, nil
}

// Stop triggers shutdown for the room's active session. It returns once
// the trigger is delivered, not once the session has closed.
func (d *Dispatcher) Stop(roomName string) error {
	d.mu.Lock()
	sess, ok := d.active[roomName]
	d.mu.Unlock()

	if !ok {
		return fmt.Errorf("dispatch.Dispatcher.Stop(%q): %w", roomName, ErrNoActiveSession)
	}

	sess.Shutdown("stop requested")
	return nil
}

// ActiveRooms returns the rooms with a running session, sorted order not
// guaranteed.
func (d *Dispatcher) ActiveRooms() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	rooms := make([]string, 0, len(d.active))
	for room := range d.active {
		rooms = append(rooms, room)
	}
	return rooms
}

// Profiles exposes the agent type registry.
func (d *Dispatcher) Profiles() *Profiles {
	return d.profiles
}

// Shutdown stops every active session and waits for their jobs to
// complete.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	sessions := make([]*session.Session, 0, len(d.active))
	for _, sess := range d.active {
		sessions = append(sessions, sess)
	}
	d.mu.Unlock()

	for _, sess := range sessions {
		sess.Shutdown("dispatcher shutting down")
	}
	d.wg.Wait()
}

// waitForCompletion blocks on the session, then finalizes the job and
// optionally attaches a transcript summary.
func (d *Dispatcher) waitForCompletion(job *domain.DispatchJob, sess *session.Session) {
	defer d.wg.Done()

	<-sess.Done()

	d.mu.Lock()
	delete(d.active, job.RoomName)
	d.mu.Unlock()

	d.completeJob(job, domain.DispatchStatusCompleted, "")

	if sink := sess.Sink(); sink != nil && sink.Dropped() > 0 {
		log.Warn().
			Str("room", job.RoomName).
			Uint64("dropped", sink.Dropped()).
			Uint64("discarded", sink.Discarded()).
			Msg("session closed with transcript loss")
	}

	if d.cfg.Summarize && d.generator != nil {
		d.summarize(job)
	}
}

// completeJob records the terminal status with a background context so a
// cancelled request cannot leave the job dangling.
func (d *Dispatcher) completeJob(job *domain.DispatchJob, status domain.DispatchStatus, errMsg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.jobs.SetCompleted(ctx, job.ID, status, errMsg); err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("job completion update failed")
	}
	job.Status = status
	job.Error = errMsg
}

const summaryInstructions = "You summarize voice conversation transcripts. " +
	"Produce a short paragraph covering the topics discussed and how the session ended."

// summarize generates a post-session summary from the stored transcript.
// The generator call goes through the shared gate like any other model
// call.
func (d *Dispatcher) summarize(job *domain.DispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	entries, err := d.store.ListByRoom(ctx, job.RoomName, 200, 0)
	if err != nil || len(entries) == 0 {
		if err != nil {
			log.Warn().Err(err).Str("room", job.RoomName).Msg("transcript unavailable for summary")
		}
		return
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(string(e.Role))
		b.WriteString(": ")
		b.WriteString(e.Text)
		b.WriteString("\n")
	}

	release, err := d.gate.Acquire(ctx)
	if err != nil {
		log.Warn().Err(err).Str("room", job.RoomName).Msg("gate unavailable for summary")
		return
	}
	defer release()

	summary, err := d.generator.Generate(ctx, summaryInstructions, b.String())
	if err != nil {
		log.Warn().Err(err).Str("room", job.RoomName).Msg("summary generation failed")
		return
	}

	if err := d.jobs.SetSummary(ctx, job.ID, summary); err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("summary save failed")
		return
	}
	job.Summary = summary
}
