package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	v1 "github.com/gosuda/voxroom/internal/api/v1"
	"github.com/gosuda/voxroom/internal/auth"
	"github.com/gosuda/voxroom/internal/config"
	"github.com/gosuda/voxroom/internal/dispatch"
	"github.com/gosuda/voxroom/internal/domain"
	"github.com/gosuda/voxroom/internal/realtime"
	"github.com/gosuda/voxroom/internal/realtime/livekit"
	"github.com/gosuda/voxroom/internal/realtime/openai"
	"github.com/gosuda/voxroom/internal/realtime/simli"
	"github.com/gosuda/voxroom/internal/server"
	"github.com/gosuda/voxroom/internal/session"
	"github.com/gosuda/voxroom/internal/store/file"
	"github.com/gosuda/voxroom/internal/store/memory"
	"github.com/gosuda/voxroom/internal/store/postgres"
	redisstore "github.com/gosuda/voxroom/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("VOXROOM_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("VOXROOM_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Select the storage backend.
	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Connect to Redis for live event fan-out, if configured.
	var pubsub *redisstore.PubSub
	if cfg.Redis.Addr != "" {
		pubsub, err = redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer pubsub.Close()
	} else {
		log.Info().Msg("redis not configured, live event stream disabled")
	}

	tokens := auth.NewTokenIssuer(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret, cfg.LiveKit.TokenTTL)

	rooms := livekit.NewService(livekit.Config{
		URL:       cfg.LiveKit.URL,
		APIKey:    cfg.LiveKit.APIKey,
		APISecret: cfg.LiveKit.APISecret,
	})

	// One reply gate for the whole process.
	gate := session.NewGate(cfg.Pipeline.GateCapacity)

	generator := openai.NewGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.SummaryModel)

	var publisher session.EventPublisher
	if pubsub != nil {
		publisher = pubsub
	}

	dispatcher := dispatch.NewDispatcher(
		dispatch.Config{
			QueueCapacity: cfg.Pipeline.QueueCapacity,
			DrainTimeout:  cfg.Pipeline.DrainTimeout,
			Summarize:     cfg.OpenAI.Summarize,
		},
		dispatch.NewProfiles(),
		store.Dispatches(),
		store.Transcripts(),
		&roomConnector{cfg: cfg, rooms: rooms, tokens: tokens},
		gate,
		generator,
		publisher,
	)

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, store, dispatcher, tokens, pubsub)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	// Stop every active session and wait for their transcripts to drain.
	dispatcher.Shutdown()

	log.Info().Msg("stopped")
	return nil
}

// buildStore picks the transcript backend from configuration. The file
// backend pairs JSONL transcripts with in-memory job records; postgres
// keeps both in the database.
func buildStore(ctx context.Context, cfg *config.Config) (v1.DataStore, func(), error) {
	if cfg.Pipeline.TranscriptBackend == "postgres" {
		if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
			return nil, nil, fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
		}
		pg, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}

	transcripts, err := file.NewTranscriptRepo(cfg.Pipeline.TranscriptDir)
	if err != nil {
		return nil, nil, err
	}
	store := &localStore{
		transcripts: transcripts,
		dispatches:  memory.NewDispatchRepo(),
	}
	return store, func() {}, nil
}

// localStore backs a single-node run: transcripts on disk, jobs in memory.
type localStore struct {
	transcripts *file.TranscriptRepo
	dispatches  *memory.DispatchRepo
}

func (s *localStore) Transcripts() domain.TranscriptRepository { return s.transcripts }
func (s *localStore) Dispatches() domain.DispatchRepository    { return s.dispatches }

// roomConnector builds the per-room collaborators for each dispatched
// session: the LiveKit room, the Realtime conversation, and the optional
// Simli avatar.
type roomConnector struct {
	cfg    *config.Config
	rooms  *livekit.Service
	tokens *auth.TokenIssuer
}

func (c *roomConnector) Connect(_ context.Context, roomName string) (dispatch.Collaborators, error) {
	room, err := c.rooms.Connect(roomName, "agent-"+roomName)
	if err != nil {
		return dispatch.Collaborators{}, err
	}

	conv := openai.NewConversation(openai.ConversationOptions{
		APIKey: c.cfg.OpenAI.APIKey,
		Model:  c.cfg.OpenAI.RealtimeModel,
	})

	var avatar realtime.Avatar
	if c.cfg.Avatar.APIKey != "" {
		avatar = simli.New(simli.Options{
			APIKey:    c.cfg.Avatar.APIKey,
			FaceID:    c.cfg.Avatar.FaceID,
			JoinToken: c.tokens.JoinToken,
		})
	}

	return dispatch.Collaborators{
		Room:         room,
		Conversation: conv,
		Avatar:       avatar,
	}, nil
}
