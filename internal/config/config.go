package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	Server     ServerConfig
	LiveKit    LiveKitConfig
	OpenAI     OpenAIConfig
	Avatar     AvatarConfig
	Pipeline   PipelineConfig
	SelfHosted bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings. An empty Addr disables the
// pub/sub event fan-out.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// LiveKitConfig holds the room deployment coordinates.
type LiveKitConfig struct {
	URL       string
	APIKey    string
	APISecret string //nolint:gosec // G117: LiveKit API credential config
	TokenTTL  time.Duration
}

// OpenAIConfig holds model provider settings.
type OpenAIConfig struct {
	APIKey        string //nolint:gosec // G117: API credential config
	RealtimeModel string
	SummaryModel  string
	Summarize     bool
}

// AvatarConfig holds the optional Simli avatar settings. An empty APIKey
// disables avatars.
type AvatarConfig struct {
	APIKey string //nolint:gosec // G117: API credential config
	FaceID string
}

// PipelineConfig tunes the session core.
type PipelineConfig struct {
	GateCapacity  int
	QueueCapacity int
	DrainTimeout  time.Duration
	// TranscriptBackend selects "file" or "postgres".
	TranscriptBackend string
	// TranscriptDir is the JSONL directory for the file backend.
	TranscriptDir string
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (API secrets, DB password) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("VOXROOM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("VOXROOM_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("VOXROOM_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("VOXROOM_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("VOXROOM_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	tokenTTL, err := getEnvDuration("VOXROOM_LIVEKIT_TOKEN_TTL", 6*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	gateCapacity, err := getEnvInt("VOXROOM_GATE_CAPACITY", 4)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	queueCapacity, err := getEnvInt("VOXROOM_QUEUE_CAPACITY", 256)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	drainTimeout, err := getEnvDuration("VOXROOM_DRAIN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	summarize, err := getEnvBool("VOXROOM_OPENAI_SUMMARIZE", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	selfHosted, err := getEnvBool("VOXROOM_SELF_HOSTED", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("VOXROOM_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("VOXROOM_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("VOXROOM_DB_USER", "voxroom"),
			Password: getEnv("VOXROOM_DB_PASSWORD", ""),
			DBName:   getEnv("VOXROOM_DB_NAME", "voxroom_dev"),
			SSLMode:  getEnv("VOXROOM_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("VOXROOM_REDIS_ADDR", ""),
			Password: getEnv("VOXROOM_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Server: ServerConfig{
			Addr:         getEnv("VOXROOM_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
		},
		LiveKit: LiveKitConfig{
			URL:       getEnv("VOXROOM_LIVEKIT_URL", "ws://localhost:7880"),
			APIKey:    getEnv("VOXROOM_LIVEKIT_API_KEY", ""),
			APISecret: getEnv("VOXROOM_LIVEKIT_API_SECRET", ""),
			TokenTTL:  tokenTTL,
		},
		OpenAI: OpenAIConfig{
			APIKey:        getEnv("VOXROOM_OPENAI_API_KEY", ""),
			RealtimeModel: getEnv("VOXROOM_OPENAI_REALTIME_MODEL", "gpt-4o-realtime-preview"),
			SummaryModel:  getEnv("VOXROOM_OPENAI_SUMMARY_MODEL", "gpt-4o-mini"),
			Summarize:     summarize,
		},
		Avatar: AvatarConfig{
			APIKey: getEnv("VOXROOM_SIMLI_API_KEY", ""),
			FaceID: getEnv("VOXROOM_SIMLI_FACE_ID", ""),
		},
		Pipeline: PipelineConfig{
			GateCapacity:      gateCapacity,
			QueueCapacity:     queueCapacity,
			DrainTimeout:      drainTimeout,
			TranscriptBackend: getEnv("VOXROOM_TRANSCRIPT_BACKEND", "file"),
			TranscriptDir:     getEnv("VOXROOM_TRANSCRIPT_DIR", "./transcripts"),
		},
		SelfHosted: selfHosted,
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.LiveKit.APIKey == "" || c.LiveKit.APISecret == "" {
		return errors.New("VOXROOM_LIVEKIT_API_KEY and VOXROOM_LIVEKIT_API_SECRET are required")
	}
	if c.OpenAI.APIKey == "" {
		return errors.New("VOXROOM_OPENAI_API_KEY is required")
	}

	switch c.Pipeline.TranscriptBackend {
	case "file", "postgres":
	default:
		return fmt.Errorf("VOXROOM_TRANSCRIPT_BACKEND must be 'file' or 'postgres', got %q", c.Pipeline.TranscriptBackend)
	}

	// DB SSL mode warning for non-self-hosted deployments.
	if c.Pipeline.TranscriptBackend == "postgres" && c.Database.SSLMode == "disable" && !c.SelfHosted {
		log.Warn().Msg("VOXROOM_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("VOXROOM_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("VOXROOM_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Pipeline.GateCapacity < 1 {
		return fmt.Errorf("VOXROOM_GATE_CAPACITY must be >= 1, got %d", c.Pipeline.GateCapacity)
	}
	if c.Pipeline.QueueCapacity < 1 {
		return fmt.Errorf("VOXROOM_QUEUE_CAPACITY must be >= 1, got %d", c.Pipeline.QueueCapacity)
	}
	if c.Pipeline.DrainTimeout <= 0 {
		return fmt.Errorf("VOXROOM_DRAIN_TIMEOUT must be positive, got %s", c.Pipeline.DrainTimeout)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("VOXROOM_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("VOXROOM_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
