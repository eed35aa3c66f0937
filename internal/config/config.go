// Package config loads the engine's configuration surface from
// environment variables, following a godotenv-plus-getenv pattern.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/arcane-tourneys/botarena/internal/agent"
	"github.com/joho/godotenv"
)

// Config holds every setting the engine and its ambient services need.
type Config struct {
	Environment string
	Server      ServerConfig
	Tournament  TournamentConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	Submission  SubmissionConfig
	Loader      LoaderConfig
}

// ServerConfig contains the HTTP server's own settings: the submission
// API and dashboard share one listener.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// TournamentConfig is the full configuration surface governing
// match, scheduling, and event behaviour.
type TournamentConfig struct {
	MoveTimeout time.Duration

	TotalRoundsRPSLS    int
	TotalRoundsBlotto   int
	TotalRoundsPenalty  int
	TotalRoundsSecurity int

	BlottoTroops       int
	BlottoBattlefields int

	SecurityTargets         int
	SecurityAvailableTroops int

	MaxParallelMatches int
	MemoryLimitMB      int

	GroupCount             int
	FinalistsPerGroup      int
	TiebreakerGameType     agent.GameType
	MaxTiebreakerRematches int

	GameTypes       []agent.GameType
	SeriesGameTypes []agent.GameType
	SeriesLength    int
}

// DatabaseConfig contains the engine's two storage dependencies: Mongo
// for the durable series artefact and analytics log, Redis for the
// submission API's idempotence guard and rate limiter.
type DatabaseConfig struct {
	MongoDB MongoDBConfig
	Redis   RedisConfig
}

type MongoDBConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig contains the submission API's bearer-token settings.
type AuthConfig struct {
	JWTSecret     string
	JWTExpiration time.Duration
}

// SubmissionConfig carries the submission API's validation limits
// and template resource path.
type SubmissionConfig struct {
	MaxFileBytes    int64
	MaxTotalBytes   int64
	TemplatesDir    string
	RateLimitPerMin int
}

// LoaderConfig is the agent-loader collaborator's directory layout
// setting.
type LoaderConfig struct {
	BotsDirectory string
}

// Load reads configuration from the environment, optionally seeded by
// a .env file for local development.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnvOrDefault("PORT", "8080"),
			ReadTimeout:  getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationOrDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Tournament: TournamentConfig{
			MoveTimeout:             getDurationOrDefault("MOVE_TIMEOUT", time.Second),
			TotalRoundsRPSLS:        getIntOrDefault("TOTAL_ROUNDS_RPSLS", 50),
			TotalRoundsBlotto:       getIntOrDefault("TOTAL_ROUNDS_BLOTTO", 1),
			TotalRoundsPenalty:      getIntOrDefault("TOTAL_ROUNDS_PENALTY", 9),
			TotalRoundsSecurity:     getIntOrDefault("TOTAL_ROUNDS_SECURITY", 5),
			BlottoTroops:            getIntOrDefault("BLOTTO_TROOPS", 100),
			BlottoBattlefields:      getIntOrDefault("BLOTTO_BATTLEFIELDS", 5),
			SecurityTargets:         getIntOrDefault("SECURITY_TARGETS", 4),
			SecurityAvailableTroops: getIntOrDefault("SECURITY_AVAILABLE_TROOPS", 100),
			MaxParallelMatches:      getIntOrDefault("MAX_PARALLEL_MATCHES", 4),
			MemoryLimitMB:           getIntOrDefault("MEMORY_LIMIT_MB", 512),
			GroupCount:              getIntOrDefault("GROUP_COUNT", 10),
			FinalistsPerGroup:       getIntOrDefault("FINALISTS_PER_GROUP", 1),
			TiebreakerGameType:      agent.GameType(getEnvOrDefault("TIEBREAKER_GAME_TYPE", string(agent.Blotto))),
			MaxTiebreakerRematches:  getIntOrDefault("MAX_TIEBREAKER_REMATCHES", 3),
			GameTypes:               getGameTypesOrDefault("GAME_TYPES", []agent.GameType{agent.RPSLS, agent.Blotto, agent.Penalty, agent.Security}),
			SeriesGameTypes:         getGameTypesOrDefault("SERIES_GAME_TYPES", []agent.GameType{agent.RPSLS, agent.Blotto, agent.Penalty, agent.Security}),
			SeriesLength:            getIntOrDefault("SERIES_LENGTH", 1),
		},
		Database: DatabaseConfig{
			MongoDB: MongoDBConfig{
				URI:      getEnvOrDefault("MONGO_URI", ""),
				Database: getEnvOrDefault("MONGO_DATABASE", "botarena"),
			},
			Redis: RedisConfig{
				Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
				Password: getEnvOrDefault("REDIS_PASSWORD", ""),
				DB:       getIntOrDefault("REDIS_DB", 0),
			},
		},
		Auth: AuthConfig{
			JWTSecret:     getEnvOrDefault("JWT_SECRET", ""),
			JWTExpiration: getDurationOrDefault("JWT_EXPIRATION", time.Hour),
		},
		Submission: SubmissionConfig{
			MaxFileBytes:    getInt64OrDefault("SUBMISSION_MAX_FILE_BYTES", 50*1024),
			MaxTotalBytes:   getInt64OrDefault("SUBMISSION_MAX_TOTAL_BYTES", 500*1024),
			TemplatesDir:    getEnvOrDefault("SUBMISSION_TEMPLATES_DIR", "./templates"),
			RateLimitPerMin: getIntOrDefault("SUBMISSION_RATE_LIMIT_PER_MIN", 60),
		},
		Loader: LoaderConfig{
			BotsDirectory: getEnvOrDefault("BOTS_DIRECTORY", "./bots"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings the core treats as configuration
// faults: fatal at startup, before any
// match runs.
func (c *Config) Validate() error {
	t := c.Tournament
	if t.MoveTimeout <= 0 {
		return fmt.Errorf("MOVE_TIMEOUT must be positive")
	}
	if t.TotalRoundsRPSLS <= 0 || t.TotalRoundsBlotto <= 0 || t.TotalRoundsPenalty <= 0 || t.TotalRoundsSecurity <= 0 {
		return fmt.Errorf("all TOTAL_ROUNDS_* settings must be positive")
	}
	if t.MaxParallelMatches < 1 || t.MaxParallelMatches > 64 {
		return fmt.Errorf("MAX_PARALLEL_MATCHES must be in [1,64]")
	}
	if t.MemoryLimitMB <= 0 {
		return fmt.Errorf("MEMORY_LIMIT_MB must be positive")
	}
	if t.GroupCount < 1 {
		return fmt.Errorf("GROUP_COUNT must be >= 1")
	}
	if t.FinalistsPerGroup < 1 {
		return fmt.Errorf("FINALISTS_PER_GROUP must be >= 1")
	}
	if !t.TiebreakerGameType.Valid() {
		return fmt.Errorf("TIEBREAKER_GAME_TYPE %q is not a recognised game type", t.TiebreakerGameType)
	}
	if len(t.GameTypes) == 0 {
		return fmt.Errorf("GAME_TYPES must not be empty")
	}
	if c.Database.MongoDB.URI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getGameTypesOrDefault(key string, defaultValue []agent.GameType) []agent.GameType {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]agent.GameType, 0, len(parts))
	for _, p := range parts {
		gt := agent.GameType(strings.TrimSpace(p))
		if gt.Valid() {
			out = append(out, gt)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
