package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Workflow     WorkflowConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// WorkflowConfig carries the tunable parameters of the report lifecycle.
// It is passed explicitly into each component so tests can override any
// value without touching process environment.
type WorkflowConfig struct {
	// SLAHours maps priority to the maximum allowed hours between
	// creation and resolution.
	SLAHours map[domain.Priority]int

	// HighConfidenceThreshold blocks creation when met; LowConfidence
	// matches are shown but never block.
	HighConfidenceThreshold float64
	LowConfidenceThreshold  float64

	// CandidateWindowDays bounds how far back duplicate candidates are
	// fetched; CandidateLimit caps how many.
	CandidateWindowDays int
	CandidateLimit      int

	// RatingWindowDays bounds how long after completion a report may be
	// rated by its submitter.
	RatingWindowDays int

	// TicketPrefix is the leading segment of human ticket IDs.
	TicketPrefix string

	// MaxTicketIDAttempts bounds sequence-collision retries during
	// ticket allocation.
	MaxTicketIDAttempts int
}

// DefaultWorkflowConfig returns the stock lifecycle parameters.
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		SLAHours: map[domain.Priority]int{
			domain.PriorityEmergency: 2,
			domain.PriorityHigh:      24,
			domain.PriorityMedium:    72,
			domain.PriorityLow:       168,
		},
		HighConfidenceThreshold: 0.70,
		LowConfidenceThreshold:  0.50,
		CandidateWindowDays:     30,
		CandidateLimit:          10,
		RatingWindowDays:        7,
		TicketPrefix:            "FMS",
		MaxTicketIDAttempts:     10,
	}
}

// SLAFor returns the SLA duration for a priority. Unknown priorities
// fall back to the low-priority window.
func (w WorkflowConfig) SLAFor(priority domain.Priority) time.Duration {
	hours, ok := w.SLAHours[priority]
	if !ok {
		hours = w.SLAHours[domain.PriorityLow]
	}
	return time.Duration(hours) * time.Hour
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	workflow := DefaultWorkflowConfig()
	workflow.SLAHours = map[domain.Priority]int{
		domain.PriorityEmergency: getEnvAsInt("SLA_EMERGENCY_HOURS", 2),
		domain.PriorityHigh:      getEnvAsInt("SLA_HIGH_HOURS", 24),
		domain.PriorityMedium:    getEnvAsInt("SLA_MEDIUM_HOURS", 72),
		domain.PriorityLow:       getEnvAsInt("SLA_LOW_HOURS", 168),
	}
	workflow.HighConfidenceThreshold = getEnvAsFloat("DUPLICATE_HIGH_THRESHOLD", 0.70)
	workflow.LowConfidenceThreshold = getEnvAsFloat("DUPLICATE_LOW_THRESHOLD", 0.50)
	workflow.CandidateWindowDays = getEnvAsInt("DUPLICATE_WINDOW_DAYS", 30)
	workflow.CandidateLimit = getEnvAsInt("DUPLICATE_CANDIDATE_LIMIT", 10)
	workflow.RatingWindowDays = getEnvAsInt("RATING_WINDOW_DAYS", 7)
	workflow.TicketPrefix = getEnv("TICKET_PREFIX", "FMS")
	workflow.MaxTicketIDAttempts = getEnvAsInt("TICKET_ID_MAX_ATTEMPTS", 10)

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "maintenance-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Workflow: workflow,
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
