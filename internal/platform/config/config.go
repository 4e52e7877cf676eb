package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	pstrings "pixkeys/pkg/platform/strings"
)

// Config is the process configuration assembled from the environment.
type Config struct {
	Server    Server
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Directory DirectoryConfig
	Claims    ClaimsConfig
	Codes     CodesConfig
	Keys      KeysConfig
	Workers   WorkersConfig
	Otel      OtelConfig
	LogLevel  string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	ShutdownGrace time.Duration
}

type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers            []string
	EventsTopic        string
	CallbacksTopic     string
	NotificationsTopic string
	ConsumerGroup      string
}

// DirectoryConfig describes how we reach the key directory.
type DirectoryConfig struct {
	BaseURL string
	// ParticipantISPB is our own institution code.
	ParticipantISPB  string
	Timeout          time.Duration
	RetryAttempts    int
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

type ClaimsConfig struct {
	OpenTimeout      time.Duration
	ResolutionPeriod time.Duration
	SettleTimeout    time.Duration
}

type CodesConfig struct {
	TTL            time.Duration
	ResendInterval time.Duration
}

type KeysConfig struct {
	PendingTTL time.Duration
}

type WorkersConfig struct {
	SweepInterval        time.Duration
	SweepBatch           int
	SweepConcurrency     int
	ReconcileInterval    time.Duration
	ReconcileGrace       time.Duration
	ReconcileMaxAttempts int
	OutboxPollInterval   time.Duration
	OutboxBatch          int
}

type OtelConfig struct {
	Enabled      bool
	Endpoint     string
	ServiceName  string
	SamplingRate float64
}

// FromEnv builds the config from environment variables so main stays lean.
// Empty infrastructure URLs select the in-memory development wiring.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:          envString("PIX_ADDR", ":8080"),
			JWTSigningKey: envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     envString("JWT_ISSUER", "pixkeys"),
			JWTAudience:   envString("JWT_AUDIENCE", "pixkeys-api"),
			ShutdownGrace: envDuration("SHUTDOWN_GRACE", 15*time.Second),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
			MaxIdleTime:  envDuration("DATABASE_MAX_IDLE_TIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:            envList("KAFKA_BROKERS"),
			EventsTopic:        envString("EVENTS_TOPIC", "pix.key.events"),
			CallbacksTopic:     envString("CALLBACKS_TOPIC", "pix.directory.callbacks"),
			NotificationsTopic: envString("NOTIFICATIONS_TOPIC", "pix.code.notifications"),
			ConsumerGroup:      envString("KAFKA_CONSUMER_GROUP", "pixkeys"),
		},
		Directory: DirectoryConfig{
			BaseURL:          os.Getenv("DIRECTORY_BASE_URL"),
			ParticipantISPB:  envString("PARTICIPANT_ISPB", "00000000"),
			Timeout:          envDuration("DIRECTORY_TIMEOUT", 5*time.Second),
			RetryAttempts:    envInt("DIRECTORY_RETRY_ATTEMPTS", 3),
			BreakerThreshold: envInt("DIRECTORY_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  envDuration("DIRECTORY_BREAKER_COOLDOWN", 30*time.Second),
		},
		Claims: ClaimsConfig{
			OpenTimeout:      envDuration("CLAIM_OPEN_TIMEOUT", 24*time.Hour),
			ResolutionPeriod: envDuration("CLAIM_RESOLUTION_PERIOD", 7*24*time.Hour),
			SettleTimeout:    envDuration("CLAIM_SETTLE_TIMEOUT", 7*24*time.Hour),
		},
		Codes: CodesConfig{
			TTL:            envDuration("CODE_TTL", 10*time.Minute),
			ResendInterval: envDuration("CODE_RESEND_INTERVAL", time.Minute),
		},
		Keys: KeysConfig{
			PendingTTL: envDuration("KEY_PENDING_TTL", 24*time.Hour),
		},
		Workers: WorkersConfig{
			SweepInterval:        envDuration("SWEEP_INTERVAL", 30*time.Second),
			SweepBatch:           envInt("SWEEP_BATCH", 100),
			SweepConcurrency:     envInt("SWEEP_CONCURRENCY", 8),
			ReconcileInterval:    envDuration("RECONCILE_INTERVAL", time.Minute),
			ReconcileGrace:       envDuration("RECONCILE_GRACE", 2*time.Minute),
			ReconcileMaxAttempts: envInt("RECONCILE_MAX_ATTEMPTS", 10),
			OutboxPollInterval:   envDuration("OUTBOX_POLL_INTERVAL", time.Second),
			OutboxBatch:          envInt("OUTBOX_BATCH", 100),
		},
		Otel: OtelConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			Endpoint:     envString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envString("OTEL_SERVICE_NAME", "pixkeys"),
			SamplingRate: envFloat("OTEL_SAMPLING_RATE", 1.0),
		},
		LogLevel: envString("LOG_LEVEL", "INFO"),
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if len(c.Directory.ParticipantISPB) != 8 {
		return fmt.Errorf("PARTICIPANT_ISPB must have 8 digits, got %q", c.Directory.ParticipantISPB)
	}
	if c.Claims.OpenTimeout <= 0 || c.Claims.ResolutionPeriod <= 0 || c.Claims.SettleTimeout <= 0 {
		return fmt.Errorf("claim timeouts must be positive")
	}
	if c.Codes.TTL <= 0 {
		return fmt.Errorf("CODE_TTL must be positive")
	}
	if c.Workers.SweepBatch <= 0 || c.Workers.OutboxBatch <= 0 {
		return fmt.Errorf("worker batch sizes must be positive")
	}
	if c.Otel.SamplingRate < 0 || c.Otel.SamplingRate > 1 {
		return fmt.Errorf("OTEL_SAMPLING_RATE must be within [0,1]")
	}
	return nil
}

// InMemory reports whether no durable backends are configured.
func (c Config) InMemory() bool {
	return c.Database.URL == ""
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envList(key string) []string {
	return pstrings.SplitList(os.Getenv(key), ",")
}
