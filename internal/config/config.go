package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Remote   RemoteConfig
	Sync     SyncConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	Path string
}

type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SyncConfig holds the cadences and retry policy of the background loops.
type SyncConfig struct {
	Interval          time.Duration
	MaxAttempts       int
	PollInterval      time.Duration
	ProbeInterval     time.Duration
	RequestRetention  time.Duration
	DecisionRetention time.Duration
}

func Load() (*Config, error) {
	// .env is optional; a packaged agent gets everything from the shell's
	// environment.
	_ = godotenv.Load()

	config := &Config{}

	appPort, err := strconv.Atoi(getEnv("AGENT_PORT", "8787"))
	if err != nil {
		return nil, fmt.Errorf("invalid AGENT_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("AGENT_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	config.Database = DatabaseConfig{
		Path: getEnv("DB_PATH", "leavesync.db"),
	}

	remoteTimeout, err := getEnvDuration("REMOTE_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	config.Remote = RemoteConfig{
		BaseURL: getEnv("REMOTE_BASE_URL", ""),
		Timeout: remoteTimeout,
	}

	syncInterval, err := getEnvDuration("SYNC_INTERVAL", "10s")
	if err != nil {
		return nil, err
	}
	pollInterval, err := getEnvDuration("POLL_INTERVAL", "60s")
	if err != nil {
		return nil, err
	}
	probeInterval, err := getEnvDuration("PROBE_INTERVAL", "15s")
	if err != nil {
		return nil, err
	}
	maxAttempts, err := strconv.Atoi(getEnv("SYNC_MAX_ATTEMPTS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_MAX_ATTEMPTS: %w", err)
	}
	requestRetention, err := getEnvDuration("REQUEST_RETENTION", "720h")
	if err != nil {
		return nil, err
	}
	decisionRetention, err := getEnvDuration("DECISION_RETENTION", "168h")
	if err != nil {
		return nil, err
	}

	config.Sync = SyncConfig{
		Interval:          syncInterval,
		MaxAttempts:       maxAttempts,
		PollInterval:      pollInterval,
		ProbeInterval:     probeInterval,
		RequestRetention:  requestRetention,
		DecisionRetention: decisionRetention,
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("REMOTE_BASE_URL is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.Sync.MaxAttempts < 1 {
		return fmt.Errorf("SYNC_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
