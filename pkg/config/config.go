// Package config loads PromptHub's process-wide configuration from the
// environment, following the same getEnvOrDefault/Validate shape used by
// pkg/database.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/prompthub/prompthub/pkg/database"
	"github.com/prompthub/prompthub/pkg/models"
)

// Config aggregates every subsystem's runtime configuration.
type Config struct {
	HTTPAddr string
	Database database.Config

	CacheTTL           time.Duration
	MaxPageSize        int
	DefaultPageSize    int
	RequestTimeout     time.Duration
	CallLogQueueSize   int
	CallLogWorkerCount int

	// APIKeys maps a bearer token to the Caller it authenticates, parsed
	// from API_KEYS ("key:caller_id:project_id,key2:caller_id2:project_id2").
	APIKeys map[string]models.Caller
}

// Load reads a .env file if present (ignored if missing, matching the
// teacher's local-dev bootstrap) then assembles Config from the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		return Config{}, fmt.Errorf("database config: %w", err)
	}

	cacheTTL, err := time.ParseDuration(getEnvOrDefault("CACHE_TTL", "300s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}

	requestTimeout, err := time.ParseDuration(getEnvOrDefault("REQUEST_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}

	maxPageSize, err := strconv.Atoi(getEnvOrDefault("MAX_PAGE_SIZE", "100"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid MAX_PAGE_SIZE: %w", err)
	}
	defaultPageSize, err := strconv.Atoi(getEnvOrDefault("DEFAULT_PAGE_SIZE", "20"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DEFAULT_PAGE_SIZE: %w", err)
	}
	queueSize, err := strconv.Atoi(getEnvOrDefault("CALL_LOG_QUEUE_SIZE", "1000"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid CALL_LOG_QUEUE_SIZE: %w", err)
	}
	workerCount, err := strconv.Atoi(getEnvOrDefault("CALL_LOG_WORKERS", "2"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid CALL_LOG_WORKERS: %w", err)
	}

	cfg := Config{
		HTTPAddr:           getEnvOrDefault("HTTP_ADDR", ":8080"),
		Database:           dbCfg,
		CacheTTL:           cacheTTL,
		MaxPageSize:        maxPageSize,
		DefaultPageSize:    defaultPageSize,
		RequestTimeout:     requestTimeout,
		CallLogQueueSize:   queueSize,
		CallLogWorkerCount: workerCount,
		APIKeys:            parseAPIKeys(os.Getenv("API_KEYS")),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks cross-field invariants beyond what each sub-config already enforces.
func (c Config) Validate() error {
	if c.MaxPageSize < 1 {
		return fmt.Errorf("MAX_PAGE_SIZE must be at least 1")
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be between 1 and MAX_PAGE_SIZE")
	}
	if c.CallLogQueueSize < 1 {
		return fmt.Errorf("CALL_LOG_QUEUE_SIZE must be at least 1")
	}
	if c.CallLogWorkerCount < 1 {
		return fmt.Errorf("CALL_LOG_WORKERS must be at least 1")
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// parseAPIKeys parses "key:caller_id:project_id,key2:caller_id2:project_id2"
// into a lookup map. Malformed entries are skipped.
func parseAPIKeys(raw string) map[string]models.Caller {
	keys := make(map[string]models.Caller)
	if raw == "" {
		return keys
	}
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 || parts[0] == "" {
			continue
		}
		keys[parts[0]] = models.Caller{ID: parts[1], ProjectID: parts[2]}
	}
	return keys
}
