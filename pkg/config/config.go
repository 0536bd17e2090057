// Package config provides configuration management for the Agent Arena.
// Loads settings from environment variables and .env files with validation and defaults.
// Supports a shared secret as well as per-user API keys for HMAC authentication.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RateLimitConfig holds per-action request budgets. Each value is the number
// of requests a single user may make within the action's window.
type RateLimitConfig struct {
	BattleSubmit  int // Battle submissions per minute
	Comment       int // Comments per minute
	Vote          int // Votes per minute
	PostPublish   int // Shared posts per hour
	Follow        int // Follow toggles per minute
	ProgramEnroll int // Program enrollments per minute
	DrillStart    int // Drill starts per minute
}

// Config holds all configuration settings for the arena service.
// Provides centralized configuration management with validation and helper methods.
type Config struct {
	// Server Configuration
	ArenaHost string // HTTP bind host address
	ArenaPort string // HTTP bind port
	GRPCAddr  string // gRPC scoring bridge address (empty disables it)

	// Authentication
	SharedSecretKey string            // Shared secret mapped to SharedKeyID
	SharedKeyID     string            // Key identifier that signs with the shared secret
	APIKeys         map[string]string // Per-user key identifiers and secrets parsed from API_KEYS

	// Database
	DatabasePath string // File path for the SQLite database

	// Security
	ClockSkewSeconds int // Maximum allowed time difference for HMAC timestamp validation

	// Logging
	LogLevel         string // Log level (debug, info, warn, error)
	LogToFile        bool   // Whether to also write JSON logs under logs/
	LogRetentionDays int    // Log files older than this are removed on shutdown

	// Infrastructure
	RedisURL          string // Redis URL for shared rate limiting (empty uses in-memory limits)
	NATSURL           string // NATS URL for domain events (empty disables publishing)
	NATSSubjectPrefix string // Subject prefix for published events

	// Rate Limiting
	RateLimits RateLimitConfig
}

// Load reads configuration from environment variables and .env file.
// Returns a validated configuration instance with all required settings.
// Automatically loads .env file if present, with environment variables taking precedence.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	apiKeys, err := parseAPIKeys(getEnv("API_KEYS", ""))
	if err != nil {
		return nil, err
	}

	config := &Config{
		ArenaHost: getEnv("ARENA_HOST", "0.0.0.0"),
		ArenaPort: getEnv("ARENA_PORT", "8080"),
		GRPCAddr:  getEnv("GRPC_ADDR", ""),

		SharedSecretKey: getEnv("SHARED_SECRET_KEY", ""),
		SharedKeyID:     getEnv("SHARED_KEY_ID", "arena-admin"),
		APIKeys:         apiKeys,

		DatabasePath: getEnv("ARENA_DB_PATH", "arena.db"),

		ClockSkewSeconds: getEnvAsInt("CLOCK_SKEW_SECONDS", 300),

		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogToFile:        getEnvAsBool("LOG_TO_FILE", false),
		LogRetentionDays: getEnvAsInt("LOG_RETENTION_DAYS", 7),

		RedisURL:          getEnv("REDIS_URL", ""),
		NATSURL:           getEnv("NATS_URL", ""),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "arena"),

		RateLimits: RateLimitConfig{
			BattleSubmit:  getEnvAsInt("RATE_LIMIT_BATTLE", 10),
			Comment:       getEnvAsInt("RATE_LIMIT_COMMENT", 20),
			Vote:          getEnvAsInt("RATE_LIMIT_VOTE", 60),
			PostPublish:   getEnvAsInt("RATE_LIMIT_POST", 10),
			Follow:        getEnvAsInt("RATE_LIMIT_FOLLOW", 30),
			ProgramEnroll: getEnvAsInt("RATE_LIMIT_ENROLL", 10),
			DrillStart:    getEnvAsInt("RATE_LIMIT_DRILL", 20),
		},
	}

	return config, config.validate()
}

// validate ensures all required configuration values are present and valid.
// At least one signing secret must be configured and every rate limit must be positive.
func (c *Config) validate() error {
	if c.SharedSecretKey == "" && len(c.APIKeys) == 0 {
		return fmt.Errorf("either SHARED_SECRET_KEY or API_KEYS must be set")
	}

	if c.ClockSkewSeconds <= 0 {
		return fmt.Errorf("CLOCK_SKEW_SECONDS must be positive")
	}

	limits := map[string]int{
		"RATE_LIMIT_BATTLE":  c.RateLimits.BattleSubmit,
		"RATE_LIMIT_COMMENT": c.RateLimits.Comment,
		"RATE_LIMIT_VOTE":    c.RateLimits.Vote,
		"RATE_LIMIT_POST":    c.RateLimits.PostPublish,
		"RATE_LIMIT_FOLLOW":  c.RateLimits.Follow,
		"RATE_LIMIT_ENROLL":  c.RateLimits.ProgramEnroll,
		"RATE_LIMIT_DRILL":   c.RateLimits.DrillStart,
	}
	for name, limit := range limits {
		if limit <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	return nil
}

// GetArenaAddr returns the complete address for the HTTP server.
func (c *Config) GetArenaAddr() string {
	return fmt.Sprintf("%s:%s", c.ArenaHost, c.ArenaPort)
}

// GetClockSkew returns the clock skew tolerance as a time.Duration.
func (c *Config) GetClockSkew() time.Duration {
	return time.Duration(c.ClockSkewSeconds) * time.Second
}

// GetSecrets returns the HMAC secrets map keyed by key identifier.
// Per-user API keys take precedence over the shared key if their IDs collide.
func (c *Config) GetSecrets() map[string]string {
	secrets := make(map[string]string, len(c.APIKeys)+1)

	if c.SharedSecretKey != "" {
		secrets[c.SharedKeyID] = c.SharedSecretKey
	}
	for keyID, secret := range c.APIKeys {
		secrets[keyID] = secret
	}

	return secrets
}

// parseAPIKeys parses a comma-separated list of keyId:secret pairs.
func parseAPIKeys(raw string) (map[string]string, error) {
	keys := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return keys, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		keyID, secret, ok := strings.Cut(pair, ":")
		keyID, secret = strings.TrimSpace(keyID), strings.TrimSpace(secret)
		if !ok || keyID == "" || secret == "" {
			return nil, fmt.Errorf("invalid API_KEYS entry %q: expected keyId:secret", pair)
		}
		keys[keyID] = secret
	}

	return keys, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as integer or returns a default.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as boolean or returns a default.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
