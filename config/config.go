package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DevSigningSecret is the media signing secret used when none is configured.
// It is only accepted in development.
const DevSigningSecret = "change-me"

var ErrInsecureSigningSecret = errors.New("MEDIA_SIGNING_SECRET must be set outside development")

type Config struct {
	// Server configuration
	Environment string
	PublicURL   string
	Timezone    string
	Location    *time.Location

	// Redis configuration
	RedisURL string

	// PubNub configuration
	PubNubPublishKey      string
	PubNubSubscribeKey    string
	PubNubSecretKey       string
	PubNubScheduleChannel string

	// Media configuration
	MediaSigningSecret string
	SignedURLTTL       time.Duration
	MediaSweepSchedule string
	MaxUploadMB        int

	// Rate limits
	ResetRateLimit   int
	ResetRateWindow  time.Duration
	SignInRateLimit  int
	SignInRateWindow time.Duration

	// Paging
	DefaultPageSize int
	MaxPageSize     int

	// Monitoring
	EnableMetrics bool
}

// LoadConfig reads the process configuration once at startup. A .env file in
// the working directory is applied first when present; real environment
// variables always win.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Ignoring .env file: %v", err)
	}

	cfg := &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),
		PublicURL:   strings.TrimRight(getEnv("PUBLIC_URL", "http://127.0.0.1:8090"), "/"),
		Timezone:    getEnv("TIMEZONE", "Asia/Tokyo"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "localhost:6379"),

		// PubNub
		PubNubPublishKey:      getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey:    getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:       getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubScheduleChannel: getEnv("PUBNUB_SCHEDULE_CHANNEL", "schedules"),

		// Media
		MediaSigningSecret: getEnv("MEDIA_SIGNING_SECRET", DevSigningSecret),
		SignedURLTTL:       getEnvAsDuration("SIGNED_URL_TTL", "1h"),
		MediaSweepSchedule: getEnv("MEDIA_SWEEP_SCHEDULE", "0 30 3 * * *"),
		MaxUploadMB:        getEnvAsInt("MAX_UPLOAD_MB", 512),

		// Rate limits
		ResetRateLimit:   getEnvAsInt("RESET_RATE_LIMIT", 3),
		ResetRateWindow:  getEnvAsDuration("RESET_RATE_WINDOW", "15m"),
		SignInRateLimit:  getEnvAsInt("SIGNIN_RATE_LIMIT", 10),
		SignInRateWindow: getEnvAsDuration("SIGNIN_RATE_WINDOW", "1m"),

		// Paging
		DefaultPageSize: getEnvAsInt("DEFAULT_PAGE_SIZE", 10),
		MaxPageSize:     getEnvAsInt("MAX_PAGE_SIZE", 100),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}

	cfg.Location = loadLocation(cfg.Timezone)

	return cfg
}

// Validate rejects settings the server must not run with.
func (c *Config) Validate() error {
	if c.Environment == "development" {
		return nil
	}
	if c.MediaSigningSecret == "" || c.MediaSigningSecret == DevSigningSecret {
		return ErrInsecureSigningSecret
	}
	return nil
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("Unknown TIMEZONE %q, falling back to UTC", name)
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
