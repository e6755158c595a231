package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, time.Hour, cfg.SignedURLTTL)
	assert.Equal(t, "schedules", cfg.PubNubScheduleChannel)
	assert.Equal(t, 10, cfg.DefaultPageSize)
	assert.Equal(t, 100, cfg.MaxPageSize)
	assert.Equal(t, 512, cfg.MaxUploadMB)
	assert.NotNil(t, cfg.Location)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("SIGNED_URL_TTL", "30m")
	t.Setenv("RESET_RATE_LIMIT", "5")
	t.Setenv("ENABLE_METRICS", "false")
	t.Setenv("PUBLIC_URL", "https://dash.example.com/")
	t.Setenv("TIMEZONE", "UTC")

	cfg := LoadConfig()

	assert.Equal(t, 30*time.Minute, cfg.SignedURLTTL)
	assert.Equal(t, 5, cfg.ResetRateLimit)
	assert.False(t, cfg.EnableMetrics)
	assert.Equal(t, "https://dash.example.com", cfg.PublicURL)
	assert.Equal(t, time.UTC, cfg.Location)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		secret      string
		wantErr     bool
	}{
		{"development accepts the default secret", "development", DevSigningSecret, false},
		{"production rejects the default secret", "production", DevSigningSecret, true},
		{"production rejects an empty secret", "production", "", true},
		{"production accepts a real secret", "production", "3f9a51c0d7e2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment, MediaSigningSecret: tt.secret}

			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInsecureSigningSecret)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_ProductionWithoutSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("MEDIA_SIGNING_SECRET", "")

	cfg := LoadConfig()

	assert.Equal(t, DevSigningSecret, cfg.MediaSigningSecret)
	assert.ErrorIs(t, cfg.Validate(), ErrInsecureSigningSecret)
}

func TestGetEnvHelpers_InvalidValues(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_BOOL", "maybe")
	t.Setenv("TEST_DURATION", "soon")

	assert.Equal(t, 7, getEnvAsInt("TEST_INT", 7))
	assert.True(t, getEnvAsBool("TEST_BOOL", true))
	assert.Equal(t, 2*time.Second, getEnvAsDuration("TEST_DURATION", "2s"))
}

func TestLoadLocation_Unknown(t *testing.T) {
	assert.Equal(t, time.UTC, loadLocation("Mars/Olympus"))
}
