package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONTENT_PROVIDER", "mock")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3, cfg.Content.MaxRetries)
	assert.Equal(t, time.Second, cfg.Content.InitialWait)
	assert.Equal(t, "documents", cfg.MinIO.Bucket)
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Port:        "8080",
			DatabaseURL: "postgres://localhost/test",
			Content:     ContentConfig{Provider: "openai", OpenAIAPIKey: "key", MaxRetries: 3},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(c *Config) {}},
		{name: "missing port", mutate: func(c *Config) { c.Port = "" }, wantErr: true},
		{name: "missing openai key", mutate: func(c *Config) { c.Content.OpenAIAPIKey = "" }, wantErr: true},
		{name: "anthropic without key", mutate: func(c *Config) { c.Content.Provider = "anthropic" }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.Content.Provider = "watson" }, wantErr: true},
		{name: "mock in production", mutate: func(c *Config) {
			c.Content.Provider = "mock"
			c.Environment = "production"
		}, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.Content.MaxRetries = -1 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel(""))
}
