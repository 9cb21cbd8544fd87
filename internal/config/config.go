package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the service
type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	DatabaseURL  string
	MaxOpenConns int
	MaxIdleConns int

	RedisURL string

	KafkaBrokers []string
	EventTopic   string

	Casdoor CasdoorConfig
	MinIO   MinIOConfig
	Content ContentConfig

	UploadMaxBytes int64
}

type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string
	Bucket          string
}

// ContentConfig configures the generative content provider used for
// vision extraction and question generation.
type ContentConfig struct {
	Provider string // openai, anthropic, gemini, mock

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	AnthropicAPIKey string
	AnthropicModel  string

	GeminiAPIKey string
	GeminiModel  string

	Timeout     time.Duration
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	MaxTokens   int
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	// .env is optional; real deployments inject the environment directly
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:         v.GetString("PORT"),
		Environment:  v.GetString("ENVIRONMENT"),
		LogLevel:     parseLogLevel(v.GetString("LOG_LEVEL")),
		DatabaseURL:  v.GetString("DATABASE_URL"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		RedisURL:     v.GetString("REDIS_URL"),
		KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
		EventTopic:   v.GetString("EVENT_TOPIC"),
		Casdoor: CasdoorConfig{
			Endpoint:     v.GetString("CASDOOR_ENDPOINT"),
			ClientID:     v.GetString("CASDOOR_CLIENT_ID"),
			ClientSecret: v.GetString("CASDOOR_CLIENT_SECRET"),
			Cert:         v.GetString("CASDOOR_CERT"),
			Organization: v.GetString("CASDOOR_ORGANIZATION"),
			Application:  v.GetString("CASDOOR_APPLICATION"),
		},
		MinIO: MinIOConfig{
			Endpoint:        v.GetString("MINIO_ENDPOINT"),
			AccessKeyID:     v.GetString("MINIO_ACCESS_KEY"),
			SecretAccessKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:          v.GetBool("MINIO_USE_SSL"),
			Region:          v.GetString("MINIO_REGION"),
			Bucket:          v.GetString("MINIO_BUCKET"),
		},
		Content: ContentConfig{
			Provider:        strings.ToLower(v.GetString("CONTENT_PROVIDER")),
			OpenAIAPIKey:    v.GetString("OPENAI_API_KEY"),
			OpenAIModel:     v.GetString("OPENAI_MODEL"),
			OpenAIBaseURL:   v.GetString("OPENAI_BASE_URL"),
			AnthropicAPIKey: v.GetString("ANTHROPIC_API_KEY"),
			AnthropicModel:  v.GetString("ANTHROPIC_MODEL"),
			GeminiAPIKey:    v.GetString("GEMINI_API_KEY"),
			GeminiModel:     v.GetString("GEMINI_MODEL"),
			Timeout:         v.GetDuration("CONTENT_TIMEOUT"),
			MaxRetries:      v.GetInt("CONTENT_MAX_RETRIES"),
			InitialWait:     v.GetDuration("CONTENT_INITIAL_WAIT"),
			MaxWait:         v.GetDuration("CONTENT_MAX_WAIT"),
			MaxTokens:       v.GetInt("CONTENT_MAX_TOKENS"),
		},
		UploadMaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=exam_pipeline port=5432 sslmode=disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("EVENT_TOPIC", "exam-pipeline.events")
	v.SetDefault("MINIO_REGION", "us-east-1")
	v.SetDefault("MINIO_BUCKET", "documents")
	v.SetDefault("CONTENT_PROVIDER", "openai")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("ANTHROPIC_MODEL", "claude-haiku")
	v.SetDefault("GEMINI_MODEL", "gemini-flash")
	v.SetDefault("CONTENT_TIMEOUT", "90s")
	v.SetDefault("CONTENT_MAX_RETRIES", 3)
	v.SetDefault("CONTENT_INITIAL_WAIT", "1s")
	v.SetDefault("CONTENT_MAX_WAIT", "30s")
	v.SetDefault("CONTENT_MAX_TOKENS", 8192)
	v.SetDefault("UPLOAD_MAX_BYTES", 20<<20)
}

// Validate checks required settings for the selected environment
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Content.MaxRetries < 0 {
		return fmt.Errorf("CONTENT_MAX_RETRIES must not be negative")
	}

	switch c.Content.Provider {
	case "openai":
		if c.Content.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai content provider")
		}
	case "anthropic":
		if c.Content.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic content provider")
		}
	case "gemini":
		if c.Content.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini content provider")
		}
	case "mock":
		if c.Environment == "production" {
			return fmt.Errorf("mock content provider is not allowed in production")
		}
	default:
		return fmt.Errorf("unknown CONTENT_PROVIDER %q", c.Content.Provider)
	}

	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
