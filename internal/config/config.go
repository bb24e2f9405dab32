package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `validate:"required"`
	DatabaseURL string `validate:"required"`

	OpenAIKey       string `validate:"required"`
	OpenAIModel     string
	OpenAIMaxTokens int           `validate:"min=1,max=512"`
	OpenAITimeout   time.Duration `validate:"min=1s,max=2m"`

	GraphBaseURL string        `validate:"required,url"`
	GraphTimeout time.Duration `validate:"min=1s,max=1m"`
	GraphRPS     float64       `validate:"min=0.1"`

	DedupTTL       time.Duration `validate:"min=1m"`
	DedupPurge     time.Duration `validate:"min=10s"`
	WebhookTimeout time.Duration `validate:"min=1s,max=1m"`
}

// Load reads .env plus environment and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
		OpenAIMaxTokens: getEnvInt("OPENAI_MAX_TOKENS", 60),
		OpenAITimeout:   getEnvDuration("OPENAI_TIMEOUT", 15*time.Second),
		GraphBaseURL:    getEnv("GRAPH_BASE_URL", "https://graph.instagram.com/v21.0"),
		GraphTimeout:    getEnvDuration("GRAPH_TIMEOUT", 10*time.Second),
		GraphRPS:        getEnvFloat("GRAPH_RPS", 5),
		DedupTTL:        getEnvDuration("DEDUP_TTL", 24*time.Hour),
		DedupPurge:      getEnvDuration("DEDUP_PURGE_INTERVAL", 10*time.Minute),
		WebhookTimeout:  getEnvDuration("WEBHOOK_TIMEOUT", 25*time.Second),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
