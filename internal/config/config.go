package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Service auth
	APIKey string

	// Backend connector
	LLMBaseURL         string
	LLMAPIKey          string
	LLMPreferredModels []string
	LLMRequestTimeout  time.Duration
	MaxAnswerTokens    int
	Temperature        float64

	// Answer engine
	HistoryWindow int

	// OCR sidecar (empty disables image uploads)
	OCRURL string

	// Upload limits
	MaxUploadBytes int64

	// Session registry
	SessionTTL time.Duration
}

func Load() Config {
	// A missing .env is fine; the environment wins either way.
	godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("API_KEY"),

		LLMBaseURL:         envOr("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMAPIKey:          os.Getenv("LLM_API_KEY"),
		LLMPreferredModels: envList("LLM_PREFERRED_MODELS", []string{"llama-3.1-8b-instant", "llama3-8b-8192", "llama3-70b-8192"}),
		LLMRequestTimeout:  envDuration("LLM_REQUEST_TIMEOUT", 30*time.Second),
		MaxAnswerTokens:    envInt("LLM_MAX_ANSWER_TOKENS", 500),
		Temperature:        envFloat("LLM_TEMPERATURE", 0.1),

		HistoryWindow: envInt("HISTORY_WINDOW", 4),

		OCRURL: os.Getenv("OCR_URL"),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		SessionTTL: envDuration("SESSION_TTL", 2*time.Hour),
	}

	if cfg.LLMRequestTimeout <= 0 {
		cfg.LLMRequestTimeout = 30 * time.Second
	}
	if cfg.MaxAnswerTokens <= 0 {
		cfg.MaxAnswerTokens = 500
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = 0.1
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 4
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}

	return cfg
}

// Validate checks the settings the service cannot run without. A missing or
// placeholder LLM_API_KEY is deliberately not fatal: the service still starts
// and the answer engine reports itself unready instead.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	if c.LLMBaseURL == "" {
		return fmt.Errorf("LLM_BASE_URL must not be empty")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
