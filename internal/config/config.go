package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port             int
	NatsURL          string
	NatsToken        string
	DatabaseURL      string
	LogLevel         string
	GeminiAPIKey     string
	GeminiModel      string
	PromptDir        string
	RepliesFile      string
	MobileImagePath  string
	LookupCacheTTL   time.Duration
	TakeoverDuration time.Duration
}

func Load() Config {
	return Config{
		Port:             envInt("VALENTINA_PORT", 8760),
		NatsURL:          envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:        envStr("NATS_TOKEN", ""),
		DatabaseURL:      envStr("DATABASE_URL", ""),
		LogLevel:         envStr("LOG_LEVEL", "info"),
		GeminiAPIKey:     envStr("GEMINI_API_KEY", ""),
		GeminiModel:      envStr("VALENTINA_MODEL", "gemini-2.0-flash"),
		PromptDir:        envStr("VALENTINA_PROMPT_DIR", "."),
		RepliesFile:      envStr("VALENTINA_REPLIES_FILE", ""),
		MobileImagePath:  envStr("VALENTINA_MOBILE_IMAGE", "medias/01.jpg"),
		LookupCacheTTL:   envDuration("VALENTINA_LOOKUP_TTL", 24*time.Hour),
		TakeoverDuration: envDuration("VALENTINA_TAKEOVER_DURATION", 60*time.Minute),
	}
}

func envStr(key, fallback string) string {
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

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
