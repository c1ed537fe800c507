package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application settings.
type Config struct {
	Port           string
	DSN            string
	RedisAddr      string
	ChatCacheLimit int64
	TokenTypeTTL   map[string]time.Duration
}

// Load reads .env (if present) and returns a populated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		return nil, fmt.Errorf("DB_DSN must be set")
	}

	cacheLimit := int64(50)
	if v := os.Getenv("CHAT_CACHE_LIMIT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cacheLimit = n
		}
	}

	ttl := map[string]time.Duration{
		"access":  15 * time.Minute,
		"refresh": 7 * 24 * time.Hour,
	}
	if v := os.Getenv("ACCESS_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			ttl["access"] = d
		}
	}
	if v := os.Getenv("REFRESH_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			ttl["refresh"] = d
		}
	}

	return &Config{
		Port:           port,
		DSN:            dsn,
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		ChatCacheLimit: cacheLimit,
		TokenTypeTTL:   ttl,
	}, nil
}
