package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string // default: 8080

	// Database
	PostgresDSN string

	// Cache / rate limiting backend
	RedisAddr string

	// Dispatcher
	SuggestTimeoutSec int   // per upstream call, default: 6
	CacheMaxEntries   int   // suggestion cache bound, default: 2048
	FetchConcurrency  int   // parallel providers per fan-out, default: 4
	WarmIntervalSec   int   // hot-keyword refresh period, 0 disables
	WarmTopKeywords   int   // keywords refreshed per cycle, default: 20

	// Observability
	OTELExporterType     string // "stdout" or "otlp"
	OTELExporterEndpoint string // default: "localhost:4317"

	// Rate limiting
	DefaultRateLimitRPM int64 // provider queries per minute, default: 600
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "stdout"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
	}

	var err error
	if cfg.SuggestTimeoutSec, err = getEnvInt("SUGGEST_TIMEOUT_SEC", 6); err != nil {
		return nil, err
	}
	if cfg.CacheMaxEntries, err = getEnvInt("CACHE_MAX_ENTRIES", 2048); err != nil {
		return nil, err
	}
	if cfg.FetchConcurrency, err = getEnvInt("FETCH_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.WarmIntervalSec, err = getEnvInt("WARM_INTERVAL_SEC", 0); err != nil {
		return nil, err
	}
	if cfg.WarmTopKeywords, err = getEnvInt("WARM_TOP_KEYWORDS", 20); err != nil {
		return nil, err
	}

	rpmStr := getEnv("DEFAULT_RATE_LIMIT_RPM", "600")
	rpm, err := strconv.ParseInt(rpmStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_RATE_LIMIT_RPM: %w", err)
	}
	cfg.DefaultRateLimitRPM = rpm

	// Validation
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required")
	}
	if cfg.SuggestTimeoutSec <= 0 {
		return nil, fmt.Errorf("SUGGEST_TIMEOUT_SEC must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
