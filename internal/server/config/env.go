package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// envFile is loaded when present. Variables already set in the process
// environment win over the file.
var envFile = ".env"

// parseEnv overlays KANBAN_* environment variables onto config.
//
//	KANBAN_HTTP_ADDR          HTTP bind address
//	KANBAN_DATABASE_DSN       PostgreSQL DSN
//	KANBAN_SECRET_KEY         JWT HMAC secret
//	KANBAN_TOKEN_TTL          token validity ("2h")
//	KANBAN_RATE_CAPACITY      bucket capacity
//	KANBAN_RATE_WINDOW        full refill window ("1m")
//	KANBAN_RATE_MAX_CLIENTS   tracked client cap
//	KANBAN_CACHE_MAX_PAGES    cached page cap
//	KANBAN_LOG_LEVEL          debug|info|warn|error
//	KANBAN_WS_ORIGINS         comma separated websocket origin patterns
func parseEnv(config *Config) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	var errs []error

	setString(&config.HTTPAddr, "KANBAN_HTTP_ADDR")
	setString(&config.DatabaseDSN, "KANBAN_DATABASE_DSN")
	setString(&config.SecretKey, "KANBAN_SECRET_KEY")
	setString(&config.LogLevel, "KANBAN_LOG_LEVEL")

	errs = append(errs,
		setDuration(&config.TokenValidityDuration, "KANBAN_TOKEN_TTL"),
		setInt(&config.RateLimitCapacity, "KANBAN_RATE_CAPACITY"),
		setDuration(&config.RateLimitWindow, "KANBAN_RATE_WINDOW"),
		setInt(&config.RateLimitMaxClients, "KANBAN_RATE_MAX_CLIENTS"),
	)

	if v, ok := os.LookupEnv("KANBAN_CACHE_MAX_PAGES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("KANBAN_CACHE_MAX_PAGES: %w", err))
		} else {
			config.CacheMaxPages = n
		}
	}

	if v, ok := os.LookupEnv("KANBAN_WS_ORIGINS"); ok {
		config.WSOriginPatterns = splitCSV(v)
	}

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
