// Package config handles configuration for the kanban server: defaults,
// environment (including an optional .env file), a JSON overlay and finally
// command-line flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds runtime settings for the kanban server.
//
// Fields:
//   - HTTPAddr: bind address for the HTTP API.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory store.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use the default in prod.
//   - TokenValidityDuration: bearer token lifetime.
//   - RateLimitCapacity / RateLimitWindow: bucket size and the time it takes
//     to refill it completely.
//   - RateLimitMaxClients: cap on tracked client buckets.
//   - CacheMaxPages: cap on cached task pages.
//   - WSOriginPatterns: host patterns allowed to open cross-origin websockets.
type Config struct {
	HTTPAddr              string
	DatabaseDSN           string
	SecretKey             string
	TokenValidityDuration time.Duration
	RateLimitCapacity     int
	RateLimitWindow       time.Duration
	RateLimitMaxClients   int
	CacheMaxPages         int64
	LogLevel              string
	WSOriginPatterns      []string
}

// DefaultSecretKey is only good for local development.
const DefaultSecretKey = "bQeThWmZq4t7w!z$C&F)J@NcRfUjXn2r5u8x/A?D*G-KaPdSgVkYp3s6v9y$B&E)"

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.DatabaseDSN = ""
	c.SecretKey = DefaultSecretKey
	c.TokenValidityDuration = 2 * time.Hour
	c.RateLimitCapacity = 100
	c.RateLimitWindow = time.Minute
	c.RateLimitMaxClients = 10000
	c.CacheMaxPages = 1000
	c.LogLevel = "info"
	c.WSOriginPatterns = []string{"localhost:3000", "localhost:8080"}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if c.TokenValidityDuration <= 0 {
		errs = append(errs, fmt.Errorf("token validity must be positive, got %v", c.TokenValidityDuration))
	}
	if c.RateLimitCapacity <= 0 {
		errs = append(errs, fmt.Errorf("rate limit capacity must be positive, got %d", c.RateLimitCapacity))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, fmt.Errorf("rate limit window must be positive, got %v", c.RateLimitWindow))
	}
	if c.RateLimitMaxClients <= 0 {
		errs = append(errs, fmt.Errorf("rate limit max clients must be positive, got %d", c.RateLimitMaxClients))
	}
	if c.CacheMaxPages <= 0 {
		errs = append(errs, fmt.Errorf("cache max pages must be positive, got %d", c.CacheMaxPages))
	}
	return errors.Join(errs...)
}

// Insecure lists settings that are fine for local development but must not
// reach production. The server still starts; callers log these.
func (c *Config) Insecure() []string {
	var warnings []string
	if c.SecretKey == DefaultSecretKey {
		warnings = append(warnings, "using the built-in development signing key, set KANBAN_SECRET_KEY or -s")
	}
	if c.DatabaseDSN == "" {
		warnings = append(warnings, "no database DSN configured, using in-memory store")
	}
	return warnings
}

// LoadConfig builds a Config from defaults, then the environment, then an
// optional JSON file (-c / -config) and finally flags found in args
// (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}
	if err := parseJson(cfg, args); err != nil {
		return nil, fmt.Errorf("json config: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
