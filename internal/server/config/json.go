package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dominikcirko/kanban-app/internal/flagx"
)

// Duration accepts either a Go duration string ("90s", "2h") or an integer
// number of nanoseconds when decoded from JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return errors.New("invalid duration")
	}
}

// JsonConfig mirrors Config for decoding a JSON file. Missing keys leave the
// corresponding Config field untouched.
type JsonConfig struct {
	HTTPAddr              string   `json:"http_addr"`
	DatabaseDSN           string   `json:"database_dsn"`
	SecretKey             string   `json:"secret_key"`
	TokenValidityDuration Duration `json:"token_validity_duration"`
	RateLimitCapacity     int      `json:"rate_limit_capacity"`
	RateLimitWindow       Duration `json:"rate_limit_window"`
	RateLimitMaxClients   int      `json:"rate_limit_max_clients"`
	CacheMaxPages         int64    `json:"cache_max_pages"`
	LogLevel              string   `json:"log_level"`
	WSOriginPatterns      []string `json:"ws_origin_patterns"`
}

// parseJson loads the file named by -c / -config in args, if any, and copies
// every non-zero value into config.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	if c.HTTPAddr != "" {
		config.HTTPAddr = c.HTTPAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.TokenValidityDuration.Duration != 0 {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.RateLimitCapacity != 0 {
		config.RateLimitCapacity = c.RateLimitCapacity
	}
	if c.RateLimitWindow.Duration != 0 {
		config.RateLimitWindow = c.RateLimitWindow.Duration
	}
	if c.RateLimitMaxClients != 0 {
		config.RateLimitMaxClients = c.RateLimitMaxClients
	}
	if c.CacheMaxPages != 0 {
		config.CacheMaxPages = c.CacheMaxPages
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
	if len(c.WSOriginPatterns) > 0 {
		config.WSOriginPatterns = c.WSOriginPatterns
	}

	return nil
}
