package config

import (
	"flag"
	"io"
	"time"

	"github.com/dominikcirko/kanban-app/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      token validity, minutes
//	-r int      rate limit bucket capacity
//	-w int      rate limit refill window, seconds
//	-m int      max tracked rate limit clients
//	-k int      max cached task pages
//	-l string   log level
//
// Only these flags are looked at; anything else in args (for example -c)
// belongs to another layer and is filtered out first.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-t", "-r", "-w", "-m", "-k", "-l"})

	fs := flag.NewFlagSet("kanban", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tokenMinutes := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity (in minutes)")
	fs.IntVar(&config.RateLimitCapacity, "r", config.RateLimitCapacity, "rate limit capacity")
	windowSeconds := fs.Int("w", int(config.RateLimitWindow.Seconds()), "rate limit refill window (in seconds)")
	fs.IntVar(&config.RateLimitMaxClients, "m", config.RateLimitMaxClients, "max tracked rate limit clients")
	fs.Int64Var(&config.CacheMaxPages, "k", config.CacheMaxPages, "max cached task pages")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.TokenValidityDuration = time.Duration(*tokenMinutes) * time.Minute
	config.RateLimitWindow = time.Duration(*windowSeconds) * time.Second
	return nil
}
