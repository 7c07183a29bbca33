package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Empty(t, c.DatabaseDSN)
	assert.Equal(t, 2*time.Hour, c.TokenValidityDuration)
	assert.Equal(t, 100, c.RateLimitCapacity)
	assert.Equal(t, time.Minute, c.RateLimitWindow)
	assert.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.SecretKey = ""
	c.RateLimitCapacity = 0
	c.RateLimitWindow = -time.Second

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret key is required")
	assert.Contains(t, err.Error(), "rate limit capacity")
	assert.Contains(t, err.Error(), "rate limit window")
}

func TestInsecure(t *testing.T) {
	var c Config
	c.LoadDefaults()

	warnings := c.Insecure()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "signing key")
	assert.Contains(t, warnings[1], "in-memory store")

	c.SecretKey = "a-real-secret"
	c.DatabaseDSN = "postgres://db/kanban"
	assert.Empty(t, c.Insecure())
}

func TestParseEnv(t *testing.T) {
	t.Setenv("KANBAN_HTTP_ADDR", ":9090")
	t.Setenv("KANBAN_DATABASE_DSN", "postgres://u:p@localhost/kanban")
	t.Setenv("KANBAN_TOKEN_TTL", "30m")
	t.Setenv("KANBAN_RATE_CAPACITY", "5")
	t.Setenv("KANBAN_RATE_WINDOW", "10s")
	t.Setenv("KANBAN_CACHE_MAX_PAGES", "42")
	t.Setenv("KANBAN_WS_ORIGINS", "example.com, , *.example.org")

	var c Config
	c.LoadDefaults()
	require.NoError(t, parseEnv(&c))

	assert.Equal(t, ":9090", c.HTTPAddr)
	assert.Equal(t, "postgres://u:p@localhost/kanban", c.DatabaseDSN)
	assert.Equal(t, 30*time.Minute, c.TokenValidityDuration)
	assert.Equal(t, 5, c.RateLimitCapacity)
	assert.Equal(t, 10*time.Second, c.RateLimitWindow)
	assert.Equal(t, int64(42), c.CacheMaxPages)
	assert.Equal(t, []string{"example.com", "*.example.org"}, c.WSOriginPatterns)
}

func TestParseEnv_DotEnvFile(t *testing.T) {
	path := writeFile(t, ".env", "KANBAN_LOG_LEVEL=debug\nKANBAN_SECRET_KEY=from-file\n")
	old := envFile
	envFile = path
	t.Cleanup(func() {
		envFile = old
		os.Unsetenv("KANBAN_LOG_LEVEL")
	})
	t.Setenv("KANBAN_SECRET_KEY", "from-env")

	var c Config
	c.LoadDefaults()
	require.NoError(t, parseEnv(&c))

	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "from-env", c.SecretKey, "process env wins over .env")
}

func TestParseEnv_Invalid(t *testing.T) {
	t.Setenv("KANBAN_RATE_CAPACITY", "lots")
	t.Setenv("KANBAN_TOKEN_TTL", "soon")

	var c Config
	c.LoadDefaults()
	err := parseEnv(&c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KANBAN_RATE_CAPACITY")
	assert.Contains(t, err.Error(), "KANBAN_TOKEN_TTL")
}

func TestParseJson(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"http_addr": ":7000",
		"token_validity_duration": "45m",
		"rate_limit_window": 30000000000,
		"rate_limit_capacity": 7
	}`)

	var c Config
	c.LoadDefaults()
	require.NoError(t, parseJson(&c, []string{"-c", path}))

	assert.Equal(t, ":7000", c.HTTPAddr)
	assert.Equal(t, 45*time.Minute, c.TokenValidityDuration)
	assert.Equal(t, 30*time.Second, c.RateLimitWindow)
	assert.Equal(t, 7, c.RateLimitCapacity)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultSecretKey, c.SecretKey)
	assert.Equal(t, 10000, c.RateLimitMaxClients)
}

func TestParseJson_NoFileFlag(t *testing.T) {
	var c Config
	c.LoadDefaults()
	require.NoError(t, parseJson(&c, []string{"-a", ":1"}))
	assert.Equal(t, ":8080", c.HTTPAddr)
}

func TestParseJson_Errors(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Error(t, parseJson(&c, []string{"-c", filepath.Join(t.TempDir(), "missing.json")}))

	bad := writeFile(t, "bad.json", `{"token_validity_duration": true}`)
	assert.Error(t, parseJson(&c, []string{"-config", bad}))
}

func TestParseFlags(t *testing.T) {
	var c Config
	c.LoadDefaults()

	args := []string{"-c", "ignored.json", "-a", ":6000", "-t", "15", "-r", "3", "-w", "9", "-l", "warn"}
	require.NoError(t, parseFlags(&c, args))

	assert.Equal(t, ":6000", c.HTTPAddr)
	assert.Equal(t, 15*time.Minute, c.TokenValidityDuration)
	assert.Equal(t, 3, c.RateLimitCapacity)
	assert.Equal(t, 9*time.Second, c.RateLimitWindow)
	assert.Equal(t, "warn", c.LogLevel)
}

func TestParseFlags_Table(t *testing.T) {
	defaults := func(edit func(*Config)) *Config {
		c := &Config{}
		c.LoadDefaults()
		edit(c)
		return c
	}

	tests := []struct {
		name     string
		args     []string
		expected *Config
	}{
		{
			name:     "no flags",
			args:     nil,
			expected: defaults(func(*Config) {}),
		},
		{
			name: "storage and secret",
			args: []string{"-d", "postgres://db/kanban", "-s", "k3y"},
			expected: defaults(func(c *Config) {
				c.DatabaseDSN = "postgres://db/kanban"
				c.SecretKey = "k3y"
			}),
		},
		{
			name: "limits and cache",
			args: []string{"-m", "20", "-k", "64", "--unknown", "x"},
			expected: defaults(func(c *Config) {
				c.RateLimitMaxClients = 20
				c.CacheMaxPages = 64
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{}
			c.LoadDefaults()
			require.NoError(t, parseFlags(c, tt.args))
			assert.Empty(t, cmp.Diff(tt.expected, c))
		})
	}
}

func TestParseFlags_BadValue(t *testing.T) {
	var c Config
	c.LoadDefaults()
	assert.Error(t, parseFlags(&c, []string{"-r", "many"}))
}

func TestLoadConfig_Precedence(t *testing.T) {
	t.Setenv("KANBAN_HTTP_ADDR", ":1111")
	t.Setenv("KANBAN_RATE_CAPACITY", "11")
	path := writeFile(t, "config.json", `{"http_addr": ":2222", "rate_limit_max_clients": 50}`)

	cfg, err := LoadConfig([]string{"-c", path, "-a", ":3333"})
	require.NoError(t, err)

	assert.Equal(t, ":3333", cfg.HTTPAddr, "flags beat json and env")
	assert.Equal(t, 11, cfg.RateLimitCapacity)
	assert.Equal(t, 50, cfg.RateLimitMaxClients)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig([]string{"-s", ""})
	assert.Error(t, err)
}
