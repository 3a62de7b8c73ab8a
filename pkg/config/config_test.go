package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-sse-client/pkg/logging"
)

// isolate runs the test in an empty directory with no MCP_ variables set
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix) {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
	return dir
}

func TestDefaultsWithServerURLFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("MCP_SERVER_URL", "http://localhost:3000")

	cfg, err := NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.ServerURL)
	assert.Equal(t, "mcp-sse-client", cfg.ClientName)
	assert.Equal(t, "1.0.0", cfg.ClientVersion)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.HandshakeTimeout)
	assert.Equal(t, 3, cfg.MaxReconnectAttempts)
	assert.Equal(t, time.Second, cfg.ReconnectBaseDelay)
	assert.Equal(t, 10*time.Second, cfg.ReconnectMaxDelay)
	assert.Equal(t, time.Duration(0), cfg.AttemptResetAfter)
	assert.Equal(t, "node", cfg.UserAgent)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, logging.InfoLevel, cfg.Level())
}

func TestLogLevel(t *testing.T) {
	isolate(t)
	t.Setenv("MCP_SERVER_URL", "http://localhost:3000")
	t.Setenv("MCP_LOG_LEVEL", "WARN")

	cfg, err := NewLoader("").Load()
	require.NoError(t, err)
	assert.Equal(t, "WARN", cfg.LogLevel)
	assert.Equal(t, logging.WarnLevel, cfg.Level())

	// the debug switch wins over the configured level
	cfg, err = NewLoader("").Set(KeyDebug, true).Load()
	require.NoError(t, err)
	assert.Equal(t, logging.DebugLevel, cfg.Level())

	t.Setenv("MCP_LOG_LEVEL", "verbose")
	_, err = NewLoader("").Load()
	assert.ErrorContains(t, err, "log-level")
}

func TestMissingServerURLIsFatal(t *testing.T) {
	isolate(t)
	t.Setenv("MCP_SERVER_URL", "")

	_, err := NewLoader("").Load()
	assert.ErrorIs(t, err, ErrMissingServerURL)
}

func TestYAMLFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server-url: https://mcp.example.com/api
debug: true
client-name: notes-app
request-timeout: 5s
max-reconnect-attempts: 5
reconnect-max-delay: 20s
`), 0o644))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "https://mcp.example.com/api", cfg.ServerURL)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "notes-app", cfg.ClientName)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5, cfg.MaxReconnectAttempts)
	assert.Equal(t, 20*time.Second, cfg.ReconnectMaxDelay)
	// untouched keys keep their defaults
	assert.Equal(t, 30*time.Second, cfg.HandshakeTimeout)
}

func TestJSONFileDiscovered(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mcp-client.json"),
		[]byte(`{"server-url":"http://127.0.0.1:8080","log-format":"json"}`), 0o644))

	cfg, err := NewLoader("").Load()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerURL)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestPriority(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "client.yml")
	require.NoError(t, os.WriteFile(path, []byte("server-url: http://file:1\nclient-name: from-file\ndebug: false\n"), 0o644))

	t.Setenv("MCP_CLIENT_NAME", "from-env")
	t.Setenv("MCP_DEBUG", "true")

	cfg, err := NewLoader(path).
		Set(KeyServerURL, "http://flag:2").
		Load()
	require.NoError(t, err)

	assert.Equal(t, "http://flag:2", cfg.ServerURL)
	assert.Equal(t, "from-env", cfg.ClientName)
	assert.True(t, cfg.Debug)
}

func TestUnreadableFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server-url":`), 0o644))

	_, err := NewLoader(path).Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Default()
		c.ServerURL = "http://localhost:3000"
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad scheme", func(c *Config) { c.ServerURL = "ws://localhost" }},
		{"no host", func(c *Config) { c.ServerURL = "http://" }},
		{"zero request timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"negative handshake timeout", func(c *Config) { c.HandshakeTimeout = -time.Second }},
		{"negative attempts", func(c *Config) { c.MaxReconnectAttempts = -1 }},
		{"max below base", func(c *Config) { c.ReconnectMaxDelay = 500 * time.Millisecond }},
		{"negative reset", func(c *Config) { c.AttemptResetAfter = -time.Second }},
		{"log level", func(c *Config) { c.LogLevel = "fatal" }},
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
		{"exporter", func(c *Config) { c.TracingExporter = "jaeger" }},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
