// Package config loads the client configuration from, in increasing priority,
// built-in defaults, an optional JSON or YAML file, MCP_ environment variables and
// explicit overrides such as command line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ajitpratap0/mcp-sse-client/pkg/logging"
)

// EnvPrefix prefixes every environment variable the loader reads
const EnvPrefix = "MCP_"

// Configuration keys
const (
	KeyServerURL            = "server-url"
	KeyDebug                = "debug"
	KeyLogLevel             = "log-level"
	KeyLogFormat            = "log-format"
	KeyClientName           = "client-name"
	KeyClientVersion        = "client-version"
	KeyRequestTimeout       = "request-timeout"
	KeyHandshakeTimeout     = "handshake-timeout"
	KeyMaxReconnectAttempts = "max-reconnect-attempts"
	KeyReconnectBaseDelay   = "reconnect-base-delay"
	KeyReconnectMaxDelay    = "reconnect-max-delay"
	KeyAttemptResetAfter    = "attempt-reset-after"
	KeyUserAgent            = "user-agent"
	KeyMaxEventSize         = "max-event-size"
	KeyMetricsEnabled       = "metrics-enabled"
	KeyMetricsAddr          = "metrics-addr"
	KeyTracingExporter      = "tracing-exporter"
	KeyTracingEndpoint      = "tracing-endpoint"
	KeyTracingInsecure      = "tracing-insecure"
)

// ErrMissingServerURL is returned when no server URL was configured
var ErrMissingServerURL = errors.New("server-url is required (set MCP_SERVER_URL)")

// Config is the complete client configuration
type Config struct {
	// Server
	ServerURL string `koanf:"server-url"`

	// Logging
	Debug     bool   `koanf:"debug"`
	LogLevel  string `koanf:"log-level"`
	LogFormat string `koanf:"log-format"`

	// Identity announced during initialize
	ClientName    string `koanf:"client-name"`
	ClientVersion string `koanf:"client-version"`

	// Deadlines
	RequestTimeout   time.Duration `koanf:"request-timeout"`
	HandshakeTimeout time.Duration `koanf:"handshake-timeout"`

	// Reconnection
	MaxReconnectAttempts int           `koanf:"max-reconnect-attempts"`
	ReconnectBaseDelay   time.Duration `koanf:"reconnect-base-delay"`
	ReconnectMaxDelay    time.Duration `koanf:"reconnect-max-delay"`
	AttemptResetAfter    time.Duration `koanf:"attempt-reset-after"`

	// Transport
	UserAgent    string `koanf:"user-agent"`
	MaxEventSize int    `koanf:"max-event-size"`

	// Observability
	MetricsEnabled  bool   `koanf:"metrics-enabled"`
	MetricsAddr     string `koanf:"metrics-addr"`
	TracingExporter string `koanf:"tracing-exporter"`
	TracingEndpoint string `koanf:"tracing-endpoint"`
	TracingInsecure bool   `koanf:"tracing-insecure"`
}

// Default returns the configuration used for every key that is not set elsewhere
func Default() Config {
	return Config{
		LogLevel:             "info",
		LogFormat:            "text",
		ClientName:           "mcp-sse-client",
		ClientVersion:        "1.0.0",
		RequestTimeout:       30 * time.Second,
		HandshakeTimeout:     30 * time.Second,
		MaxReconnectAttempts: 3,
		ReconnectBaseDelay:   time.Second,
		ReconnectMaxDelay:    10 * time.Second,
		UserAgent:            "node",
		TracingExporter:      "noop",
	}
}

// Loader assembles a Config from its sources
type Loader struct {
	k         *koanf.Koanf
	path      string
	overrides map[string]interface{}
}

// NewLoader creates a loader. An empty path searches the default locations.
func NewLoader(path string) *Loader {
	return &Loader{
		k:         koanf.New("."),
		path:      path,
		overrides: make(map[string]interface{}),
	}
}

// Set records an override that wins over every other source
func (l *Loader) Set(key string, value interface{}) *Loader {
	l.overrides[key] = value
	return l
}

// Load reads every source and returns the validated configuration
func (l *Loader) Load() (*Config, error) {
	path := l.path
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path == "" {
		path = FindConfigFile()
	}
	if path != "" {
		if err := l.loadFile(path); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := l.k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	for key, value := range l.overrides {
		if err := l.k.Set(key, value); err != nil {
			return nil, fmt.Errorf("error applying %s: %w", key, err)
		}
	}

	cfg := Default()
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Source returns the file the configuration was read from, if any
func (l *Loader) Source() string {
	if l.path != "" {
		return l.path
	}
	return FindConfigFile()
}

func (l *Loader) loadFile(path string) error {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		parser = json.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	default:
		if err := l.k.Load(file.Provider(path), yaml.Parser()); err == nil {
			return nil
		}
		parser = json.Parser()
	}

	if err := l.k.Load(file.Provider(path), parser); err != nil {
		return fmt.Errorf("config file must be JSON or YAML: %w", err)
	}
	return nil
}

// envKey maps MCP_SERVER_URL to server-url
func envKey(key, value string) (string, interface{}) {
	name := strings.TrimPrefix(key, EnvPrefix)
	if name == "CONFIG" {
		return "", nil
	}
	return strings.ToLower(strings.ReplaceAll(name, "_", "-")), value
}

// FindConfigFile looks for mcp-client.{yaml,yml,json} in the working directory and
// in $HOME/.config/mcp-sse-client, returning the first match
func FindConfigFile() string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "mcp-sse-client"))
	}

	for _, dir := range dirs {
		for _, name := range []string{"mcp-client.yaml", "mcp-client.yml", "mcp-client.json"} {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

// Level returns the configured log level. Debug forces debug level.
func (c *Config) Level() logging.Level {
	if c.Debug {
		return logging.DebugLevel
	}
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return logging.InfoLevel
	}
	return level
}

// Validate reports configuration errors that make a client unusable
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return ErrMissingServerURL
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server-url %q: %w", c.ServerURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server-url %q: expected an http or https URL", c.ServerURL)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request-timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("handshake-timeout must be positive, got %s", c.HandshakeTimeout)
	}
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max-reconnect-attempts must not be negative, got %d", c.MaxReconnectAttempts)
	}
	if c.ReconnectBaseDelay <= 0 || c.ReconnectMaxDelay < c.ReconnectBaseDelay {
		return fmt.Errorf("reconnect delays must satisfy 0 < base (%s) <= max (%s)", c.ReconnectBaseDelay, c.ReconnectMaxDelay)
	}
	if c.AttemptResetAfter < 0 {
		return fmt.Errorf("attempt-reset-after must not be negative, got %s", c.AttemptResetAfter)
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log-level must be debug, info, warn or error: %w", err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log-format must be text or json, got %q", c.LogFormat)
	}

	switch c.TracingExporter {
	case "noop", "otlp-grpc", "otlp-http":
	default:
		return fmt.Errorf("unsupported tracing-exporter %q", c.TracingExporter)
	}

	return nil
}
