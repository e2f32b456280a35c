package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/knowledgebrain/knowbrain/internal/flagx"
)

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "KNOWBRAIN_CONFIG"

// DefaultConfigPaths lists where a config file is searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"knowbrain.yaml",
	"knowbrain.yml",
}

// Config holds runtime settings for the KnowBrain client.
//
// Fields:
//   - ServerBaseURL: scheme://host:port of the backend REST API.
//   - WebSocketURL: full URL of the change-event endpoint; derived from
//     ServerBaseURL when left empty.
//   - RequestTimeout: per-request deadline for REST calls.
//   - PageSize: notes per page for listing and search.
//   - LogLevel: zerolog level name (debug, info, warn, error).
type Config struct {
	ServerBaseURL  string        `koanf:"server_base_url"`
	WebSocketURL   string        `koanf:"websocket_url"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	PageSize       int           `koanf:"page_size"`
	LogLevel       string        `koanf:"log_level"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.WebSocketURL = ""
	c.RequestTimeout = 15 * time.Second
	c.PageSize = 20
	c.LogLevel = "info"
}

// LoadConfig builds a Config from layered sources, later ones overriding
// earlier ones: defaults, then an optional YAML file, then KNOWBRAIN_*
// environment variables, then command-line flags.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{}
	defaults.LoadDefaults()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// KNOWBRAIN_SERVER_BASE_URL -> server_base_url, etc.
	if err := k.Load(env.Provider("KNOWBRAIN_", ".", func(key string) string {
		return strings.ToLower(strings.TrimPrefix(key, "KNOWBRAIN_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	parseFlags(cfg)

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile resolves the config file path: explicit -c/-config flag,
// then the KNOWBRAIN_CONFIG variable, then the default search paths.
func findConfigFile() string {
	if path := flagx.ConfigFileFlag(); path != "" {
		return path
	}
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// normalize validates the loaded values and derives WebSocketURL from
// ServerBaseURL when it was not set explicitly.
func (c *Config) normalize() error {
	c.ServerBaseURL = strings.TrimRight(c.ServerBaseURL, "/")

	u, err := url.Parse(c.ServerBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid server base url %q", c.ServerBaseURL)
	}

	if c.WebSocketURL == "" {
		ws := *u
		switch u.Scheme {
		case "https":
			ws.Scheme = "wss"
		default:
			ws.Scheme = "ws"
		}
		ws.Path = "/ws/notes"
		c.WebSocketURL = ws.String()
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %v", c.RequestTimeout)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	return nil
}
