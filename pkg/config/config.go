package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// FileName is the optional config file read from the working directory.
const FileName = "trust-graph.toml"

// EnvPrefix prefixes environment overrides, e.g. TRUST_GRAPH_PORT=9090.
const EnvPrefix = "TRUST_GRAPH_"

// Config holds all configuration for the application
type Config struct {
	Port           int      `koanf:"port"`
	OpenBrowser    bool     `koanf:"open"`
	Watch          string   `koanf:"watch"`
	Seed           bool     `koanf:"seed"`
	Reference      string   `koanf:"reference"`
	Input          string   `koanf:"input"`
	Format         string   `koanf:"format"`
	Verbosity      string   `koanf:"verbosity"`
	VerboseCnt     int      `koanf:"verbose"`
	JSONLogs       bool     `koanf:"json_logs"`
	NotificationMs int      `koanf:"notification_ms"`
	CORSOrigins    []string `koanf:"cors_origins"`
	Physics        bool     `koanf:"physics"`
	BorderWidth    float64  `koanf:"border_width"`
	NodeSize       int      `koanf:"node_size"`
}

// NotificationLifetime returns how long a notification stays visible.
func (c *Config) NotificationLifetime() time.Duration {
	return time.Duration(c.NotificationMs) * time.Millisecond
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"port":            8080,
		"open":            false,
		"watch":           "",
		"seed":            true,
		"reference":       "A",
		"input":           "",
		"format":          "table",
		"verbosity":       "",
		"verbose":         0,
		"json_logs":       false,
		"notification_ms": 3000,
		"cors_origins":    []string{"*"},
		"physics":         true,
		"border_width":    2.0,
		"node_size":       16,
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFile(FileName, f)
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string, f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// The file is optional
	_ = k.Load(file.Provider(path), toml.Parser())

	// TRUST_GRAPH_NOTIFICATION_MS -> notification_ms
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if f != nil {
		// --json-logs -> json_logs
		provider := posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, interface{}) {
			return strings.ReplaceAll(fl.Name, "-", "_"), posflag.FlagVal(f, fl)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.NotificationMs <= 0 {
		return fmt.Errorf("notification_ms must be positive, got %d", c.NotificationMs)
	}
	switch c.Format {
	case "table", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", c.Format)
	}
	return nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
