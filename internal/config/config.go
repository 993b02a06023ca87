// ABOUTME: Configuration loading and parsing for status-gateway
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied when a field is left empty.
const (
	DefaultVersion              = "6.0.0"
	DefaultMetricsInterval      = 5 * time.Second
	DefaultSignalInterval       = 30 * time.Second
	DefaultSystemInterval       = 10 * time.Second
	DefaultReconnectInterval    = 3 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultDedupeWindow         = 5 * time.Minute
	DefaultMetricsPath          = "/metrics"
	DefaultNATSSubjectPrefix    = "status"
	DefaultRedisChannel         = "status-gateway.frames"
	DefaultRedisListMax         = 1000
)

// Config represents the complete status-gateway configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Tailscale  TailscaleConfig  `yaml:"tailscale" toml:"tailscale"`
	Database   DatabaseConfig   `yaml:"database" toml:"database"`
	Auth       AuthConfig       `yaml:"auth" toml:"auth"`
	Publisher  PublisherConfig  `yaml:"publisher" toml:"publisher"`
	Agents     AgentsConfig     `yaml:"agents" toml:"agents"`
	Subscriber SubscriberConfig `yaml:"subscriber" toml:"subscriber"`
	Mirrors    MirrorsConfig    `yaml:"mirrors" toml:"mirrors"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds server address configuration.
// GRPCAddr is optional; when empty the gRPC health service is not started.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr" toml:"grpc_addr"`
	Version  string `yaml:"version" toml:"version"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	Funnel    bool   `yaml:"funnel" toml:"funnel"` // public Funnel, implies HTTPS
}

// DatabaseConfig holds journal configuration. An empty path disables the journal.
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// AuthConfig holds authentication configuration. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
}

// PublisherConfig holds the publish timers.
type PublisherConfig struct {
	MetricsInterval time.Duration `yaml:"-" toml:"-"`
	SignalInterval  time.Duration `yaml:"-" toml:"-"`
	SystemInterval  time.Duration `yaml:"-" toml:"-"`
	DedupeWindow    time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	MetricsIntervalRaw string `yaml:"metrics_interval" toml:"metrics_interval"`
	SignalIntervalRaw  string `yaml:"signal_interval" toml:"signal_interval"`
	SystemIntervalRaw  string `yaml:"system_interval" toml:"system_interval"`
	DedupeWindowRaw    string `yaml:"dedupe_window" toml:"dedupe_window"`
}

// AgentsConfig holds the seeded roster. An empty roster means the built-in one.
type AgentsConfig struct {
	Roster []AgentEntry `yaml:"roster" toml:"roster"`
}

// AgentEntry is one configured roster record.
type AgentEntry struct {
	ID                string   `yaml:"id" toml:"id"`
	Name              string   `yaml:"name" toml:"name"`
	Status            string   `yaml:"status" toml:"status"`
	Capabilities      []string `yaml:"capabilities" toml:"capabilities"`
	Description       string   `yaml:"description" toml:"description"`
	Icon              string   `yaml:"icon" toml:"icon"`
	DailyEarnings     float64  `yaml:"daily_earnings" toml:"daily_earnings"`
	MonthlyProjection float64  `yaml:"monthly_projection" toml:"monthly_projection"`
}

// SubscriberConfig holds client-side settings used by status-watch.
type SubscriberConfig struct {
	URL                  string        `yaml:"url" toml:"url"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts" toml:"max_reconnect_attempts"`
	SubscribeUpdates     bool          `yaml:"subscribe_updates" toml:"subscribe_updates"`
	ReconnectInterval    time.Duration `yaml:"-" toml:"-"`

	ReconnectIntervalRaw string `yaml:"reconnect_interval" toml:"reconnect_interval"`
}

// MirrorsConfig holds the optional frame mirrors.
type MirrorsConfig struct {
	NATS  NATSConfig  `yaml:"nats" toml:"nats"`
	Redis RedisConfig `yaml:"redis" toml:"redis"`
}

// NATSConfig configures the NATS mirror
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled" toml:"enabled"`
	URL           string `yaml:"url" toml:"url"`
	SubjectPrefix string `yaml:"subject_prefix" toml:"subject_prefix"`
}

// RedisConfig configures the Redis mirror. ListKey is optional.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	URL     string `yaml:"url" toml:"url"`
	Channel string `yaml:"channel" toml:"channel"`
	ListKey string `yaml:"list_key" toml:"list_key"`
	ListMax int64  `yaml:"list_max" toml:"list_max"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// DefaultPath returns the path to the gateway config file.
// Priority: STATUS_GATEWAY_CONFIG env var > XDG_CONFIG_HOME/status-gateway/gateway.yaml
// > ~/.config/status-gateway/gateway.yaml
func DefaultPath() string {
	if envPath := os.Getenv("STATUS_GATEWAY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "status-gateway", "gateway.yaml")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}
	return Parse(data, format)
}

// Parse decodes raw config bytes in the given format ("yaml" or "toml"),
// then applies defaults and validates.
func Parse(data []byte, format string) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	switch format {
	case "toml":
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case "yaml", "":
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// ApplyDefaults fills zero values with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Version == "" {
		c.Server.Version = DefaultVersion
	}
	if c.Publisher.MetricsInterval == 0 {
		c.Publisher.MetricsInterval = DefaultMetricsInterval
	}
	if c.Publisher.SignalInterval == 0 {
		c.Publisher.SignalInterval = DefaultSignalInterval
	}
	if c.Publisher.SystemInterval == 0 {
		c.Publisher.SystemInterval = DefaultSystemInterval
	}
	if c.Publisher.DedupeWindow == 0 {
		c.Publisher.DedupeWindow = DefaultDedupeWindow
	}
	if c.Subscriber.ReconnectInterval == 0 {
		c.Subscriber.ReconnectInterval = DefaultReconnectInterval
	}
	if c.Subscriber.MaxReconnectAttempts == 0 {
		c.Subscriber.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Mirrors.NATS.SubjectPrefix == "" {
		c.Mirrors.NATS.SubjectPrefix = DefaultNATSSubjectPrefix
	}
	if c.Mirrors.Redis.Channel == "" {
		c.Mirrors.Redis.Channel = DefaultRedisChannel
	}
	if c.Mirrors.Redis.ListMax == 0 {
		c.Mirrors.Redis.ListMax = DefaultRedisListMax
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// Server address is required unless Tailscale is enabled
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Publisher.MetricsInterval < 0 || c.Publisher.SignalInterval < 0 || c.Publisher.SystemInterval < 0 {
		return fmt.Errorf("publisher intervals must be positive")
	}

	if c.Subscriber.MaxReconnectAttempts < 0 {
		return fmt.Errorf("subscriber.max_reconnect_attempts must not be negative")
	}
	if c.Subscriber.ReconnectInterval < 0 {
		return fmt.Errorf("subscriber.reconnect_interval must be positive")
	}

	if c.Mirrors.NATS.Enabled && c.Mirrors.NATS.URL == "" {
		return fmt.Errorf("mirrors.nats.url is required when the nats mirror is enabled")
	}
	if c.Mirrors.Redis.Enabled && c.Mirrors.Redis.URL == "" {
		return fmt.Errorf("mirrors.redis.url is required when the redis mirror is enabled")
	}

	seen := make(map[string]bool, len(c.Agents.Roster))
	for i, a := range c.Agents.Roster {
		if a.ID == "" {
			return fmt.Errorf("agents.roster[%d].id is required", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("agents.roster: duplicate id %q", a.ID)
		}
		seen[a.ID] = true
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"publisher.metrics_interval", cfg.Publisher.MetricsIntervalRaw, &cfg.Publisher.MetricsInterval},
		{"publisher.signal_interval", cfg.Publisher.SignalIntervalRaw, &cfg.Publisher.SignalInterval},
		{"publisher.system_interval", cfg.Publisher.SystemIntervalRaw, &cfg.Publisher.SystemInterval},
		{"publisher.dedupe_window", cfg.Publisher.DedupeWindowRaw, &cfg.Publisher.DedupeWindow},
		{"subscriber.reconnect_interval", cfg.Subscriber.ReconnectIntervalRaw, &cfg.Subscriber.ReconnectInterval},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
