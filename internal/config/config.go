// ABOUTME: Configuration loading and parsing for the handoff relay and console
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file leaves a field unset.
const (
	DefaultBackendURL      = "http://localhost:5000"
	DefaultPushURL         = "ws://localhost:5000/socket"
	DefaultWebhookAddr     = ":8466"
	DefaultPollInterval    = 30 * time.Second
	DefaultDedupeTTL       = 60 * time.Second
	DefaultStatusInterval  = 3 * time.Second
	DefaultBackendTimeout  = 60 * time.Second
	DefaultJournalPath     = "handoff.db"
	DefaultFallbackMessage = "Maaf, terjadi kesalahan dalam memproses pertanyaan Anda. Silakan coba lagi nanti."

	DefaultSendEndpoint       = "http://localhost:3000/api/send"
	DefaultTransportStatusURL = "http://localhost:3000/api/status"
	DefaultSendTimeout        = 15 * time.Second
)

// Config represents the complete handoff configuration. Both binaries read
// the same file; the relay ignores console fields and vice versa.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Relay   RelayConfig   `yaml:"relay"`
	Console ConsoleConfig `yaml:"console"`
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig holds the reasoning backend endpoints shared by both processes.
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
	PushURL string `yaml:"push_url"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// RelayConfig holds the edge relay configuration.
type RelayConfig struct {
	WebhookAddr     string `yaml:"webhook_addr"`
	JournalPath     string `yaml:"journal_path"`
	FallbackMessage string `yaml:"fallback_message"`

	// SendEndpoints are tried in order until one accepts the message.
	SendEndpoints      []string `yaml:"send_endpoints"`
	TransportStatusURL string   `yaml:"transport_status_url"`

	DedupeTTL         time.Duration `yaml:"-"`
	DedupeTTLRaw      string        `yaml:"dedupe_ttl"`
	StatusInterval    time.Duration `yaml:"-"`
	StatusIntervalRaw string        `yaml:"status_interval"`
	SendTimeout       time.Duration `yaml:"-"`
	SendTimeoutRaw    string        `yaml:"send_timeout"`
}

// ConsoleConfig holds the operator console configuration.
type ConsoleConfig struct {
	PollInterval    time.Duration `yaml:"-"`
	PollIntervalRaw string        `yaml:"poll_interval"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded and
// duration strings are parsed into time.Duration values. A missing file is
// not an error: all defaults apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in any field the file left at its zero value.
func (c *Config) applyDefaults() {
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = DefaultBackendURL
	}
	if c.Backend.PushURL == "" {
		c.Backend.PushURL = DefaultPushURL
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = DefaultBackendTimeout
	}
	if c.Relay.WebhookAddr == "" {
		c.Relay.WebhookAddr = DefaultWebhookAddr
	}
	if c.Relay.JournalPath == "" {
		c.Relay.JournalPath = DefaultJournalPath
	}
	if c.Relay.FallbackMessage == "" {
		c.Relay.FallbackMessage = DefaultFallbackMessage
	}
	if c.Relay.DedupeTTL == 0 {
		c.Relay.DedupeTTL = DefaultDedupeTTL
	}
	if c.Relay.StatusInterval == 0 {
		c.Relay.StatusInterval = DefaultStatusInterval
	}
	if len(c.Relay.SendEndpoints) == 0 {
		c.Relay.SendEndpoints = []string{DefaultSendEndpoint}
	}
	if c.Relay.TransportStatusURL == "" {
		c.Relay.TransportStatusURL = DefaultTransportStatusURL
	}
	if c.Relay.SendTimeout == 0 {
		c.Relay.SendTimeout = DefaultSendTimeout
	}
	if c.Console.PollInterval == 0 {
		c.Console.PollInterval = DefaultPollInterval
	}
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Backend.PushURL == "" {
		return fmt.Errorf("backend.push_url is required")
	}
	if c.Relay.DedupeTTL < 0 {
		return fmt.Errorf("relay.dedupe_ttl must not be negative")
	}
	if c.Relay.StatusInterval < 0 {
		return fmt.Errorf("relay.status_interval must not be negative")
	}
	if c.Console.PollInterval < 0 {
		return fmt.Errorf("console.poll_interval must not be negative")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	fields := []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{cfg.Backend.TimeoutRaw, &cfg.Backend.Timeout, "backend.timeout"},
		{cfg.Relay.DedupeTTLRaw, &cfg.Relay.DedupeTTL, "relay.dedupe_ttl"},
		{cfg.Relay.StatusIntervalRaw, &cfg.Relay.StatusInterval, "relay.status_interval"},
		{cfg.Relay.SendTimeoutRaw, &cfg.Relay.SendTimeout, "relay.send_timeout"},
		{cfg.Console.PollIntervalRaw, &cfg.Console.PollInterval, "console.poll_interval"},
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
