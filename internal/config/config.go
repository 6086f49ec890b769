package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds client configuration loaded from the profile directory.
type Config struct {
	ServerURL      string        `yaml:"server_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
}

// UnmarshalYAML parses durations from strings like "30s", which yaml.v3
// does not do for time.Duration fields natively.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		ServerURL      string `yaml:"server_url"`
		RequestTimeout string `yaml:"request_timeout"`
		PollInterval   string `yaml:"poll_interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.ServerURL = raw.ServerURL

	if raw.RequestTimeout != "" {
		d, err := time.ParseDuration(raw.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout: %w", err)
		}
		c.RequestTimeout = d
	}
	if raw.PollInterval != "" {
		d, err := time.ParseDuration(raw.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid poll_interval: %w", err)
		}
		c.PollInterval = d
	}

	return nil
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		ServerURL:      "http://localhost:8080",
		RequestTimeout: 30 * time.Second,
		PollInterval:   10 * time.Second,
	}
}

// Load reads the YAML config file, falling back to defaults when the file
// is absent. If path is empty, uses ~/.traderdesk/config.yaml.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, ".traderdesk", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	// Zero values fall back to defaults
	defaults := Default()
	if cfg.ServerURL == "" {
		cfg.ServerURL = defaults.ServerURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}

	return cfg, nil
}
