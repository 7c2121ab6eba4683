// Package config handles configuration for replay-runner.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the workspace configuration (config.yaml).
// Zero values fall back to the defaults below.
type Config struct {
	// Device endpoint, produced by the external port bridge.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Connection settings
	ConnectAttempts     int `yaml:"connectAttempts"`     // Liveness probes before giving up
	ConnectRetryDelayMs int `yaml:"connectRetryDelayMs"` // Delay between probes
	HTTPTimeoutMs       int `yaml:"httpTimeoutMs"`       // Per-request timeout
	PingTimeoutMs       int `yaml:"pingTimeoutMs"`       // Liveness probe timeout

	// Diagnostics
	LogPath string `yaml:"logPath"`
	Verbose bool   `yaml:"verbose"`
}

// Defaults.
const (
	DefaultHost                = "127.0.0.1"
	DefaultPort                = 8080
	DefaultConnectAttempts     = 3
	DefaultConnectRetryDelayMs = 1000
	DefaultHTTPTimeoutMs       = 10000
	DefaultPingTimeoutMs       = 3000
)

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ConnectAttempts == 0 {
		c.ConnectAttempts = DefaultConnectAttempts
	}
	if c.ConnectRetryDelayMs == 0 {
		c.ConnectRetryDelayMs = DefaultConnectRetryDelayMs
	}
	if c.HTTPTimeoutMs == 0 {
		c.HTTPTimeoutMs = DefaultHTTPTimeoutMs
	}
	if c.PingTimeoutMs == 0 {
		c.PingTimeoutMs = DefaultPingTimeoutMs
	}
}

// ConnectRetryDelay returns the probe delay as a duration.
func (c *Config) ConnectRetryDelay() time.Duration {
	return time.Duration(c.ConnectRetryDelayMs) * time.Millisecond
}

// HTTPTimeout returns the per-request timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutMs) * time.Millisecond
}

// PingTimeout returns the liveness probe timeout as a duration.
func (c *Config) PingTimeout() time.Duration {
	return time.Duration(c.PingTimeoutMs) * time.Millisecond
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	configPath = filepath.Join(dir, "config.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, return defaults.
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg, nil
}
