// Package config loads the server configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level configuration structure
type Config struct {
	Listen  string        `yaml:"listen" toml:"listen"`
	DataDir string        `yaml:"data_dir" toml:"data_dir"`
	Session SessionConfig `yaml:"session" toml:"session"`
	Webhook WebhookConfig `yaml:"webhook" toml:"webhook"`
	Loading LoadingConfig `yaml:"loading" toml:"loading"`
	Staging StagingConfig `yaml:"staging" toml:"staging"`
}

type SessionConfig struct {
	Lifetime        Duration `yaml:"lifetime" toml:"lifetime"`
	CleanupInterval Duration `yaml:"cleanup_interval" toml:"cleanup_interval"`
}

// WebhookConfig is the post-deploy notification target. An empty URL turns
// notifications off.
type WebhookConfig struct {
	URL     string `yaml:"url" toml:"url"`
	Retries int    `yaml:"retries" toml:"retries"`
}

type LoadingConfig struct {
	// Concurrency bounds how many storages load their repositories at once.
	Concurrency int `yaml:"concurrency" toml:"concurrency"`
}

type StagingConfig struct {
	GitBinary string `yaml:"git_binary" toml:"git_binary"`
}

// Duration accepts Go duration strings such as "30m" or "24h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Listen:  ":6742",
		DataDir: "data",
		Session: SessionConfig{
			Lifetime:        Duration{24 * time.Hour},
			CleanupInterval: Duration{time.Hour},
		},
		Webhook: WebhookConfig{Retries: 3},
		Loading: LoadingConfig{Concurrency: 4},
		Staging: StagingConfig{GitBinary: "git"},
	}
}

// LoadConfig loads the configuration from a YAML or TOML file, chosen by
// extension. Values missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	expanded := expandEnv(string(data))

	config := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(expanded, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// expandEnv expands ${VAR} and $VAR references.
func expandEnv(content string) string {
	return os.Expand(content, os.Getenv)
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return fmt.Errorf("listen address must be specified")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir must be specified")
	}
	if c.Session.Lifetime.Duration <= 0 {
		return fmt.Errorf("session lifetime must be greater than 0")
	}
	if c.Session.CleanupInterval.Duration <= 0 {
		return fmt.Errorf("session cleanup_interval must be greater than 0")
	}
	if c.Loading.Concurrency < 0 {
		return fmt.Errorf("loading concurrency cannot be negative")
	}
	if c.Webhook.Retries < 0 {
		return fmt.Errorf("webhook retries cannot be negative")
	}
	if c.Webhook.URL != "" && !strings.HasPrefix(c.Webhook.URL, "http://") && !strings.HasPrefix(c.Webhook.URL, "https://") {
		return fmt.Errorf("webhook url must be http or https: %s", c.Webhook.URL)
	}
	return nil
}

// RegistryFile is where the storage registry lives.
func (c *Config) RegistryFile() string {
	return filepath.Join(c.DataDir, "storages.json")
}

// DatabaseFile is where users and tokens live.
func (c *Config) DatabaseFile() string {
	return filepath.Join(c.DataDir, "nitro.db")
}
