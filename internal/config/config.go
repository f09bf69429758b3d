package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"coursemill/internal/logging"
	"coursemill/internal/moodle"
	"coursemill/internal/validation"
	"coursemill/pkg/sanitize"
)

const APP_NAME = "coursemill" // application name used for config directory

// Config holds the connection settings and content ceilings for one server
// process. It is resolved once at startup: file first, environment on top,
// then validated. Nothing re-reads it mid-run.
type Config struct {
	// BaseURL is the site root, without the web service path.
	BaseURL string `yaml:"base_url" validate:"required,url"`
	// Token authenticates read operations.
	Token string `yaml:"token" validate:"required"`
	// AdminToken, when set, is used for operations that write to the site.
	AdminToken string `yaml:"admin_token"`
	// Username is stamped as the author on uploaded files.
	Username string `yaml:"username"`
	// ReadOnly hides every tool that would change the site.
	ReadOnly bool `yaml:"read_only"`

	TimeoutSeconds int `yaml:"timeout_seconds" validate:"gte=0,lte=600"`

	// Content ceilings. Zero selects the built-in defaults.
	MaxPayloadBytes int `yaml:"max_payload_bytes" validate:"gte=0"`
	MaxFieldBytes   int `yaml:"max_field_bytes" validate:"gte=0"`

	Version  string `yaml:"version"`   // Track config version
	InitTime int64  `yaml:"init_time"` // Unix timestamp of first setup
}

// ConfigPath returns the standard config file path for the current platform
func ConfigPath() (string, error) {
	configDir := filepath.Join(xdg.ConfigHome, APP_NAME)
	configPath := filepath.Join(configDir, "config.yaml")

	logging.Debug("Determined config paths", "path", configPath)
	return configPath, nil
}

// Load resolves the effective configuration: defaults, then the standard
// config file when one exists, then environment overrides. A missing file is
// not an error since a fully env-driven setup is the common deployment.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath, exists := FindConfigFile()
	if exists {
		logging.Debug("Loading config from", "path", configPath)
		loaded, err := LoadFrom(configPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	cfg.applyEnv()
	return &cfg, nil
}

// LoadFrom loads config from a specific path
func LoadFrom(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// FindConfigFile returns the path to an existing config file, and whether it exists.
func FindConfigFile() (string, bool) {
	primary, err := ConfigPath()
	if err != nil {
		logging.Error("Failed to get config path", "error", err)
		return "", false
	}

	if _, err := os.Stat(primary); err == nil {
		logging.Debug("Config found at primary path", "path", primary)
		return primary, true
	}

	// Return primary path for new config
	return primary, false
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		TimeoutSeconds: 30,
		Version:        "1.0",
		InitTime:       0, // Will be set during first save
	}
}

// applyEnv lets the environment override the file. Tokens in particular
// usually arrive this way rather than sitting on disk.
func (c *Config) applyEnv() {
	if v := os.Getenv("MOODLE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("MOODLE_TOKEN"); v != "" {
		c.Token = v
	}
	if v := os.Getenv("MOODLE_ADMIN_TOKEN"); v != "" {
		c.AdminToken = v
	}
	if v := os.Getenv("MOODLE_USERNAME"); v != "" {
		c.Username = v
	}
	if v := os.Getenv("COURSEMILL_READ_ONLY"); v == "1" || v == "true" {
		c.ReadOnly = true
	}
	c.MaxPayloadBytes = envInt("COURSEMILL_MAX_PAYLOAD", c.MaxPayloadBytes)
	c.MaxFieldBytes = envInt("COURSEMILL_MAX_FIELD", c.MaxFieldBytes)
}

func envInt(name string, current int) int {
	v := os.Getenv(name)
	if v == "" {
		return current
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		logging.Warn("Ignoring non-numeric environment override", "name", name, "value", v)
		return current
	}
	return n
}

// Validate checks the resolved configuration. Callers run it once at
// startup, before the first network call.
func (c *Config) Validate() error {
	return validation.Struct(c)
}

// WriteToken returns the token write operations should carry: the admin
// token when one is configured, the regular token otherwise.
func (c *Config) WriteToken() string {
	if c.AdminToken != "" {
		return c.AdminToken
	}
	return c.Token
}

// Moodle renders the client settings for read operations.
func (c *Config) Moodle() moodle.Config {
	return moodle.Config{
		BaseURL: c.BaseURL,
		Token:   c.Token,
		Timeout: time.Duration(c.TimeoutSeconds) * time.Second,
	}
}

// MoodleWrite renders the client settings for operations that change the
// site.
func (c *Config) MoodleWrite() moodle.Config {
	cfg := c.Moodle()
	cfg.Token = c.WriteToken()
	return cfg
}

// SanitizeLimits renders the content ceilings, zeroes meaning library
// defaults.
func (c *Config) SanitizeLimits() sanitize.Limits {
	return sanitize.Limits{
		MaxPayloadBytes: c.MaxPayloadBytes,
		MaxFieldBytes:   c.MaxFieldBytes,
	}
}

// Save writes the config to the standard location
func (c *Config) Save() error {
	configPath, _ := FindConfigFile()
	return c.SaveTo(configPath)
}

// SaveTo writes the config to a specific path
func (c *Config) SaveTo(path string) error {
	// Set init time if this is the first save
	if c.InitTime == 0 {
		c.InitTime = time.Now().Unix()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create file with restrictive permissions (600): it may carry tokens
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
