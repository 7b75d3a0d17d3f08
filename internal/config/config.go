package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MaxHistoryLimit bounds history_limit.
	MaxHistoryLimit = 10000
	// MinPollInterval keeps the watcher from spinning.
	MinPollInterval = 50 * time.Millisecond
)

// Duration is a time.Duration written as a string ("500ms") in YAML.
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config represents the ammo configuration
type Config struct {
	PollInterval Duration `yaml:"poll_interval"`
	HistoryLimit int      `yaml:"history_limit"`
	WindowLimit  int      `yaml:"window_limit"`
	MaxShortcuts int      `yaml:"max_shortcuts"`
	DBPath       string   `yaml:"db_path,omitempty"`
	LogLevel     string   `yaml:"log_level,omitempty"`
	LogFormat    string   `yaml:"log_format,omitempty"`
	SocketPath   string   `yaml:"socket_path,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		PollInterval: Duration(500 * time.Millisecond),
		HistoryLimit: 255,
		WindowLimit:  11,
		MaxShortcuts: 9,
		LogLevel:     "info",
		LogFormat:    "auto",
	}
}

// Interval returns the poll interval as a time.Duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.PollInterval)
}

// ConfigManager manages configuration persistence
type ConfigManager struct {
	configPath string
}

// NewConfigManager creates a config manager for ~/.config/ammo/config.yaml
func NewConfigManager() (*ConfigManager, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return &ConfigManager{
		configPath: filepath.Join(dir, "config.yaml"),
	}, nil
}

// NewConfigManagerWithPath creates a config manager with custom config path
func NewConfigManagerWithPath(configPath string) *ConfigManager {
	return &ConfigManager{
		configPath: configPath,
	}
}

// DefaultDir returns ~/.config/ammo.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "ammo"), nil
}

// Load reads the configuration from file, or returns default if file doesn't exist
func (cm *ConfigManager) Load() (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(cm.configPath)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Fields missing from the file keep their defaults
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save writes the configuration to file
func (cm *ConfigManager) Save(config *Config) error {
	if err := validate(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configDir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(cm.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func validate(config *Config) error {
	if config.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be greater than 0")
	}
	if config.HistoryLimit > MaxHistoryLimit {
		return fmt.Errorf("history_limit cannot exceed %d items", MaxHistoryLimit)
	}
	if config.Interval() < MinPollInterval {
		return fmt.Errorf("poll_interval must be at least %s", MinPollInterval)
	}
	if config.WindowLimit <= 0 {
		return fmt.Errorf("window_limit must be greater than 0")
	}
	if config.MaxShortcuts < 0 || config.MaxShortcuts > 9 {
		return fmt.Errorf("max_shortcuts must be between 0 and 9")
	}
	switch config.LogFormat {
	case "", "auto", "text", "json":
	default:
		return fmt.Errorf("log_format must be one of auto, text, json")
	}
	return nil
}

// GetConfigPath returns the path to the config file
func (cm *ConfigManager) GetConfigPath() string {
	return cm.configPath
}

// Dir returns the directory holding the config file. The database and log
// file live there unless configured otherwise.
func (cm *ConfigManager) Dir() string {
	return filepath.Dir(cm.configPath)
}

// DatabasePath returns the configured database path, or ammo.db beside
// the config file.
func (cm *ConfigManager) DatabasePath(config *Config) string {
	if config.DBPath != "" {
		return config.DBPath
	}
	return filepath.Join(cm.Dir(), "ammo.db")
}

// Keys lists every configuration key accepted by Get and Update.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

func intField(name string, p func(*Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*p(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid integer value for %s: %s", name, v)
			}
			*p(c) = n
			return nil
		},
	}
}

func stringField(p func(*Config) *string) field {
	return field{
		get: func(c *Config) string {
			if *p(c) == "" {
				return "[default]"
			}
			return *p(c)
		},
		set: func(c *Config, v string) error {
			*p(c) = v
			return nil
		},
	}
}

var fields = map[string]field{
	"poll-interval": {
		get: func(c *Config) string { return c.Interval().String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid duration value for poll-interval: %s", v)
			}
			c.PollInterval = Duration(d)
			return nil
		},
	},
	"history-limit": intField("history-limit", func(c *Config) *int { return &c.HistoryLimit }),
	"window-limit":  intField("window-limit", func(c *Config) *int { return &c.WindowLimit }),
	"max-shortcuts": intField("max-shortcuts", func(c *Config) *int { return &c.MaxShortcuts }),
	"db-path":       stringField(func(c *Config) *string { return &c.DBPath }),
	"log-level":     stringField(func(c *Config) *string { return &c.LogLevel }),
	"log-format":    stringField(func(c *Config) *string { return &c.LogFormat }),
	"socket-path":   stringField(func(c *Config) *string { return &c.SocketPath }),
}

// Update modifies a specific configuration value
func (cm *ConfigManager) Update(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	config, err := cm.Load()
	if err != nil {
		return err
	}
	if err := f.set(config, value); err != nil {
		return err
	}
	return cm.Save(config)
}

// Get returns the value for a specific configuration key
func (cm *ConfigManager) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}

	config, err := cm.Load()
	if err != nil {
		return "", err
	}
	return f.get(config), nil
}

// List returns all configuration keys and values
func (cm *ConfigManager) List() (map[string]string, error) {
	config, err := cm.Load()
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(fields))
	for k, f := range fields {
		result[k] = f.get(config)
	}
	return result, nil
}
