package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultRefreshInterval matches the renewal cadence the backend expects for
// access tokens.
const DefaultRefreshInterval = 3*time.Hour + 30*time.Minute

// Config holds user preferences
type Config struct {
	ServerURL       string `yaml:"server_url" json:"server_url"`             // Backend base URL
	RefreshInterval string `yaml:"refresh_interval" json:"refresh_interval"` // Access token renewal cadence, e.g. "3h30m"

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // Log level: DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Enable console logging
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	logPath := ""
	if home != "" {
		logPath = filepath.Join(home, ".currents", "logs", "currents.log")
	}

	return &Config{
		ServerURL:       getEnv("CURRENTS_SERVER_URL", "http://localhost:8080"),
		RefreshInterval: getEnv("CURRENTS_REFRESH_INTERVAL", "3h30m"),
		LogLevel:        getEnv("CURRENTS_LOG_LEVEL", "INFO"),
		LogFile:         getEnv("CURRENTS_LOG_FILE", logPath),
		LogConsole:      getEnv("CURRENTS_LOG_CONSOLE", "false") == "true",
	}
}

// RefreshEvery parses the configured renewal cadence, falling back to the
// default on a malformed or non-positive value.
func (c *Config) RefreshEvery() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		return DefaultRefreshInterval
	}
	return d
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Dir returns the application state directory (~/.currents)
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".currents"), nil
}

// Load loads config from ~/.currents/config.yaml
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(dir, "config.yaml")

	// Return defaults if no config file exists yet
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save saves config to ~/.currents/config.yaml
func (c *Config) Save() error {
	dir, err := Dir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
