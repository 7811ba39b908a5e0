package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config represents the hitbench configuration
type Config struct {
	Iterations   int      `json:"iterations,omitempty"`
	Batch        *bool    `json:"batch,omitempty"`
	ResourceBase string   `json:"resourceBase,omitempty"`
	FPS          int      `json:"fps,omitempty"`
	PollInterval int      `json:"pollInterval,omitempty"` // milliseconds
	HistoryDB    string   `json:"historyDB,omitempty"`    // SQLite run history path
	Reporters    []string `json:"reporters,omitempty"`    // Output reporters
	Verbose      *bool    `json:"verbose,omitempty"`
	NoColor      *bool    `json:"noColor,omitempty"`
}

// BoolPtr returns a pointer to a bool value
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetBatch returns the batch setting, defaulting to false
func (c *Config) GetBatch() bool {
	return getBool(c.Batch, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// GetPollInterval returns the WaitForElement poll delay
func (c *Config) GetPollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return time.Duration(DefaultPollInterval) * time.Millisecond
	}
	return time.Duration(c.PollInterval) * time.Millisecond
}

// HasReporter reports whether name is one of the configured reporters
func (c *Config) HasReporter(name string) bool {
	for _, r := range c.Reporters {
		if r == name {
			return true
		}
	}
	return false
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".hitbench.config.json",
	"hitbench.config.json",
	".hitbenchrc",
	".hitbenchrc.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return config, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Iterations < 0 {
		return fmt.Errorf("iterations must not be negative, got %d", c.Iterations)
	}
	if c.FPS < 0 {
		return fmt.Errorf("fps must not be negative, got %d", c.FPS)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("pollInterval must not be negative, got %d", c.PollInterval)
	}
	return nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Iterations > 0 {
		result.Iterations = other.Iterations
	}
	if other.ResourceBase != "" {
		result.ResourceBase = other.ResourceBase
	}
	if other.FPS > 0 {
		result.FPS = other.FPS
	}
	if other.PollInterval > 0 {
		result.PollInterval = other.PollInterval
	}
	if other.HistoryDB != "" {
		result.HistoryDB = other.HistoryDB
	}

	// Boolean flags - only override if explicitly set in other config
	if other.Batch != nil {
		result.Batch = other.Batch
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Reporters) > 0 {
		result.Reporters = other.Reporters
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
