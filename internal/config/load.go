package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Assets.CacheDir == "" {
		return fmt.Errorf("assets.cache_dir must not be empty")
	}
	if !strings.Contains(c.Assets.Endpoint, "{id}") {
		return fmt.Errorf("assets.endpoint %q has no {id} placeholder", c.Assets.Endpoint)
	}
	if c.Assets.Concurrency < 1 {
		return fmt.Errorf("assets.concurrency must be at least 1, got %d", c.Assets.Concurrency)
	}
	switch c.Dedup.Rotation {
	case "none", "maxima":
	default:
		return fmt.Errorf("dedup.rotation must be none or maxima, got %q", c.Dedup.Rotation)
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "meshdedup")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "meshdedup")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "meshdedup")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "meshdedup")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
