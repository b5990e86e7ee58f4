package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
// Config files are looked up and read through fs.
func Load(fs afero.Fs) (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile(fs)
	}

	if configPath != "" {
		if err := loadFromFile(fs, cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if _, err := cfg.Transfer.Mode(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile(fs afero.Fs) string {
	candidates := []string{
		"./skxtool.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if ok, _ := afero.Exists(fs, path); ok {
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
		return filepath.Join(home, "Library", "Application Support", "skxtool")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "skxtool")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "skxtool")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "skxtool")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(fs afero.Fs, cfg *Config, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
