// Package config handles skxtool configuration loading and management.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all tool settings.
type Config struct {
	Transfer TransferConfig `yaml:"transfer"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// TransferConfig holds export and import settings.
type TransferConfig struct {
	BasisName       string `yaml:"basis_name"`       // Basis created on meshes without shape keys
	AppendExtension bool   `yaml:"append_extension"` // Add .skx.json to export paths lacking it
	FileMode        string `yaml:"file_mode"`        // Octal permission of written delta files
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Transfer: TransferConfig{
			BasisName:       "basis",
			AppendExtension: true,
			FileMode:        "0644",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Mode parses FileMode as an octal permission.
func (t TransferConfig) Mode() (os.FileMode, error) {
	perm, err := strconv.ParseUint(t.FileMode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid file_mode %q: %w", t.FileMode, err)
	}
	if perm > 0777 {
		return 0, fmt.Errorf("invalid file_mode %q: not a permission", t.FileMode)
	}
	return os.FileMode(perm), nil
}
