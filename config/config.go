// Package config holds the TOML-backed tunables shared by the assembler
// and the interpreter: register/file-descriptor counts, macro recursion
// depth, value-stack growth behaviour, and display preferences.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config is the full set of tunables loadable from a config.toml.
type Config struct {
	Assembler struct {
		Registers       int `toml:"registers"`
		FileDescriptors int `toml:"file_descriptors"`
		MaxMacroDepth   int `toml:"max_macro_depth"`
		MaxLabels       int `toml:"max_labels"`
	} `toml:"assembler"`

	Interpreter struct {
		StackInitialCapacity int     `toml:"stack_initial_capacity"`
		StackGrowthFactor    float64 `toml:"stack_growth_factor"`
		MaxCallDepth         int     `toml:"max_call_depth"`
	} `toml:"interpreter"`

	Display struct {
		ColorOutput bool `toml:"color_output"`
	} `toml:"display"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Assembler.Registers = 16
	cfg.Assembler.FileDescriptors = 16
	cfg.Assembler.MaxMacroDepth = 32
	cfg.Assembler.MaxLabels = 4096

	cfg.Interpreter.StackInitialCapacity = 256
	cfg.Interpreter.StackGrowthFactor = 1.5
	cfg.Interpreter.MaxCallDepth = 4096

	cfg.Display.ColorOutput = true

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "bbx")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "bbx")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file, falling back to
// defaults for any field the file doesn't set, and to an all-default
// Config when the file doesn't exist at all.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
