// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"research-planner/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Catalog locates the service catalog
	Catalog CatalogConfig `json:"catalog"`

	// Institution identifies who the requests are submitted to
	Institution InstitutionConfig `json:"institution"`

	// Storage contains slate persistence settings
	Storage StorageConfig `json:"storage"`

	// Calculator contains calculator engine settings
	Calculator CalculatorConfig `json:"calculator"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// CatalogConfig locates the configuration model file
type CatalogConfig struct {
	// Path is an .hcl, .yaml or .yml catalog file
	Path string `json:"path"`
}

// InstitutionConfig describes the host institution
type InstitutionConfig struct {
	// Name appears in exported slates. Overrides the catalog meta when set.
	Name string `json:"name"`
}

// StorageConfig contains slate persistence settings
type StorageConfig struct {
	// Backend is one of file, sqlite, memory
	Backend string `json:"backend"`

	// Path is the directory (file) or database file (sqlite)
	Path string `json:"path"`
}

// CalculatorConfig contains calculator engine settings
type CalculatorConfig struct {
	// DebounceMillis is the auto-calculation debounce window
	DebounceMillis int `json:"debounce_ms"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	base := filepath.Join(homeDir, ".research-planner")

	return &Config{
		Version: "1.0",
		Catalog: CatalogConfig{
			Path: filepath.Join(base, "catalog.hcl"),
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    filepath.Join(base, "slates.db"),
		},
		Calculator: CalculatorConfig{
			DebounceMillis: 200,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
