package harvest

import (
	"github.com/hazyhaar/vidharvest/harvest/internal/config"
	"github.com/hazyhaar/vidharvest/harvest/internal/navigate"
)

// Config is the top-level vidharvest configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome for each run.
type BrowserConfig = config.BrowserConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// Selectors locates every control the navigation flow interacts with.
type Selectors = navigate.Selectors

// Timings holds every fixed wait of the navigation flow.
type Timings = navigate.Timings

// Limits bounds the navigation loops.
type Limits = navigate.Limits

// Credentials is the sign-in pair. It is never persisted and logs redacted.
type Credentials = navigate.Credentials

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}
