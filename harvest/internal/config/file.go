// CLAUDE:SUMMARY Defines the vidharvest YAML configuration (browser, waits, limits, selectors, outputs, store, processing, server) with defaults.
// Package config handles vidharvest configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/vidharvest/harvest/internal/navigate"
)

// Config is the top-level vidharvest configuration.
type Config struct {
	Browser    BrowserConfig      `yaml:"browser"`
	Timeouts   navigate.Timings   `yaml:"timeouts"`
	Limits     navigate.Limits    `yaml:"limits"`
	Selectors  navigate.Selectors `yaml:"selectors"`
	Traversal  TraversalConfig    `yaml:"traversal"`
	Output     OutputConfig       `yaml:"output"`
	Sinks      []SinkConfig       `yaml:"sinks"`
	Store      StoreConfig        `yaml:"store"`
	Processing ProcessingConfig   `yaml:"processing"`
	Server     ServerConfig       `yaml:"server"`

	// RunTimeout bounds one whole run, sign-in to last page.
	RunTimeout time.Duration `yaml:"run_timeout"`
}

// BrowserConfig controls Chrome for each run.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"`
	Bin              string   `yaml:"bin"`
	NoSandbox        bool     `yaml:"no_sandbox"`
	ResourceBlocking []string `yaml:"resource_blocking"`
	Stealth          string   `yaml:"stealth"` // plain | headless | headful
	XvfbDisplay      string   `yaml:"xvfb_display"`
	ViewportWidth    int      `yaml:"viewport_width"`
	ViewportHeight   int      `yaml:"viewport_height"`
}

// TraversalConfig tunes the frame walk.
type TraversalConfig struct {
	ShadowHosts string `yaml:"shadow_hosts"`
}

// OutputConfig controls the result files written after each run.
type OutputConfig struct {
	Dir  string `yaml:"dir"`
	Text bool   `yaml:"text"`
	Docx bool   `yaml:"docx"`
}

// SinkConfig defines an extra output backend.
type SinkConfig struct {
	Type    string        `yaml:"type"` // stdout | webhook
	URL     string        `yaml:"url"`  // for webhook
	Retries int           `yaml:"retries"`
	Timeout time.Duration `yaml:"timeout"`
}

// StoreConfig locates the run history database. Empty Path disables it.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ProcessingConfig points at the downstream transcription service. Empty
// Endpoint disables /api/process.
type ProcessingConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	Rate     float64       `yaml:"rate"` // jobs per second
	Burst    int           `yaml:"burst"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr          string  `yaml:"addr"`
	BasicAuthUser string  `yaml:"basic_auth_user"`
	BasicAuthHash string  `yaml:"basic_auth_hash"` // bcrypt
	RateLimit     float64 `yaml:"rate_limit"`      // scrape requests per second per IP
	RateBurst     int     `yaml:"rate_burst"`
	TrustProxy    bool    `yaml:"trust_proxy"` // key rate limits on X-Forwarded-For
	MaxBodyBytes  int64   `yaml:"max_body_bytes"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{
		Timeouts: navigate.DefaultTimings(),
		Output:   OutputConfig{Text: true, Docx: true},
	}
	c.applyDefaults()
	return c
}

// LoadFile reads a YAML configuration file. Sections left out keep their
// defaults; an omitted timeouts section keeps every default wait.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	cfg := Config{
		Timeouts: navigate.DefaultTimings(),
		Output:   OutputConfig{Text: true, Docx: true},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RunTimeout <= 0 {
		c.RunTimeout = 30 * time.Minute
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	d := navigate.DefaultLimits()
	if c.Limits.MaxPages <= 0 {
		c.Limits.MaxPages = d.MaxPages
	}
	if c.Limits.MaxLessons <= 0 {
		c.Limits.MaxLessons = d.MaxLessons
	}
	if c.Limits.MaxScrollRounds <= 0 {
		c.Limits.MaxScrollRounds = d.MaxScrollRounds
	}
	if c.Limits.MaxDepth <= 0 {
		c.Limits.MaxDepth = d.MaxDepth
	}
	if c.Limits.MaxStalls <= 0 {
		c.Limits.MaxStalls = d.MaxStalls
	}
	c.Selectors = c.Selectors.Merge(navigate.DefaultSelectors())
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	for i := range c.Sinks {
		if c.Sinks[i].Retries <= 0 {
			c.Sinks[i].Retries = 3
		}
		if c.Sinks[i].Timeout <= 0 {
			c.Sinks[i].Timeout = 10 * time.Second
		}
	}
	if c.Processing.Timeout <= 0 {
		c.Processing.Timeout = 5 * time.Minute
	}
	if c.Processing.Rate <= 0 {
		c.Processing.Rate = 0.2
	}
	if c.Processing.Burst <= 0 {
		c.Processing.Burst = 1
	}
	if c.Server.RateLimit <= 0 {
		c.Server.RateLimit = 0.1
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = 3
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}
}

func (c *Config) validate() error {
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("config: sinks[%d]: webhook needs a url", i)
			}
		default:
			return fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	if (c.Server.BasicAuthUser == "") != (c.Server.BasicAuthHash == "") {
		return fmt.Errorf("config: server: basic_auth_user and basic_auth_hash go together")
	}
	return nil
}
