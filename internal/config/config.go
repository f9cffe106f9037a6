// Package config loads the speedhive-tools configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the public Speedhive event results API.
const DefaultBaseURL = "https://eventresults-api.speedhive.com/api/v0.2.3/eventresults"

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "~/.config/speedhive/config.yaml"

// Configuration validation errors.
var (
	ErrMissingBaseURL       = errors.New("api.base_url is required")
	ErrInvalidTimeout       = errors.New("api.timeout must be positive")
	ErrInvalidPageSize      = errors.New("api.page_size must be between 1 and 500")
	ErrInvalidMaxAttempts   = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay  = errors.New("retry.initial_delay must be non-negative")
	ErrInvalidMultiplier    = errors.New("retry.multiplier must be >= 1.0")
	ErrMaxDelayBelowInitial = errors.New("retry.max_delay cannot be less than retry.initial_delay")
	ErrMissingDataDir       = errors.New("output.data_dir is required")
	ErrInvalidConcurrency   = errors.New("dump.concurrency must be at least 1")
	ErrInvalidLogLevel      = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Config is the complete configuration.
type Config struct {
	API     API     `yaml:"api"`
	Retry   Retry   `yaml:"retry"`
	Output  Output  `yaml:"output"`
	Parsing Parsing `yaml:"parsing"`
	Dump    Dump    `yaml:"dump"`
	Logging Logging `yaml:"logging"`
	Server  Server  `yaml:"server"`
}

// API holds the results API connection settings.
type API struct {
	BaseURL       string        `yaml:"base_url"`
	UserAgent     string        `yaml:"user_agent"`
	Token         string        `yaml:"token"`
	Timeout       time.Duration `yaml:"timeout"`
	PageSize      int           `yaml:"page_size"`
	SportCategory string        `yaml:"sport_category"`
}

// Retry controls backoff for transient API failures.
type Retry struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
}

// Output controls where files are written.
type Output struct {
	DataDir  string `yaml:"data_dir"`
	Compress bool   `yaml:"compress"`
}

// Parsing holds announcement screening policies.
type Parsing struct {
	AllowMissingClass bool `yaml:"allow_missing_class"`
}

// Dump controls the full dump exporter.
type Dump struct {
	Concurrency  int  `yaml:"concurrency"`
	LapPositions int  `yaml:"lap_positions"`
	IncludeLaps  bool `yaml:"include_laps"`
}

// Logging controls the structured logger.
type Logging struct {
	Level string `yaml:"level"`
}

// Server controls the HTTP parse service.
type Server struct {
	ListenAddress string `yaml:"listen_address"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: API{
			BaseURL:       DefaultBaseURL,
			UserAgent:     "speedhive-tools/1.0 (+https://github.com/pfrederiksen/speedhive-tools)",
			Timeout:       30 * time.Second,
			PageSize:      25,
			SportCategory: "Motorized",
		},
		Retry: Retry{
			MaxAttempts:  3,
			InitialDelay: 1500 * time.Millisecond,
			MaxDelay:     15 * time.Second,
			Multiplier:   2.0,
		},
		Output: Output{
			DataDir:  "~/.local/share/speedhive",
			Compress: true,
		},
		Parsing: Parsing{
			AllowMissingClass: true,
		},
		Dump: Dump{
			Concurrency:  4,
			LapPositions: 3,
			IncludeLaps:  true,
		},
		Logging: Logging{
			Level: "info",
		},
		Server: Server{
			ListenAddress: ":8080",
		},
	}
}

// Load reads the YAML file at path on top of Default and applies
// environment overrides. An empty path means DefaultPath, which may be
// missing. An explicitly named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	resolved, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", resolved, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SPEEDHIVE_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("SPEEDHIVE_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("SPEEDHIVE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for values the tools cannot work with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	if c.API.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.API.PageSize < 1 || c.API.PageSize > 500 {
		return ErrInvalidPageSize
	}

	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if c.Retry.InitialDelay < 0 {
		return ErrInvalidInitialDelay
	}
	if c.Retry.Multiplier < 1.0 {
		return ErrInvalidMultiplier
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return ErrMaxDelayBelowInitial
	}

	if strings.TrimSpace(c.Output.DataDir) == "" {
		return ErrMissingDataDir
	}
	if c.Dump.Concurrency < 1 {
		return ErrInvalidConcurrency
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	return nil
}

// Delay returns the backoff before retry number attempt (1-based), capped
// at MaxDelay.
func (r Retry) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	delay := float64(r.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= r.Multiplier
	}
	if d := time.Duration(delay); d < r.MaxDelay {
		return d
	}
	return r.MaxDelay
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
