// Package config loads graft settings from .graft/config.yml with
// GRAFT_* environment variable overrides.
package config

import (
	"time"

	"github.com/termfx/graft/engine"
)

// Config is the complete runtime configuration.
type Config struct {
	Scan    ScanConfig    `yaml:"scan" mapstructure:"scan"`
	Match   MatchConfig   `yaml:"match" mapstructure:"match"`
	Staging StagingConfig `yaml:"staging" mapstructure:"staging"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ScanConfig controls file discovery.
type ScanConfig struct {
	Include        []string `yaml:"include" mapstructure:"include"` // glob patterns to keep
	Exclude        []string `yaml:"exclude" mapstructure:"exclude"` // glob patterns to drop
	MaxDepth       int      `yaml:"max_depth" mapstructure:"max_depth"`
	MaxFiles       int      `yaml:"max_files" mapstructure:"max_files"`
	FollowSymlinks bool     `yaml:"follow_symlinks" mapstructure:"follow_symlinks"`
	Workers        int      `yaml:"workers" mapstructure:"workers"`
}

// MatchConfig bounds a single match attempt.
type MatchConfig struct {
	MaxSteps int           `yaml:"max_steps" mapstructure:"max_steps"`
	MaxDepth int           `yaml:"max_depth" mapstructure:"max_depth"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"` // wall clock per file, 0 = none
}

// StagingConfig controls the session database.
type StagingConfig struct {
	Database             string        `yaml:"database" mapstructure:"database"` // file path, :memory:, or libsql URL
	TTL                  time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MaxStagesPerSession  int           `yaml:"max_stages_per_session" mapstructure:"max_stages_per_session"`
	MaxAppliesPerSession int           `yaml:"max_applies_per_session" mapstructure:"max_applies_per_session"`
	Disabled             bool          `yaml:"disabled" mapstructure:"disabled"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // trace, debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // console or json
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Workers: 8,
		},
		Match: MatchConfig{
			MaxSteps: engine.DefaultLimits().MaxSteps,
			MaxDepth: engine.DefaultLimits().MaxDepth,
			Timeout:  10 * time.Second,
		},
		Staging: StagingConfig{
			Database:            ".graft/graft.db",
			TTL:                 15 * time.Minute,
			MaxStagesPerSession: 500,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Limits converts the match section into engine limits.
func (c *Config) Limits() engine.Limits {
	return engine.Limits{
		MaxSteps: c.Match.MaxSteps,
		MaxDepth: c.Match.MaxDepth,
	}
}
