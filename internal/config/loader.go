package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults, then config file, then environment (env wins).
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".graft")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("GRAFT")
	v.AutomaticEnv()
	// GRAFT_STAGING_TTL maps to staging.ttl and so on.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvKeys(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults plus env cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func bindEnvKeys(v *viper.Viper) {
	v.BindEnv("scan.max_depth")
	v.BindEnv("scan.max_files")
	v.BindEnv("scan.follow_symlinks")
	v.BindEnv("scan.workers")

	v.BindEnv("match.max_steps")
	v.BindEnv("match.max_depth")
	v.BindEnv("match.timeout")

	v.BindEnv("staging.database")
	v.BindEnv("staging.ttl")
	v.BindEnv("staging.max_stages_per_session")
	v.BindEnv("staging.max_applies_per_session")
	v.BindEnv("staging.disabled")

	v.BindEnv("log.level")
	v.BindEnv("log.format")
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("scan.include", defaults.Scan.Include)
	v.SetDefault("scan.exclude", defaults.Scan.Exclude)
	v.SetDefault("scan.max_depth", defaults.Scan.MaxDepth)
	v.SetDefault("scan.max_files", defaults.Scan.MaxFiles)
	v.SetDefault("scan.follow_symlinks", defaults.Scan.FollowSymlinks)
	v.SetDefault("scan.workers", defaults.Scan.Workers)

	v.SetDefault("match.max_steps", defaults.Match.MaxSteps)
	v.SetDefault("match.max_depth", defaults.Match.MaxDepth)
	v.SetDefault("match.timeout", defaults.Match.Timeout)

	v.SetDefault("staging.database", defaults.Staging.Database)
	v.SetDefault("staging.ttl", defaults.Staging.TTL)
	v.SetDefault("staging.max_stages_per_session", defaults.Staging.MaxStagesPerSession)
	v.SetDefault("staging.max_applies_per_session", defaults.Staging.MaxAppliesPerSession)
	v.SetDefault("staging.disabled", defaults.Staging.Disabled)

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
}

// Load is a convenience function that loads config from the current
// working directory.
func Load() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadFromDir loads configuration rooted at a specific directory.
func LoadFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
