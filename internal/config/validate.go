package config

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidScan indicates a bad file discovery setting
	ErrInvalidScan = errors.New("invalid scan settings")

	// ErrInvalidMatch indicates a bad match budget
	ErrInvalidMatch = errors.New("invalid match settings")

	// ErrInvalidStaging indicates a bad staging setting
	ErrInvalidStaging = errors.New("invalid staging settings")

	// ErrInvalidLogLevel indicates an unsupported log level
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidLogFormat indicates an unsupported log format
	ErrInvalidLogFormat = errors.New("invalid log format")
)

// Validate checks that the configuration is usable. Zero values mean
// "use the default" throughout, so only negatives and unknown enum
// values are rejected.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateScan(&cfg.Scan); err != nil {
		errs = append(errs, err)
	}
	if err := validateMatch(&cfg.Match); err != nil {
		errs = append(errs, err)
	}
	if err := validateStaging(&cfg.Staging); err != nil {
		errs = append(errs, err)
	}
	if err := validateLog(&cfg.Log); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validateScan(cfg *ScanConfig) error {
	var errs []error

	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidScan, cfg.Workers))
	}
	if cfg.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("%w: max_depth cannot be negative, got %d", ErrInvalidScan, cfg.MaxDepth))
	}
	if cfg.MaxFiles < 0 {
		errs = append(errs, fmt.Errorf("%w: max_files cannot be negative, got %d", ErrInvalidScan, cfg.MaxFiles))
	}

	return errors.Join(errs...)
}

func validateMatch(cfg *MatchConfig) error {
	var errs []error

	if cfg.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("%w: max_steps cannot be negative, got %d", ErrInvalidMatch, cfg.MaxSteps))
	}
	if cfg.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("%w: max_depth cannot be negative, got %d", ErrInvalidMatch, cfg.MaxDepth))
	}
	if cfg.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: timeout cannot be negative, got %v", ErrInvalidMatch, cfg.Timeout))
	}

	return errors.Join(errs...)
}

func validateStaging(cfg *StagingConfig) error {
	var errs []error

	if cfg.TTL < 0 {
		errs = append(errs, fmt.Errorf("%w: ttl cannot be negative, got %v", ErrInvalidStaging, cfg.TTL))
	}
	if cfg.MaxStagesPerSession < 0 {
		errs = append(errs, fmt.Errorf("%w: max_stages_per_session cannot be negative, got %d",
			ErrInvalidStaging, cfg.MaxStagesPerSession))
	}
	if cfg.MaxAppliesPerSession < 0 {
		errs = append(errs, fmt.Errorf("%w: max_applies_per_session cannot be negative, got %d",
			ErrInvalidStaging, cfg.MaxAppliesPerSession))
	}

	return errors.Join(errs...)
}

func validateLog(cfg *LogConfig) error {
	var errs []error

	switch cfg.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: %q (valid: trace, debug, info, warn, error)",
			ErrInvalidLogLevel, cfg.Level))
	}

	switch cfg.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: %q (valid: console, json)", ErrInvalidLogFormat, cfg.Format))
	}

	return errors.Join(errs...)
}
