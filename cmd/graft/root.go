package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/termfx/graft/db"
	"github.com/termfx/graft/internal/config"
	"github.com/termfx/graft/staging"
)

var (
	cfg    *config.Config
	logger zerolog.Logger

	flagConfigRoot string
	flagLogLevel   string
	flagLogFormat  string
)

var rootCmd = &cobra.Command{
	Use:           "graft",
	Short:         "Structural search and rewrite engine for source trees",
	Long: `graft compiles pattern programs and runs them against file trees.
Matches become staged rewrites that can be previewed, committed to disk,
and reverted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadFromDir(flagConfigRoot)
		if err != nil {
			return err
		}
		if flagLogLevel != "" {
			cfg.Log.Level = flagLogLevel
		}
		if flagLogFormat != "" {
			cfg.Log.Format = flagLogFormat
		}

		logger, err = newLogger(cfg.Log)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigRoot, "config-root", ".",
		"directory whose .graft/config.yml is loaded")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "",
		"override the configured log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "",
		"override the configured log format (console or json)")
}

// Execute runs the root command with signal-aware cancellation.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error:")+" "+err.Error())
		os.Exit(1)
	}
}

func newLogger(lc config.LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}

	var w io.Writer = os.Stderr
	if lc.Format == "console" {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// openStaging connects the session database. Commands that cannot work
// without it should treat a nil manager as an error.
func openStaging() (*staging.Manager, error) {
	if cfg.Staging.Disabled {
		return nil, nil
	}

	debug := logger.GetLevel() <= zerolog.DebugLevel
	conn, err := db.Connect(cfg.Staging.Database, debug)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	return staging.NewManager(conn, staging.Config{
		TTL:                  cfg.Staging.TTL,
		MaxStagesPerSession:  cfg.Staging.MaxStagesPerSession,
		MaxAppliesPerSession: cfg.Staging.MaxAppliesPerSession,
	}, nil, &logger), nil
}

// requireStaging is openStaging for commands that only make sense with a
// session database.
func requireStaging() (*staging.Manager, error) {
	mgr, err := openStaging()
	if err != nil {
		return nil, err
	}
	if !mgr.IsEnabled() {
		return nil, errors.New("staging is disabled (staging.disabled is set)")
	}
	return mgr, nil
}
