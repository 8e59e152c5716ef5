package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/termfx/graft/core"
	"github.com/termfx/graft/lang"
	"github.com/termfx/graft/pattern"
	"github.com/termfx/graft/staging"
)

var (
	flagWrite          bool
	flagNoStage        bool
	flagShowDiff       bool
	flagJSON           bool
	flagInclude        []string
	flagExclude        []string
	flagMaxDepth       int
	flagMaxFiles       int
	flagFollowSymlinks bool
	flagWorkers        int
)

var runCmd = &cobra.Command{
	Use:   "run <pattern-file> [path]",
	Short: "Match a pattern program against a source tree",
	Long: `Run compiles a pattern file and matches it against every file in scope.

Without --write the run is a preview: changed files are staged for a later
"graft commit" and nothing on disk is touched. With --write files are
rewritten in place and the staged records double as the revert journal.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 2 {
			root = args[1]
		}
		workers := cfg.Scan.Workers
		if cmd.Flags().Changed("workers") {
			workers = flagWorkers
		}
		return runPattern(cmd.Context(), cmd.OutOrStdout(), args[0], scopeFromFlags(cmd, root), workers)
	},
}

func init() {
	runCmd.Flags().BoolVarP(&flagWrite, "write", "w", false, "rewrite matched files in place")
	runCmd.Flags().BoolVar(&flagNoStage, "no-stage", false, "skip staging, preview or write only")
	runCmd.Flags().BoolVar(&flagShowDiff, "diff", false, "print unified diffs for changed files")
	runCmd.Flags().BoolVar(&flagJSON, "json", false, "emit the full run result as JSON")
	runCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parallel file workers, 0 = configured default")
	addScopeFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

// addScopeFlags registers the file discovery flags shared by every command
// that walks a source tree.
func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&flagInclude, "include", nil, "glob patterns of files to include")
	cmd.Flags().StringSliceVar(&flagExclude, "exclude", nil, "glob patterns of files to exclude")
	cmd.Flags().IntVar(&flagMaxDepth, "max-depth", 0, "directory depth limit, 0 = unlimited")
	cmd.Flags().IntVar(&flagMaxFiles, "max-files", 0, "file count limit, 0 = unlimited")
	cmd.Flags().BoolVar(&flagFollowSymlinks, "follow-symlinks", false, "follow symbolic links while scanning")
}

func runPattern(ctx context.Context, w io.Writer, patternPath string, scope core.Scope, workers int) error {
	prog, name, src, err := loadProgram(patternPath)
	if err != nil {
		return err
	}

	proc, err := core.NewProcessor(prog, lang.DefaultRegistry(), core.ProcessorOptions{
		Workers: workers,
		Limits:  cfg.Limits(),
		Timeout: cfg.Match.Timeout,
		Logger:  &logger,
	})
	if err != nil {
		return err
	}
	defer proc.Cleanup()

	out, err := proc.Run(ctx, scope, flagWrite)
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for i := range out.Files {
		printFileResult(w, &out.Files[i], flagShowDiff)
	}
	printRunSummary(w, out, flagWrite)

	if !flagNoStage && out.FilesChanged > 0 {
		if err := stageRun(ctx, w, scope.Root, name, src, out); err != nil {
			// Staging trouble never voids a run that already happened.
			logger.Warn().Err(err).Msg("staging failed")
			fmt.Fprintf(w, "%s %v\n", errStyle.Render("staging failed:"), err)
		}
	}

	if out.FilesFailed > 0 {
		return fmt.Errorf("%d of %d files failed", out.FilesFailed, out.FilesScanned)
	}
	return nil
}

// loadProgram reads and compiles a pattern file. The returned name, the
// file's base without extension, labels sessions and stages.
func loadProgram(path string) (*pattern.Program, string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to read pattern file: %w", err)
	}
	src := string(data)

	prog, err := pattern.Compile(src)
	if err != nil {
		return nil, "", "", fmt.Errorf("%s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return prog, name, src, nil
}

func scopeFromFlags(cmd *cobra.Command, root string) core.Scope {
	scope := core.Scope{
		Root:           root,
		Include:        cfg.Scan.Include,
		Exclude:        cfg.Scan.Exclude,
		MaxDepth:       cfg.Scan.MaxDepth,
		MaxFiles:       cfg.Scan.MaxFiles,
		FollowSymlinks: cfg.Scan.FollowSymlinks,
	}

	fl := cmd.Flags()
	if fl.Changed("include") {
		scope.Include = flagInclude
	}
	if fl.Changed("exclude") {
		scope.Exclude = flagExclude
	}
	if fl.Changed("max-depth") {
		scope.MaxDepth = flagMaxDepth
	}
	if fl.Changed("max-files") {
		scope.MaxFiles = flagMaxFiles
	}
	if fl.Changed("follow-symlinks") {
		scope.FollowSymlinks = flagFollowSymlinks
	}
	return scope
}

// stageRun records every changed file of a run as a stage. Preview stages
// wait for "graft commit"; written files are auto-applied on the spot so the
// session becomes a revert journal.
func stageRun(ctx context.Context, w io.Writer, root, patternName, patternSrc string, out *core.RunResult) error {
	sm, err := openStaging()
	if err != nil {
		return err
	}
	if !sm.IsEnabled() {
		logger.Debug().Msg("staging disabled, skipping")
		return nil
	}
	defer sm.Close()

	ses, err := sm.BeginSession(ctx, root, patternName, map[string]any{"write": flagWrite})
	if err != nil {
		return err
	}

	staged := 0
	for i := range out.Files {
		res := out.Files[i]
		if !res.Changed || res.Error != "" {
			continue
		}

		stage, err := staging.StageFromResult(ses.ID, patternName, patternSrc, res)
		if err != nil {
			return err
		}
		if err := sm.CreateStage(ctx, stage); err != nil {
			return err
		}
		staged++

		if res.Written {
			if _, err := sm.ApplyStage(ctx, stage.ID, true); err != nil {
				return err
			}
		}
	}

	if err := sm.EndSession(ctx, ses.ID); err != nil {
		return err
	}

	if flagWrite {
		fmt.Fprintf(w, "session %s recorded %d files, revert with: graft revert %s\n",
			boldStyle.Render(ses.ID), staged, ses.ID)
	} else {
		fmt.Fprintf(w, "session %s staged %d files, apply with: graft commit %s\n",
			boldStyle.Render(ses.ID), staged, ses.ID)
	}
	return nil
}
