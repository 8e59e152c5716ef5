package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/termfx/graft/core"
	"github.com/termfx/graft/lang"
)

var flagWatchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <pattern-file> [path]",
	Short: "Re-run a pattern preview whenever files change",
	Long: `Watch previews a pattern against a tree and re-runs it whenever a file in
the program's language changes. Watch never writes or stages; it is a live
view of what "graft run" would do.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 2 {
			root = args[1]
		}
		return runWatch(cmd, cmd.OutOrStdout(), args[0], root)
	},
}

func init() {
	watchCmd.Flags().DurationVar(&flagWatchInterval, "interval", 500*time.Millisecond, "quiet period before a re-run")
	watchCmd.Flags().BoolVar(&flagShowDiff, "diff", false, "print unified diffs for changed files")
	addScopeFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, w io.Writer, patternPath, root string) error {
	ctx := cmd.Context()

	prog, name, _, err := loadProgram(patternPath)
	if err != nil {
		return err
	}

	registry := lang.DefaultRegistry()
	grammar, ok := registry.Get(prog.Language)
	if !ok {
		return fmt.Errorf("language %q is not registered", prog.Language)
	}
	extensions := make(map[string]struct{}, len(grammar.Extensions()))
	for _, ext := range grammar.Extensions() {
		extensions[ext] = struct{}{}
	}

	proc, err := core.NewProcessor(prog, registry, core.ProcessorOptions{
		Workers: cfg.Scan.Workers,
		Limits:  cfg.Limits(),
		Timeout: cfg.Match.Timeout,
		Logger:  &logger,
	})
	if err != nil {
		return err
	}
	defer proc.Cleanup()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, root); err != nil {
		return err
	}

	scope := scopeFromFlags(cmd, root)
	rerun := func() {
		out, err := proc.Run(ctx, scope, false)
		if err != nil {
			fmt.Fprintf(w, "%s %v\n", errStyle.Render("run failed:"), err)
			return
		}
		fmt.Fprintf(w, "\n%s %s\n", faintStyle.Render(time.Now().Format(time.Kitchen)), boldStyle.Render(name))
		for i := range out.Files {
			printFileResult(w, &out.Files[i], flagShowDiff)
		}
		printRunSummary(w, out, false)
	}

	fmt.Fprintf(w, "watching %s for %s files, ^C to stop\n", root, prog.Language)
	rerun()

	debounced := debounce.New(flagWatchInterval)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// New directories join the watch so files created inside
			// them are seen.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchTree(watcher, event.Name); err != nil {
						logger.Warn().Err(err).Str("dir", event.Name).Msg("failed to watch new directory")
					}
					continue
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if _, ok := extensions[filepath.Ext(event.Name)]; !ok {
				continue
			}
			debounced(rerun)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

// watchTree registers root and every directory below it, minus the
// directories scans never enter.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && core.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			logger.Warn().Err(err).Str("dir", path).Msg("failed to watch directory")
		}
		return nil
	})
}
