package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/termfx/graft/core"
	"github.com/termfx/graft/lang"
)

var checkCmd = &cobra.Command{
	Use:   "check <pattern-file> [path]",
	Short: "Compile a pattern file and report what a run would cover",
	Long: `Check compiles a pattern file without running it. It reports the target
language and definitions, and when a path is given, how many files in that
scope the program could see.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var scope *core.Scope
		if len(args) == 2 {
			s := scopeFromFlags(cmd, args[1])
			scope = &s
		}
		return runCheck(cmd.Context(), cmd.OutOrStdout(), args[0], scope)
	},
}

func init() {
	addScopeFlags(checkCmd)
	rootCmd.AddCommand(checkCmd)
}

func runCheck(ctx context.Context, w io.Writer, patternPath string, scope *core.Scope) error {
	prog, name, _, err := loadProgram(patternPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s %s\n", okStyle.Render("✓"), patternPath)
	fmt.Fprintf(w, "  pattern:  %s\n", name)
	fmt.Fprintf(w, "  language: %s\n", prog.Language)

	if len(prog.Defs) > 0 {
		fmt.Fprintf(w, "  defs:     %d\n", len(prog.Defs))
		for _, def := range prog.Defs {
			sig := def.Name
			if len(def.Params) > 0 {
				sig = fmt.Sprintf("%s/%d", def.Name, len(def.Params))
			}
			fmt.Fprintf(w, "    %s\n", faintStyle.Render(sig))
		}
	}
	if prog.Entry == nil {
		fmt.Fprintf(w, "  %s\n", faintStyle.Render("no entry pattern, definition library only"))
	}

	if scope == nil {
		return nil
	}

	walker := core.NewFileWalker(lang.DefaultRegistry())
	stats, err := walker.LanguageStats(ctx, *scope)
	if err != nil {
		return err
	}

	langs := make([]string, 0, len(stats))
	total := 0
	for id, n := range stats {
		langs = append(langs, id)
		total += n
	}
	sort.Strings(langs)

	fmt.Fprintf(w, "\nscope %s, %d files\n", scope.Root, total)
	for _, id := range langs {
		label := id
		if label == "" {
			label = "(other)"
		}
		line := fmt.Sprintf("  %-12s %d", label, stats[id])
		if id == prog.Language {
			fmt.Fprintf(w, "%s %s\n", boldStyle.Render(line), okStyle.Render("← target"))
		} else {
			fmt.Fprintln(w, faintStyle.Render(line))
		}
	}
	if stats[prog.Language] == 0 {
		fmt.Fprintf(w, "%s no %s files in scope\n", errStyle.Render("!"), prog.Language)
	}
	return nil
}
