package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/termfx/graft/lang"
)

var (
	flagParseLang  string
	flagParseDepth int
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Print the syntax tree of a source file",
	Long: `Parse prints a file's syntax tree, one node per line with its kind, byte
span and a snippet of the covered text. Useful for working out which node
kinds and fields a pattern should name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runParse(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

func init() {
	parseCmd.Flags().StringVar(&flagParseLang, "lang", "", "language id, default detects by extension")
	parseCmd.Flags().IntVar(&flagParseDepth, "depth", 0, "tree depth limit, 0 = unlimited")
	rootCmd.AddCommand(parseCmd)
}

func runParse(ctx context.Context, w io.Writer, path string) error {
	registry := lang.DefaultRegistry()

	var grammar lang.Grammar
	if flagParseLang != "" {
		g, ok := registry.Get(flagParseLang)
		if !ok {
			return fmt.Errorf("language %q is not registered (have: %s)",
				flagParseLang, strings.Join(registry.Languages(), ", "))
		}
		grammar = g
	} else {
		g, ok := registry.ByExtension(filepath.Ext(path))
		if !ok {
			return fmt.Errorf("cannot detect a language for %s, pass --lang", path)
		}
		grammar = g
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	tree, err := grammar.Parse(ctx, source)
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}
	defer tree.Close()

	fmt.Fprintf(w, "%s %s\n", faintStyle.Render(grammar.ID()), path)
	printNode(w, tree.Root(), 0)
	return nil
}

func printNode(w io.Writer, node lang.Node, depth int) {
	if flagParseDepth > 0 && depth >= flagParseDepth {
		return
	}

	span := node.Span()
	fmt.Fprintf(w, "%s%s %s %s\n",
		strings.Repeat("  ", depth),
		boldStyle.Render(node.Kind()),
		faintStyle.Render(fmt.Sprintf("[%d:%d]", span.Start, span.End)),
		snippet(node.Text()))

	for _, child := range node.Children() {
		printNode(w, child, depth+1)
	}
}

// snippet flattens node text to one short line.
func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > 48 {
		text = text[:45] + "..."
	}
	return text
}
