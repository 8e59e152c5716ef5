package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/termfx/graft/staging"
)

var commitCmd = &cobra.Command{
	Use:   "commit <ses_id|stg_id>",
	Short: "Apply staged rewrites to disk",
	Long: `Commit writes staged rewrites back to their files.

Pass a session id (ses_*) to apply every pending stage of that session, or a
single stage id (stg_*) to apply just one. A stage only applies while the
file still matches the content it was staged from.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sm, err := requireStaging()
		if err != nil {
			return err
		}
		defer sm.Close()

		return runCommit(cmd.Context(), cmd.OutOrStdout(), sm, args[0])
	},
}

func init() {
	rootCmd.AddCommand(commitCmd)
}

func runCommit(ctx context.Context, w io.Writer, sm *staging.Manager, id string) error {
	switch {
	case strings.HasPrefix(id, "ses_"):
		applies, err := sm.ApplyAll(ctx, id)
		for _, apply := range applies {
			printApply(w, apply)
		}
		if err != nil {
			return err
		}
		if len(applies) == 0 {
			fmt.Fprintf(w, "nothing pending in %s\n", id)
			return nil
		}
		fmt.Fprintf(w, "%s %d files\n", okStyle.Render("applied"), len(applies))
		return nil

	case strings.HasPrefix(id, "stg_"):
		apply, err := sm.ApplyStage(ctx, id, false)
		if err != nil {
			return err
		}
		printApply(w, apply)
		return nil

	default:
		return fmt.Errorf("expected a ses_ or stg_ id, got %q", id)
	}
}
