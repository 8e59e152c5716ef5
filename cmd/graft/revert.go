package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/termfx/graft/staging"
)

var revertCmd = &cobra.Command{
	Use:   "revert <ses_id|apl_id|stg_id>",
	Short: "Undo applied rewrites or discard pending stages",
	Long: `Revert walks an apply back to the file content it replaced.

Pass a session id (ses_*) to revert every apply of that session newest
first, an apply id (apl_*) for a single one, or a stage id (stg_*) to
discard a stage that was never applied.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sm, err := requireStaging()
		if err != nil {
			return err
		}
		defer sm.Close()

		return runRevert(cmd.Context(), cmd.OutOrStdout(), sm, args[0])
	},
}

func init() {
	rootCmd.AddCommand(revertCmd)
}

func runRevert(ctx context.Context, w io.Writer, sm *staging.Manager, id string) error {
	switch {
	case strings.HasPrefix(id, "ses_"):
		n, err := sm.RevertSession(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Fprintf(w, "nothing applied in %s\n", id)
			return nil
		}
		fmt.Fprintf(w, "%s %d files\n", okStyle.Render("reverted"), n)
		return nil

	case strings.HasPrefix(id, "apl_"):
		if err := sm.RevertApply(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s\n", okStyle.Render("reverted"), id)
		return nil

	case strings.HasPrefix(id, "stg_"):
		if err := sm.DiscardStage(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s\n", okStyle.Render("discarded"), id)
		return nil

	default:
		return fmt.Errorf("expected a ses_, apl_ or stg_ id, got %q", id)
	}
}
