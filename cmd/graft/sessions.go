package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/termfx/graft/staging"
)

var (
	flagSessionsLimit   int
	flagSessionsPending bool
	flagSessionsPrune   bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent sessions and their staged work",
	RunE: func(cmd *cobra.Command, args []string) error {
		sm, err := requireStaging()
		if err != nil {
			return err
		}
		defer sm.Close()

		ctx := cmd.Context()
		w := cmd.OutOrStdout()

		if flagSessionsPrune {
			return runPrune(ctx, w, sm)
		}
		if flagSessionsPending {
			return runPending(ctx, w, sm)
		}
		return runSessions(ctx, w, sm, flagSessionsLimit)
	},
}

func init() {
	sessionsCmd.Flags().IntVar(&flagSessionsLimit, "limit", 20, "number of sessions to list")
	sessionsCmd.Flags().BoolVar(&flagSessionsPending, "pending", false, "list pending stages instead of sessions")
	sessionsCmd.Flags().BoolVar(&flagSessionsPrune, "prune", false, "delete expired and dropped stages")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(ctx context.Context, w io.Writer, sm *staging.Manager, limit int) error {
	sessions, err := sm.ListSessions(ctx, limit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "no sessions")
		return nil
	}
	for _, ses := range sessions {
		printSession(w, ses)
	}
	return nil
}

func runPending(ctx context.Context, w io.Writer, sm *staging.Manager) error {
	stages, err := sm.ListPending(ctx, "")
	if err != nil {
		return err
	}
	if len(stages) == 0 {
		fmt.Fprintln(w, "no pending stages")
		return nil
	}
	for _, stage := range stages {
		printStage(w, stage)
	}
	return nil
}

func runPrune(ctx context.Context, w io.Writer, sm *staging.Manager) error {
	n, err := sm.Prune(ctx, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "pruned %d stages\n", n)
	return nil
}
