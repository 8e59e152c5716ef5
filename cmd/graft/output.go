package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/termfx/graft/core"
	"github.com/termfx/graft/models"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	addStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	delStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hunkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	faintStyle = lipgloss.NewStyle().Faint(true)
	boldStyle  = lipgloss.NewStyle().Bold(true)
)

func printFileResult(w io.Writer, res *core.FileResult, showDiff bool) {
	if res.Error != "" {
		fmt.Fprintf(w, "%s %s: %s\n", errStyle.Render("✗"), res.Path, res.Error)
		return
	}
	if !res.Changed {
		if len(res.Matches) > 0 {
			fmt.Fprintf(w, "%s %s %s\n", okStyle.Render("✓"), res.Path,
				faintStyle.Render(fmt.Sprintf("(%d matches, no rewrite)", len(res.Matches))))
		}
		return
	}

	marker := ""
	if res.Written {
		marker = " " + boldStyle.Render("written")
	}
	fmt.Fprintf(w, "%s %s %s%s\n", okStyle.Render("✓"), res.Path,
		faintStyle.Render(fmt.Sprintf("(%d matches, %d edits)", len(res.Matches), len(res.Edits))),
		marker)

	if showDiff && res.Diff != "" {
		printDiff(w, res.Diff)
	}
}

func printDiff(w io.Writer, diff string) {
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+"):
			fmt.Fprintln(w, addStyle.Render(line))
		case strings.HasPrefix(line, "-"):
			fmt.Fprintln(w, delStyle.Render(line))
		case strings.HasPrefix(line, "@@"):
			fmt.Fprintln(w, hunkStyle.Render(line))
		default:
			fmt.Fprintln(w, line)
		}
	}
}

func printRunSummary(w io.Writer, out *core.RunResult, write bool) {
	verb := "would change"
	if write {
		verb = "changed"
	}

	fmt.Fprintf(w, "\nscanned %d files, matched %d, %s %d",
		out.FilesScanned, out.FilesMatched, verb, out.FilesChanged)
	if out.FilesFailed > 0 {
		fmt.Fprintf(w, ", %s", errStyle.Render(fmt.Sprintf("%d failed", out.FilesFailed)))
	}
	fmt.Fprintf(w, " %s\n", faintStyle.Render(fmt.Sprintf("(scan %dms, match %dms)",
		out.ScanDuration, out.MatchDuration)))
}

func printApply(w io.Writer, apply *models.Apply) {
	fmt.Fprintf(w, "%s %s %s %s\n", okStyle.Render("applied"),
		apply.StageID, faintStyle.Render("→"), apply.FilePath)
}

func printSession(w io.Writer, ses models.Session) {
	state := "open"
	if ses.EndedAt != nil {
		state = "closed"
	}
	fmt.Fprintf(w, "%s  %s  %s\n", boldStyle.Render(ses.ID),
		ses.StartedAt.Format(time.DateTime),
		faintStyle.Render(fmt.Sprintf("%s, %d stages, %d applies", state, ses.StagesCount, ses.AppliesCount)))
	if ses.Root != "" || ses.PatternName != "" {
		fmt.Fprintf(w, "        %s\n", faintStyle.Render(fmt.Sprintf("%s @ %s", ses.PatternName, ses.Root)))
	}
}

func printStage(w io.Writer, stage models.Stage) {
	ttl := time.Until(stage.ExpiresAt).Round(time.Second)
	note := fmt.Sprintf("%d matches, expires in %s", stage.MatchCount, ttl)
	if ttl <= 0 {
		note = fmt.Sprintf("%d matches, %s", stage.MatchCount, errStyle.Render("expired"))
	}
	fmt.Fprintf(w, "%s  %s  %s\n", boldStyle.Render(stage.ID), stage.FilePath, faintStyle.Render(note))
}
