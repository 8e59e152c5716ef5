package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/termfx/graft/engine"
	"github.com/termfx/graft/lang"
	"github.com/termfx/graft/pattern"
)

func loadFixtureProgram(t *testing.T) *pattern.Program {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("testdata", "require_import.grit"))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	prog, err := pattern.Compile(string(src))
	if err != nil {
		t.Fatalf("failed to compile fixture: %v", err)
	}
	return prog
}

func newFixtureProcessor(t *testing.T, opts ProcessorOptions) *Processor {
	t.Helper()
	proc, err := NewProcessor(loadFixtureProgram(t), lang.DefaultRegistry(), opts)
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}
	t.Cleanup(proc.Cleanup)
	return proc
}

func findFile(t *testing.T, res *RunResult, path string) FileResult {
	t.Helper()
	for _, f := range res.Files {
		if f.Path == path {
			return f
		}
	}
	t.Fatalf("no result for %s in %d files", path, len(res.Files))
	return FileResult{}
}

func TestNewProcessor_Validation(t *testing.T) {
	if _, err := NewProcessor(nil, lang.DefaultRegistry(), ProcessorOptions{}); err == nil {
		t.Error("expected error for nil program")
	}

	_, err := NewProcessor(loadFixtureProgram(t), lang.NewRegistry(), ProcessorOptions{})
	if err == nil {
		t.Fatal("expected error when program language is unregistered")
	}
	if !strings.Contains(err.Error(), "not registered") {
		t.Errorf("err = %v, want unregistered language", err)
	}
}

func TestProcessor_PreviewRun(t *testing.T) {
	tempDir := t.TempDir()
	original := "const { a, b } = require('mod');\n"
	appJS := writeTestFile(t, tempDir, "src/app.js", original)
	writeTestFile(t, tempDir, "src/plain.js", "function f() {}\n")
	writeTestFile(t, tempDir, "node_modules/dep/index.js", "require('x');\n")
	writeTestFile(t, tempDir, "README.md", "# notes\n")

	proc := newFixtureProcessor(t, ProcessorOptions{})
	res, err := proc.Run(context.Background(), Scope{Root: tempDir}, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.FilesScanned != 2 {
		t.Errorf("FilesScanned = %d, want 2", res.FilesScanned)
	}
	if res.FilesMatched != 1 || res.FilesChanged != 1 {
		t.Errorf("matched/changed = %d/%d, want 1/1", res.FilesMatched, res.FilesChanged)
	}
	if res.FilesWritten != 0 || res.FilesFailed != 0 {
		t.Errorf("written/failed = %d/%d, want 0/0", res.FilesWritten, res.FilesFailed)
	}
	if res.TotalMatches != 1 || res.TotalEdits != 1 {
		t.Errorf("matches/edits = %d/%d, want 1/1", res.TotalMatches, res.TotalEdits)
	}

	app := findFile(t, res, appJS)
	if !app.Changed || app.Written {
		t.Errorf("Changed = %v, Written = %v", app.Changed, app.Written)
	}
	if len(app.Matches) != 1 || app.Matches[0].Kind != "lexical_declaration" {
		t.Fatalf("matches = %+v", app.Matches)
	}
	if want := "import { a, b, } from mod;\n"; app.Modified != want {
		t.Errorf("Modified = %q, want %q", app.Modified, want)
	}
	if app.BaseDigest != Digest([]byte(original)) {
		t.Errorf("BaseDigest mismatch")
	}
	if app.AfterDigest != Digest([]byte(app.Modified)) {
		t.Errorf("AfterDigest mismatch")
	}
	if !strings.Contains(app.Diff, "-const { a, b } = require('mod');") ||
		!strings.Contains(app.Diff, "+import { a, b, } from mod;") {
		t.Errorf("Diff = %q", app.Diff)
	}
	if len(app.Diagnostics) != 0 {
		t.Errorf("Diagnostics = %v", app.Diagnostics)
	}

	// Preview must not touch disk.
	onDisk, err := os.ReadFile(appJS)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(onDisk) != original {
		t.Errorf("preview modified the file: %q", onDisk)
	}
}

func TestProcessor_WriteRun(t *testing.T) {
	tempDir := t.TempDir()
	appJS := writeTestFile(t, tempDir, "app.js", "const { a, b } = require('mod');\n")

	proc := newFixtureProcessor(t, ProcessorOptions{})
	res, err := proc.Run(context.Background(), Scope{Root: tempDir}, true)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.FilesWritten != 1 {
		t.Fatalf("FilesWritten = %d, want 1", res.FilesWritten)
	}
	app := findFile(t, res, appJS)
	if !app.Written {
		t.Error("Written should be true")
	}

	onDisk, err := os.ReadFile(appJS)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if want := "import { a, b, } from mod;\n"; string(onDisk) != want {
		t.Errorf("on disk = %q, want %q", onDisk, want)
	}
	if Digest(onDisk) != app.AfterDigest {
		t.Error("disk content does not match AfterDigest")
	}

	// A second run over the rewritten tree finds nothing to do.
	res, err = proc.Run(context.Background(), Scope{Root: tempDir}, true)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if res.FilesMatched != 0 || res.FilesChanged != 0 || res.FilesWritten != 0 {
		t.Errorf("second run matched/changed/wrote = %d/%d/%d, want 0/0/0",
			res.FilesMatched, res.FilesChanged, res.FilesWritten)
	}
}

func TestProcessor_RunFile(t *testing.T) {
	tempDir := t.TempDir()
	appJS := writeTestFile(t, tempDir, "app.js", "require('mod');\n")

	proc := newFixtureProcessor(t, ProcessorOptions{})
	res, err := proc.RunFile(context.Background(), appJS, false)
	if err != nil {
		t.Fatalf("RunFile failed: %v", err)
	}

	if !res.Changed {
		t.Error("Changed should be true")
	}
	if want := "import mod\n"; res.Modified != want {
		t.Errorf("Modified = %q, want %q", res.Modified, want)
	}
	if len(res.Matches) != 1 || res.Matches[0].Kind != "expression_statement" {
		t.Errorf("matches = %+v", res.Matches)
	}
}

func TestProcessor_RunFileRejectsOtherLanguages(t *testing.T) {
	tempDir := t.TempDir()
	notes := writeTestFile(t, tempDir, "notes.md", "# notes\n")

	proc := newFixtureProcessor(t, ProcessorOptions{})
	if _, err := proc.RunFile(context.Background(), notes, false); err == nil {
		t.Error("expected error for non-javascript file")
	}
	if _, err := proc.RunFile(context.Background(), tempDir, false); err == nil {
		t.Error("expected error for directory path")
	}
}

func TestProcessor_BudgetErrorsAreIsolated(t *testing.T) {
	tempDir := t.TempDir()
	writeTestFile(t, tempDir, "a.js", "const x = require('mod');\n")
	writeTestFile(t, tempDir, "b.js", "const y = require('mod');\n")

	proc := newFixtureProcessor(t, ProcessorOptions{
		Limits: engine.Limits{MaxSteps: 2, MaxDepth: 512},
	})
	res, err := proc.Run(context.Background(), Scope{Root: tempDir}, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.FilesFailed != 2 {
		t.Fatalf("FilesFailed = %d, want 2", res.FilesFailed)
	}
	for _, f := range res.Files {
		if !strings.Contains(f.Error, "step budget exhausted") {
			t.Errorf("file %s error = %q", f.Path, f.Error)
		}
		if f.Changed || f.Written {
			t.Errorf("failed file %s reported as changed", f.Path)
		}
	}
}

func TestProcessor_PerFileTimeout(t *testing.T) {
	tempDir := t.TempDir()
	appJS := writeTestFile(t, tempDir, "app.js", "require('mod');\n")

	proc := newFixtureProcessor(t, ProcessorOptions{Timeout: time.Nanosecond})
	res, err := proc.Run(context.Background(), Scope{Root: tempDir}, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.FilesFailed != 1 {
		t.Fatalf("FilesFailed = %d, want 1", res.FilesFailed)
	}
	app := findFile(t, res, appJS)
	if !strings.Contains(app.Error, "context deadline exceeded") {
		t.Errorf("Error = %q, want deadline exceeded", app.Error)
	}
	if app.Changed {
		t.Error("timed-out file reported as changed")
	}
}

func TestDigest(t *testing.T) {
	got := Digest([]byte("hello"))
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("Digest = %s, want %s", got, want)
	}
}

func TestUnifiedDiff(t *testing.T) {
	if d := unifiedDiff("x.js", "same\n", "same\n"); d != "" {
		t.Errorf("identical content produced diff %q", d)
	}

	d := unifiedDiff("src/x.js", "old line\n", "new line\n")
	if !strings.Contains(d, "--- a/src/x.js") || !strings.Contains(d, "+++ b/src/x.js") {
		t.Errorf("diff headers missing: %q", d)
	}
	if !strings.Contains(d, "-old line") || !strings.Contains(d, "+new line") {
		t.Errorf("diff body missing: %q", d)
	}
}
