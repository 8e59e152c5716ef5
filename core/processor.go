// Package core runs compiled pattern programs across file trees: scope
// discovery, parallel per-file matching, diff generation, and atomic
// writes back to disk.
package core

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"

	"github.com/termfx/graft/engine"
	"github.com/termfx/graft/lang"
	"github.com/termfx/graft/pattern"
)

// ProcessorOptions configures a Processor.
type ProcessorOptions struct {
	Workers int           // Parallel file workers, 0 = default
	Limits  engine.Limits // Match budgets, zero values = defaults
	Timeout time.Duration // Wall clock per file, 0 = none
	Writer  *AtomicWriter // nil = a writer with default config
	Logger  *zerolog.Logger
}

// Processor matches one compiled program against many files.
type Processor struct {
	prog    *pattern.Program
	grammar lang.Grammar
	langs   *lang.Registry
	walker  *FileWalker
	writer  *AtomicWriter
	eng     *engine.Engine
	workers int
	timeout time.Duration
	log     zerolog.Logger
}

// NewProcessor builds a processor for one compiled program. The program's
// language must be registered.
func NewProcessor(prog *pattern.Program, langs *lang.Registry, opts ProcessorOptions) (*Processor, error) {
	if prog == nil {
		return nil, fmt.Errorf("nil pattern program")
	}
	if langs == nil {
		langs = lang.DefaultRegistry()
	}
	grammar, ok := langs.Get(prog.Language)
	if !ok {
		return nil, fmt.Errorf("language %q is not registered", prog.Language)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 8 // Parallel file processing workers
	}
	writer := opts.Writer
	if writer == nil {
		writer = NewAtomicWriter(DefaultAtomicConfig())
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Processor{
		prog:    prog,
		grammar: grammar,
		langs:   langs,
		walker:  NewFileWalker(langs),
		writer:  writer,
		eng:     engine.New(prog, engine.Options{Limits: opts.Limits, Logger: opts.Logger}),
		workers: workers,
		timeout: opts.Timeout,
		log:     logger,
	}, nil
}

// Walker exposes the processor's file walker for scope inspection.
func (p *Processor) Walker() *FileWalker {
	return p.walker
}

// Language returns the language the program targets.
func (p *Processor) Language() string {
	return p.prog.Language
}

// Run matches the program against every file in scope. With write false the
// run is a preview: results carry diffs and digests but nothing touches disk.
func (p *Processor) Run(ctx context.Context, scope Scope, write bool) (*RunResult, error) {
	start := time.Now()

	walkResults, err := p.walker.Walk(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to walk files: %w", err)
	}

	// Only files in the program's language are candidates. Scope patterns
	// may be broader than the language's extensions.
	var files []FileInfo
	for result := range walkResults {
		if result.Error != nil {
			continue
		}
		if result.File.Language != p.prog.Language {
			continue
		}
		files = append(files, result.File)
	}

	scanDuration := time.Since(start)
	matchStart := time.Now()

	resultChan := make(chan FileResult, len(files))
	var wg sync.WaitGroup

	semaphore := make(chan struct{}, p.workers)

	for _, file := range files {
		wg.Add(1)
		go func(fi FileInfo) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			resultChan <- p.processOne(ctx, fi, write)
		}(file)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	out := &RunResult{FilesScanned: len(files)}
	for res := range resultChan {
		out.Files = append(out.Files, res)
		out.TotalMatches += len(res.Matches)
		out.TotalEdits += len(res.Edits)
		if len(res.Matches) > 0 {
			out.FilesMatched++
		}
		if res.Changed {
			out.FilesChanged++
		}
		if res.Written {
			out.FilesWritten++
		}
		if res.Error != "" {
			out.FilesFailed++
		}
	}

	// Workers finish in arbitrary order.
	sort.Slice(out.Files, func(i, j int) bool { return out.Files[i].Path < out.Files[j].Path })

	matchDuration := time.Since(matchStart)
	out.ScanDuration = scanDuration.Milliseconds()
	out.MatchDuration = matchDuration.Milliseconds()

	p.log.Debug().
		Int("scanned", out.FilesScanned).
		Int("matched", out.FilesMatched).
		Int("changed", out.FilesChanged).
		Int("failed", out.FilesFailed).
		Dur("scan", scanDuration).
		Dur("match", matchDuration).
		Msg("run complete")

	return out, nil
}

// RunFile processes a single file, bypassing scope discovery. The file's
// extension must resolve to the program's language.
func (p *Processor) RunFile(ctx context.Context, path string, write bool) (*FileResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path %s is a directory", path)
	}

	language := ""
	if g, ok := p.langs.ByExtension(filepath.Ext(path)); ok {
		language = g.ID()
	}
	if language != p.prog.Language {
		return nil, fmt.Errorf("file %s is not %s", path, p.prog.Language)
	}

	res := p.processOne(ctx, FileInfo{
		Path:     path,
		RelPath:  filepath.Base(path),
		Size:     info.Size(),
		ModTime:  info.ModTime().Unix(),
		Language: language,
	}, write)
	return &res, nil
}

// processOne runs the program over one file. Failures are recorded on the
// result so one bad file never aborts the run.
func (p *Processor) processOne(ctx context.Context, file FileInfo, write bool) FileResult {
	res := FileResult{Path: file.Path, Language: file.Language}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	content, err := os.ReadFile(file.Path)
	if err != nil {
		res.Error = fmt.Sprintf("failed to read file: %v", err)
		return res
	}

	tree, err := p.grammar.Parse(ctx, content)
	if err != nil {
		res.Error = fmt.Sprintf("parse failed: %v", err)
		return res
	}
	defer tree.Close()

	run, err := p.eng.Run(ctx, tree)
	if err != nil {
		res.Error = fmt.Sprintf("match failed: %v", err)
		return res
	}

	res.Matches = run.Matches
	res.Edits = run.Edits
	res.Diagnostics = run.Diagnostics
	if len(run.Edits) == 0 {
		return res
	}

	modified, err := engine.Apply(content, run.Edits)
	if err != nil {
		res.Error = fmt.Sprintf("rewrite failed: %v", err)
		return res
	}

	original := string(content)
	if modified == original {
		return res // Edits cancelled out
	}

	res.Changed = true
	res.Original = original
	res.Modified = modified
	res.Diff = unifiedDiff(file.RelPath, original, modified)
	res.BaseDigest = Digest(content)
	res.AfterDigest = Digest([]byte(modified))

	if write {
		if err := p.writer.WriteFile(file.Path, modified); err != nil {
			res.Error = fmt.Sprintf("failed to write file: %v", err)
			return res
		}
		res.Written = true
		p.log.Debug().Str("path", file.Path).Int("edits", len(res.Edits)).Msg("file rewritten")
	}

	return res
}

// Cleanup releases writer locks. Call on shutdown.
func (p *Processor) Cleanup() {
	if p.writer != nil {
		p.writer.Cleanup()
	}
}

// Digest returns the hex SHA-256 of content, the integrity check used when
// staged edits are applied later.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return fmt.Sprintf("%x", sum)
}

// unifiedDiff renders a unified diff between two versions of a file.
func unifiedDiff(path, original, modified string) string {
	if original == modified {
		return ""
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(modified),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	}

	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Sprintf("--- a/%s\n+++ b/%s\n@@ changes @@\n%d bytes -> %d bytes",
			path, path, len(original), len(modified))
	}

	return text
}
