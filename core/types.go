package core

import (
	"github.com/termfx/graft/engine"
)

// Scope defines which files a run touches
type Scope struct {
	Root           string   `json:"root"`                // Root path to scan
	Include        []string `json:"include,omitempty"`   // File patterns to include (*.js, **/*.ts)
	Exclude        []string `json:"exclude,omitempty"`   // File patterns to exclude
	MaxDepth       int      `json:"max_depth,omitempty"` // Max directory depth (0 = unlimited)
	MaxFiles       int      `json:"max_files,omitempty"` // Max files to process (0 = unlimited)
	FollowSymlinks bool     `json:"follow_symlinks"`     // Follow symbolic links
	Language       string   `json:"language,omitempty"`  // Auto-detect by extension if empty
}

// FileInfo describes a candidate file discovered while scanning a Scope
type FileInfo struct {
	Path     string `json:"path"`     // Absolute file path
	RelPath  string `json:"rel_path"` // Path relative to the scope root
	Size     int64  `json:"size"`     // File size in bytes
	ModTime  int64  `json:"mod_time"` // Last modification time (Unix timestamp)
	Language string `json:"language"` // Detected language
}

// FileResult is the outcome of running a pattern program over one file
type FileResult struct {
	Path        string              `json:"path"`
	Language    string              `json:"language"`
	Matches     []engine.Match      `json:"matches,omitempty"`
	Edits       []engine.Edit       `json:"edits,omitempty"`
	Original    string              `json:"-"` // Content before rewriting, set when changed
	Modified    string              `json:"-"` // Rewritten content, empty when unchanged
	Changed     bool                `json:"changed"`
	Diff        string              `json:"diff,omitempty"`
	BaseDigest  string              `json:"base_digest,omitempty"`  // sha256 of the original content
	AfterDigest string              `json:"after_digest,omitempty"` // sha256 of the rewritten content
	Diagnostics []engine.Diagnostic `json:"diagnostics,omitempty"`
	Error       string              `json:"error,omitempty"`
	Written     bool                `json:"written"` // File was rewritten on disk
}

// RunResult aggregates per-file outcomes for a whole run
type RunResult struct {
	FilesScanned  int          `json:"files_scanned"`     // Total files considered
	FilesMatched  int          `json:"files_matched"`     // Files with at least one match
	FilesChanged  int          `json:"files_changed"`     // Files whose content would change
	FilesWritten  int          `json:"files_written"`     // Files rewritten on disk
	FilesFailed   int          `json:"files_failed"`      // Files that errored
	TotalMatches  int          `json:"total_matches"`     // Matches across all files
	TotalEdits    int          `json:"total_edits"`       // Edits across all files
	ScanDuration  int64        `json:"scan_duration_ms"`  // Time spent discovering files (ms)
	MatchDuration int64        `json:"match_duration_ms"` // Time spent matching and rewriting (ms)
	Files         []FileResult `json:"files"`
}
