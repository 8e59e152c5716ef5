package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/termfx/graft/lang"
)

// skipDirs are directory names never descended into, regardless of scope
// patterns. The staging database directory is covered by ".graft".
var skipDirs = map[string]struct{}{
	".git":         {},
	".graft":       {},
	"node_modules": {},
	"vendor":       {},
	"dist":         {},
	"build":        {},
}

// SkipDir reports whether a directory name is always excluded from scans.
func SkipDir(name string) bool {
	_, ok := skipDirs[name]
	return ok
}

// FileWalker discovers candidate files under a scope root in parallel.
type FileWalker struct {
	langs      *lang.Registry
	workers    int
	bufferSize int
}

// NewFileWalker creates a walker that detects languages via the registry.
func NewFileWalker(langs *lang.Registry) *FileWalker {
	return &FileWalker{
		langs:      langs,
		workers:    runtime.NumCPU() * 2, // 2x CPU cores for I/O bound work
		bufferSize: 1000,                 // Channel buffer size
	}
}

// WalkResult represents a discovered file. Language is empty when no
// registered grammar claims the file's extension.
type WalkResult struct {
	File  FileInfo
	Error error
}

// Walk performs parallel directory traversal with pattern matching.
func (fw *FileWalker) Walk(ctx context.Context, scope Scope) (<-chan WalkResult, error) {
	if err := fw.validateScope(scope); err != nil {
		return nil, err
	}

	results := make(chan WalkResult, fw.bufferSize)
	paths := make(chan string, fw.bufferSize)

	var wg sync.WaitGroup
	for i := 0; i < fw.workers; i++ {
		wg.Add(1)
		go fw.worker(ctx, paths, results, scope, &wg)
	}

	// Directory scanning is single-goroutine so MaxFiles and the visited
	// set need no locking.
	go func() {
		defer close(paths)
		processed := 0
		var visited map[string]struct{}
		if scope.FollowSymlinks {
			visited = make(map[string]struct{})
			if resolved, err := filepath.EvalSymlinks(scope.Root); err == nil {
				visited[resolved] = struct{}{}
			} else {
				visited[scope.Root] = struct{}{}
			}
		}
		fw.scanDirectory(ctx, scope.Root, scope, paths, 0, &processed, visited)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	return results, nil
}

// worker stats and classifies file paths in parallel.
func (fw *FileWalker) worker(
	ctx context.Context,
	paths <-chan string,
	results chan<- WalkResult,
	scope Scope,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-paths:
			if !ok {
				return
			}

			result := fw.processFile(path, scope)

			select {
			case <-ctx.Done():
				return
			case results <- result:
			}
		}
	}
}

// scanDirectory recursively discovers files matching the scope patterns.
func (fw *FileWalker) scanDirectory(
	ctx context.Context,
	dirPath string,
	scope Scope,
	paths chan<- string,
	depth int,
	processed *int,
	visited map[string]struct{},
) {
	if scope.MaxFiles > 0 && *processed >= scope.MaxFiles {
		return
	}
	select {
	case <-ctx.Done():
		return
	default:
	}

	if scope.MaxDepth > 0 && depth > scope.MaxDepth {
		return
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return // Skip directories we can't read
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fullPath := filepath.Join(dirPath, entry.Name())

		if fw.isExcluded(fullPath, scope.Exclude) {
			continue
		}

		// Handle symlinked directories when allowed
		if entry.Type()&os.ModeSymlink != 0 && scope.FollowSymlinks {
			resolvedPath, err := filepath.EvalSymlinks(fullPath)
			if err != nil || resolvedPath == "" {
				continue
			}

			info, err := os.Stat(resolvedPath)
			if err != nil {
				continue
			}

			if info.IsDir() {
				if _, skip := skipDirs[entry.Name()]; skip {
					continue
				}
				if visited != nil {
					if _, seen := visited[resolvedPath]; seen {
						continue
					}
					visited[resolvedPath] = struct{}{}
				}
				fw.scanDirectory(ctx, fullPath, scope, paths, depth+1, processed, visited)
				continue
			}
		}

		if entry.IsDir() {
			if _, skip := skipDirs[entry.Name()]; skip {
				continue
			}
			if visited != nil {
				realPath := fullPath
				if resolved, err := filepath.EvalSymlinks(fullPath); err == nil && resolved != "" {
					realPath = resolved
				}
				if _, seen := visited[realPath]; seen {
					continue
				}
				visited[realPath] = struct{}{}
			}

			fw.scanDirectory(ctx, fullPath, scope, paths, depth+1, processed, visited)
			continue
		}

		if fw.isIncluded(fullPath, scope.Include) {
			if scope.MaxFiles > 0 && *processed >= scope.MaxFiles {
				return
			}
			select {
			case <-ctx.Done():
				return
			case paths <- fullPath:
				*processed++
			}
		}
	}
}

// processFile stats a single file and fills in its FileInfo.
func (fw *FileWalker) processFile(path string, scope Scope) WalkResult {
	info, err := os.Stat(path)
	if err != nil {
		return WalkResult{File: FileInfo{Path: path}, Error: err}
	}

	language := scope.Language
	if language == "" {
		language = fw.detectLanguage(path)
	}

	rel, err := filepath.Rel(scope.Root, path)
	if err != nil {
		rel = path
	}

	return WalkResult{
		File: FileInfo{
			Path:     path,
			RelPath:  rel,
			Size:     info.Size(),
			ModTime:  info.ModTime().Unix(),
			Language: language,
		},
	}
}

// detectLanguage resolves a file extension against the grammar registry.
// Returns "" when no grammar claims the extension.
func (fw *FileWalker) detectLanguage(path string) string {
	if fw.langs == nil {
		return ""
	}
	if g, ok := fw.langs.ByExtension(filepath.Ext(path)); ok {
		return g.ID()
	}
	return ""
}

// isIncluded checks if a file matches the include patterns.
func (fw *FileWalker) isIncluded(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return true // Include all if no patterns specified
	}

	for _, pattern := range patterns {
		if fw.matchPattern(path, pattern) {
			return true
		}
	}
	return false
}

// isExcluded checks if a file matches the exclude patterns.
func (fw *FileWalker) isExcluded(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if fw.matchPattern(path, pattern) {
			return true
		}
	}
	return false
}

// matchPattern performs glob-style pattern matching with ** support.
func (fw *FileWalker) matchPattern(path, pattern string) bool {
	if matched, err := doublestar.PathMatch(pattern, path); err == nil && matched {
		return true
	}

	// Try basename for simple patterns without path separators
	if !strings.Contains(pattern, "/") {
		basename := filepath.Base(path)
		if matched, err := doublestar.PathMatch(pattern, basename); err == nil && matched {
			return true
		}
	}

	return false
}

// validateScope checks scope parameters before a walk starts.
func (fw *FileWalker) validateScope(scope Scope) error {
	if scope.Root == "" {
		return fmt.Errorf("scope root is required")
	}

	info, err := os.Stat(scope.Root)
	if err != nil {
		return fmt.Errorf("cannot access path %s: %w", scope.Root, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path %s is not a directory", scope.Root)
	}

	return nil
}

// FastScan collects matching file paths without exposing the result channel.
func (fw *FileWalker) FastScan(ctx context.Context, scope Scope) ([]string, error) {
	var files []string

	results, err := fw.Walk(ctx, scope)
	if err != nil {
		return nil, err
	}

	for result := range results {
		if result.Error != nil {
			continue
		}
		files = append(files, result.File.Path)
	}

	return files, nil
}

// LanguageStats counts discovered files by detected language. Files whose
// extension no grammar claims are grouped under "".
func (fw *FileWalker) LanguageStats(ctx context.Context, scope Scope) (map[string]int, error) {
	stats := make(map[string]int)

	results, err := fw.Walk(ctx, scope)
	if err != nil {
		return nil, err
	}

	for result := range results {
		if result.Error != nil {
			continue
		}
		stats[result.File.Language]++
	}

	return stats, nil
}
