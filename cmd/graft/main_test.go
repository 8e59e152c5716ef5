package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/termfx/graft/core"
	"github.com/termfx/graft/db"
	"github.com/termfx/graft/internal/config"
	"github.com/termfx/graft/models"
	"github.com/termfx/graft/staging"
)

// requirePattern rewrites bare require calls to imports, the smallest
// program that produces an edit.
const requirePattern = `language javascript

expression_statement(expression = call_expression(
    function = ` + "`require`" + `,
    arguments = arguments(items = [string(fragments = [$mod])]),
)) => ` + "`import $mod`" + `
`

// setupCLI seeds the package globals that PersistentPreRunE would set and
// resets flag state leaked by earlier tests.
func setupCLI(t *testing.T) {
	t.Helper()
	cfg = config.Default()
	logger = zerolog.Nop()
	flagWrite = false
	flagNoStage = false
	flagShowDiff = false
	flagJSON = false
	flagParseLang = ""
	flagParseDepth = 0
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writePatternFile(t *testing.T, dir, source string) string {
	t.Helper()
	path := filepath.Join(dir, "rewrite.grit")
	writeFile(t, path, source)
	return path
}

func newTestStaging(t *testing.T) *staging.Manager {
	t.Helper()
	conn, err := db.Connect(":memory:", false)
	require.NoError(t, err)
	sm := staging.NewManager(conn, staging.DefaultConfig(), nil, nil)
	t.Cleanup(func() { _ = sm.Close() })
	return sm
}

func beginTestSession(t *testing.T, sm *staging.Manager, patternName string) *models.Session {
	t.Helper()
	ses, err := sm.BeginSession(context.Background(), ".", patternName, nil)
	require.NoError(t, err)
	return ses
}

// stageSeededFile writes original to disk and stages the original→modified
// rewrite, the state "graft run" leaves behind.
func stageSeededFile(t *testing.T, sm *staging.Manager, sessionID, path, original, modified string) *models.Stage {
	t.Helper()
	writeFile(t, path, original)

	stage, err := staging.StageFromResult(sessionID, "require-to-import", requirePattern, core.FileResult{
		Path:        path,
		Language:    "javascript",
		Changed:     true,
		Original:    original,
		Modified:    modified,
		BaseDigest:  core.Digest([]byte(original)),
		AfterDigest: core.Digest([]byte(modified)),
	})
	require.NoError(t, err)
	require.NoError(t, sm.CreateStage(context.Background(), stage))
	return stage
}
