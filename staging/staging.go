// Package staging records pending file rewrites in the session database,
// applies them to disk with digest verification, and reverts what was
// applied. A run stages its results; committing is a separate step.
package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/termfx/graft/core"
	"github.com/termfx/graft/models"
)

// Stage status values.
const (
	StatusPending  = "pending"
	StatusApplied  = "applied"
	StatusExpired  = "expired"
	StatusDropped  = "dropped"
	StatusReverted = "reverted"
)

// Config bounds what a session may accumulate.
type Config struct {
	TTL                  time.Duration // How long stages stay applicable
	MaxStagesPerSession  int           // 0 = unlimited
	MaxAppliesPerSession int           // 0 = unlimited
}

// DefaultConfig returns the staging defaults.
func DefaultConfig() Config {
	return Config{
		TTL:                 15 * time.Minute,
		MaxStagesPerSession: 500,
	}
}

// Manager owns the staging lifecycle against one database.
type Manager struct {
	db     *gorm.DB
	config Config
	writer *core.AtomicWriter
	log    zerolog.Logger
}

// NewManager creates a staging manager. A nil writer gets the default
// atomic writer; a nil logger disables logging.
func NewManager(conn *gorm.DB, config Config, writer *core.AtomicWriter, logger *zerolog.Logger) *Manager {
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}
	if writer == nil {
		writer = core.NewAtomicWriter(core.DefaultAtomicConfig())
	}
	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}
	return &Manager{
		db:     conn,
		config: config,
		writer: writer,
		log:    log,
	}
}

// IsEnabled reports whether staging is active. The manager is enabled
// whenever it has a backing database connection.
func (m *Manager) IsEnabled() bool {
	return m != nil && m.db != nil
}

// Close releases the database connection and any abandoned file locks.
func (m *Manager) Close() error {
	if !m.IsEnabled() {
		return nil
	}
	m.writer.Cleanup()
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// BeginSession opens a session for one run. Meta is stored as JSON.
func (m *Manager) BeginSession(ctx context.Context, root, patternName string, meta map[string]any) (*models.Session, error) {
	session := &models.Session{
		ID:          newID("ses"),
		Root:        root,
		PatternName: patternName,
	}
	if len(meta) > 0 {
		raw, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("failed to encode session meta: %w", err)
		}
		session.Meta = datatypes.JSON(raw)
	}

	if err := m.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}

	m.log.Debug().Str("session", session.ID).Str("root", root).Msg("session started")
	return session, nil
}

// EndSession stamps the session as finished.
func (m *Manager) EndSession(ctx context.Context, sessionID string) error {
	now := time.Now()
	return m.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("ended_at", &now).Error
}

// GetSession retrieves a session by ID.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	if err := m.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions returns the most recent sessions, newest first.
func (m *Manager) ListSessions(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	var sessions []models.Session
	err := m.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// StageFromResult converts one changed file result into a stage record.
func StageFromResult(sessionID, patternName, patternSrc string, res core.FileResult) (*models.Stage, error) {
	if !res.Changed {
		return nil, fmt.Errorf("file %s has no changes to stage", res.Path)
	}

	edits, err := json.Marshal(res.Edits)
	if err != nil {
		return nil, fmt.Errorf("failed to encode edits: %w", err)
	}

	return &models.Stage{
		SessionID:   sessionID,
		Language:    res.Language,
		PatternName: patternName,
		PatternSrc:  patternSrc,
		FilePath:    res.Path,
		MatchCount:  len(res.Matches),
		Edits:       datatypes.JSON(edits),
		Original:    res.Original,
		Modified:    res.Modified,
		Diff:        res.Diff,
		BaseDigest:  res.BaseDigest,
		AfterDigest: res.AfterDigest,
	}, nil
}

// CreateStage persists a stage, enforcing session limits and honoring
// cancellation.
func (m *Manager) CreateStage(ctx context.Context, stage *models.Stage) error {
	if stage == nil {
		return fmt.Errorf("stage cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	conn := m.db.WithContext(ctx)

	if stage.SessionID != "" && m.config.MaxStagesPerSession > 0 {
		var pendingCount int64
		if err := conn.Model(&models.Stage{}).
			Where("session_id = ? AND status = ?", stage.SessionID, StatusPending).
			Count(&pendingCount).Error; err != nil {
			return fmt.Errorf("failed to check stage count: %w", err)
		}
		if pendingCount >= int64(m.config.MaxStagesPerSession) {
			return fmt.Errorf("session stage limit exceeded: %d >= %d",
				pendingCount, m.config.MaxStagesPerSession)
		}
	}

	if stage.ID == "" {
		stage.ID = newID("stg")
	}
	if stage.Status == "" {
		stage.Status = StatusPending
	}
	if stage.ExpiresAt.IsZero() {
		stage.ExpiresAt = time.Now().Add(m.config.TTL)
	}

	if err := conn.Create(stage).Error; err != nil {
		return err
	}

	if stage.SessionID != "" {
		conn.Model(&models.Session{}).
			Where("id = ?", stage.SessionID).
			Update("stages_count", gorm.Expr("stages_count + ?", 1))
	}

	m.log.Debug().Str("stage", stage.ID).Str("file", stage.FilePath).Msg("stage created")
	return ctx.Err()
}

// GetStage retrieves a stage by ID.
func (m *Manager) GetStage(ctx context.Context, stageID string) (*models.Stage, error) {
	var stage models.Stage
	if err := m.db.WithContext(ctx).First(&stage, "id = ?", stageID).Error; err != nil {
		return nil, err
	}
	return &stage, nil
}

// ListPending returns pending stages in creation order, the order ApplyAll
// commits them. An empty sessionID lists pending stages across sessions.
func (m *Manager) ListPending(ctx context.Context, sessionID string) ([]models.Stage, error) {
	query := m.db.WithContext(ctx).Where("status = ?", StatusPending)
	if sessionID != "" {
		query = query.Where("session_id = ?", sessionID)
	}
	var stages []models.Stage
	err := query.Order("created_at ASC").Find(&stages).Error
	return stages, err
}

// newID creates a unique identifier with a prefix.
func newID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s_%s", prefix, raw[:16])
}
