package staging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/termfx/graft/core"
	"github.com/termfx/graft/models"
)

// writeGuard remembers what a file held before an apply or revert wrote it,
// so a failed transaction can put the content back.
type writeGuard struct {
	path     string
	previous []byte
	mode     os.FileMode
}

func (g *writeGuard) Rollback() error {
	if g == nil {
		return nil
	}
	return os.WriteFile(g.path, g.previous, g.mode)
}

// ApplyStage commits one pending stage to disk and records the apply.
// With autoApplied the run already wrote the file; only bookkeeping happens.
func (m *Manager) ApplyStage(ctx context.Context, stageID string, autoApplied bool) (*models.Apply, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		apply *models.Apply
		guard *writeGuard
	)

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		var stage models.Stage
		if err := tx.First(&stage, "id = ?", stageID).Error; err != nil {
			return fmt.Errorf("stage not found: %w", err)
		}

		if stage.Status != StatusPending {
			return fmt.Errorf("stage already %s", stage.Status)
		}

		if time.Now().After(stage.ExpiresAt) {
			stage.Status = StatusExpired
			tx.Save(&stage)
			return fmt.Errorf("stage expired")
		}

		if stage.SessionID != "" && m.config.MaxAppliesPerSession > 0 {
			var applyCount int64
			if err := tx.Model(&models.Apply{}).
				Where("session_id = ?", stage.SessionID).
				Count(&applyCount).Error; err != nil {
				return fmt.Errorf("failed to check apply count: %w", err)
			}
			if applyCount >= int64(m.config.MaxAppliesPerSession) {
				return fmt.Errorf("session apply limit exceeded: %d >= %d",
					applyCount, m.config.MaxAppliesPerSession)
			}
		}

		if !autoApplied {
			var err error
			guard, err = m.writeStage(&stage)
			if err != nil {
				return err
			}
		}

		appliedBy := "cli"
		if autoApplied {
			appliedBy = "auto"
		}
		apply = &models.Apply{
			ID:          newID("apl"),
			StageID:     stage.ID,
			SessionID:   stage.SessionID,
			FilePath:    stage.FilePath,
			BaseDigest:  stage.BaseDigest,
			AfterDigest: stage.AfterDigest,
			AutoApplied: autoApplied,
			AppliedBy:   appliedBy,
		}
		if err := tx.Create(apply).Error; err != nil {
			return fmt.Errorf("failed to create apply record: %w", err)
		}

		now := time.Now()
		stage.Status = StatusApplied
		stage.AppliedAt = &now
		if err := tx.Save(&stage).Error; err != nil {
			return fmt.Errorf("failed to update stage: %w", err)
		}

		if stage.SessionID != "" {
			tx.Model(&models.Session{}).
				Where("id = ?", stage.SessionID).
				Update("applies_count", gorm.Expr("applies_count + ?", 1))
		}

		return nil
	})
	if err != nil {
		if guard != nil {
			if rbErr := guard.Rollback(); rbErr != nil {
				m.log.Error().Err(rbErr).Str("path", guard.path).Msg("rollback write failed")
			}
		}
		return nil, err
	}

	m.log.Info().
		Str("stage", stageID).
		Str("apply", apply.ID).
		Str("file", apply.FilePath).
		Msg("stage applied")
	return apply, nil
}

// writeStage verifies the on-disk content still matches the stage's base
// digest, then writes the modified content atomically.
func (m *Manager) writeStage(stage *models.Stage) (*writeGuard, error) {
	if stage.FilePath == "" {
		return nil, fmt.Errorf("stage %s has no file path", stage.ID)
	}
	if stage.Modified == "" {
		return nil, fmt.Errorf("stage %s has no modified content", stage.ID)
	}

	current, err := os.ReadFile(stage.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", stage.FilePath, err)
	}
	if stage.BaseDigest != "" && core.Digest(current) != stage.BaseDigest {
		return nil, fmt.Errorf("file %s changed since staging", stage.FilePath)
	}

	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(stage.FilePath); statErr == nil {
		mode = info.Mode().Perm()
	}

	if err := m.writer.WriteFile(stage.FilePath, stage.Modified); err != nil {
		return nil, err
	}

	return &writeGuard{path: stage.FilePath, previous: current, mode: mode}, nil
}

// ApplyAll commits every pending stage of a session in creation order. A
// failing stage does not stop the rest; the returned error joins the
// per-stage failures.
func (m *Manager) ApplyAll(ctx context.Context, sessionID string) ([]*models.Apply, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	stages, err := m.ListPending(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var (
		applied []*models.Apply
		errs    []error
	)
	for i := range stages {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		apply, err := m.ApplyStage(ctx, stages[i].ID, false)
		if err != nil {
			errs = append(errs, fmt.Errorf("stage %s: %w", stages[i].ID, err))
			continue
		}
		applied = append(applied, apply)
	}
	return applied, errors.Join(errs...)
}

// RevertApply restores the original content of an applied stage. The file
// must still hold exactly what the apply wrote.
func (m *Manager) RevertApply(ctx context.Context, applyID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var guard *writeGuard
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var apply models.Apply
		if err := tx.Preload("Stage").First(&apply, "id = ?", applyID).Error; err != nil {
			return fmt.Errorf("apply not found: %w", err)
		}
		if apply.Reverted {
			return fmt.Errorf("apply %s already reverted", applyID)
		}

		stage := apply.Stage
		if stage.ID == "" {
			return fmt.Errorf("apply %s has no stage", applyID)
		}

		current, err := os.ReadFile(stage.FilePath)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", stage.FilePath, err)
		}
		if stage.AfterDigest != "" && core.Digest(current) != stage.AfterDigest {
			return fmt.Errorf("file %s changed since apply", stage.FilePath)
		}

		mode := os.FileMode(0o644)
		if info, statErr := os.Stat(stage.FilePath); statErr == nil {
			mode = info.Mode().Perm()
		}
		if err := m.writer.WriteFile(stage.FilePath, stage.Original); err != nil {
			return err
		}
		guard = &writeGuard{path: stage.FilePath, previous: current, mode: mode}

		now := time.Now()
		if err := tx.Model(&models.Apply{}).
			Where("id = ?", apply.ID).
			Updates(map[string]any{
				"reverted":    true,
				"reverted_by": "cli",
				"reverted_at": &now,
			}).Error; err != nil {
			return fmt.Errorf("failed to update apply: %w", err)
		}

		return tx.Model(&models.Stage{}).
			Where("id = ?", stage.ID).
			Update("status", StatusReverted).Error
	})
	if err != nil {
		if guard != nil {
			if rbErr := guard.Rollback(); rbErr != nil {
				m.log.Error().Err(rbErr).Str("path", guard.path).Msg("rollback write failed")
			}
		}
		return err
	}

	m.log.Info().Str("apply", applyID).Msg("apply reverted")
	return nil
}

// RevertSession undoes every applied stage of a session, newest apply
// first. It returns how many applies were reverted.
func (m *Manager) RevertSession(ctx context.Context, sessionID string) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var applies []models.Apply
	if err := m.db.WithContext(ctx).
		Where("session_id = ? AND reverted = ?", sessionID, false).
		Order("applied_at DESC").
		Find(&applies).Error; err != nil {
		return 0, err
	}

	reverted := 0
	var errs []error
	for i := range applies {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := m.RevertApply(ctx, applies[i].ID); err != nil {
			errs = append(errs, fmt.Errorf("apply %s: %w", applies[i].ID, err))
			continue
		}
		reverted++
	}
	return reverted, errors.Join(errs...)
}

// DiscardStage drops a pending stage without touching its file.
func (m *Manager) DiscardStage(ctx context.Context, stageID string) error {
	result := m.db.WithContext(ctx).Model(&models.Stage{}).
		Where("id = ? AND status = ?", stageID, StatusPending).
		Update("status", StatusDropped)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no pending stage %s", stageID)
	}
	return nil
}

// CleanupExpired marks pending stages whose TTL has passed.
func (m *Manager) CleanupExpired(ctx context.Context) (int64, error) {
	result := m.db.WithContext(ctx).Model(&models.Stage{}).
		Where("status = ? AND expires_at < ?", StatusPending, time.Now()).
		Update("status", StatusExpired)
	return result.RowsAffected, result.Error
}

// Prune marks expired stages and deletes the expired and dropped ones.
// Applied and reverted stages stay; they are the journal reverts rely on.
func (m *Manager) Prune(ctx context.Context, sessionID string) (int64, error) {
	if _, err := m.CleanupExpired(ctx); err != nil {
		return 0, err
	}

	query := m.db.WithContext(ctx).
		Where("status IN ?", []string{StatusExpired, StatusDropped})
	if sessionID != "" {
		query = query.Where("session_id = ?", sessionID)
	}
	result := query.Delete(&models.Stage{})
	return result.RowsAffected, result.Error
}
