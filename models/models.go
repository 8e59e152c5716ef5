// Package models defines the persistence schema for staged rewrites:
// sessions group runs, stages hold pending per-file rewrites, applies
// record what was committed to disk.
package models

import (
	"time"

	"gorm.io/datatypes"
)

// Stage represents one pending file rewrite produced by a run
type Stage struct {
	ID        string `gorm:"primaryKey;type:varchar(20)"`
	SessionID string `gorm:"type:varchar(20);index"`

	// What ran
	Language    string `gorm:"type:varchar(50);not null"`
	PatternName string `gorm:"type:varchar(255)"`       // entry pattern of the program
	PatternSrc  string `gorm:"type:text"`               // program source, for audits
	FilePath    string `gorm:"type:varchar(512);index"` // absolute path of the target file

	// Match outcome
	MatchCount int            `gorm:"default:0"`
	Edits      datatypes.JSON `gorm:"type:jsonb"` // byte spans and replacement text

	// Content
	Original string `gorm:"type:text"`
	Modified string `gorm:"type:text"`
	Diff     string `gorm:"type:text"`

	// Checksums for validation
	BaseDigest  string `gorm:"type:varchar(64)"` // SHA256 of original
	AfterDigest string `gorm:"type:varchar(64)"` // SHA256 of modified

	// Status tracking
	Status    string    `gorm:"type:varchar(20);default:'pending'"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"index"`
	AppliedAt *time.Time

	// Relationships
	Apply *Apply `gorm:"foreignKey:StageID"`
}

// Apply represents a stage committed to disk
type Apply struct {
	ID        string `gorm:"primaryKey;type:varchar(20)"`
	StageID   string `gorm:"type:varchar(20);uniqueIndex"`
	SessionID string `gorm:"type:varchar(20);index"`
	FilePath  string `gorm:"type:varchar(512);index"`

	// Checksums for validation
	BaseDigest  string `gorm:"type:varchar(64)"` // SHA256 of original
	AfterDigest string `gorm:"type:varchar(64)"` // SHA256 of modified

	// Metadata
	AutoApplied bool      `gorm:"default:false"`
	AppliedBy   string    `gorm:"type:varchar(100)"` // User or "auto"
	AppliedAt   time.Time `gorm:"autoCreateTime"`

	// Revert tracking
	Reverted   bool   `gorm:"default:false"`
	RevertedBy string `gorm:"type:varchar(100)"`
	RevertedAt *time.Time

	// Relationship
	Stage Stage `gorm:"foreignKey:StageID"`
}

// Session groups the stages and applies of one working session
type Session struct {
	ID        string    `gorm:"primaryKey;type:varchar(20)"`
	StartedAt time.Time `gorm:"autoCreateTime"`
	EndedAt   *time.Time

	// What this session worked on
	Root        string `gorm:"type:varchar(512)"`
	PatternName string `gorm:"type:varchar(255)"`

	// Statistics
	StagesCount  int `gorm:"default:0"`
	AppliesCount int `gorm:"default:0"`

	Meta datatypes.JSON `gorm:"type:jsonb"`
}

// TableName customizations for cleaner names
func (Stage) TableName() string   { return "stages" }
func (Apply) TableName() string   { return "applies" }
func (Session) TableName() string { return "sessions" }
