package model

import (
	"time"
)

// PromptVersion statuses. At most one version is active at any time.
const (
	PromptStatusActive   = "active"
	PromptStatusArchived = "archived"
)

// PromptVersion sources
const (
	PromptSourceSeed            = "seed"
	PromptSourceAdminCorrection = "admin_correction"
	PromptSourceAdminRollback   = "admin_rollback"
)

// PromptVersion is one entry of the append-only system prompt history.
// Version numbers increase monotonically and are never reused.
type PromptVersion struct {
	ID                uint      `json:"id" gorm:"primarykey"`
	Prompt            string    `json:"prompt" gorm:"type:text;not null"`
	Version           int       `json:"version" gorm:"uniqueIndex;not null"`
	Status            string    `json:"status" gorm:"type:varchar(20);index;not null"`
	Source            string    `json:"source" gorm:"type:varchar(30);not null"`
	ChangeDescription string    `json:"change_description" gorm:"type:text"`
	ParentVersionID   *uint     `json:"parent_version_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
