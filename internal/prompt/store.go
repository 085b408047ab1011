package prompt

import (
	"errors"
	"fmt"
	"voiceorder-service/internal/model"

	"gorm.io/gorm"
)

// Precondition violations surfaced to admin actions
var (
	ErrAlreadySeeded        = errors.New("prompt already seeded")
	ErrVersionNotFound      = errors.New("prompt version not found")
	ErrNoActivePrompt       = errors.New("no active prompt found")
	ErrNoPendingCorrections = errors.New("no pending corrections")
	ErrCorrectionNotPending = errors.New("correction is not pending")
)

// Store owns the append-only prompt version history and the correction
// ledger. Every mutation that activates a version archives the previous
// active one in the same transaction.
type Store struct {
	db *gorm.DB
}

// NewStore creates a prompt store on the given database
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetActive returns the currently active prompt version, or nil when no
// version has been seeded yet
func (s *Store) GetActive() (*model.PromptVersion, error) {
	var version model.PromptVersion
	err := s.db.Where("status = ?", model.PromptStatusActive).First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &version, nil
}

// History returns prompt versions, newest first
func (s *Store) History(limit int) ([]model.PromptVersion, error) {
	var versions []model.PromptVersion
	err := s.db.Order("version desc").Limit(limit).Find(&versions).Error
	return versions, err
}

// GetVersion returns a prompt version by ID
func (s *Store) GetVersion(id uint) (*model.PromptVersion, error) {
	var version model.PromptVersion
	err := s.db.First(&version, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	return &version, nil
}

// Seed inserts version 1 from the default prompt. Refused when any version
// already exists.
func (s *Store) Seed() (*model.PromptVersion, error) {
	version := &model.PromptVersion{
		Prompt:            EnsureTranscriptInstruction(DefaultSystemPrompt),
		Version:           1,
		Status:            model.PromptStatusActive,
		Source:            model.PromptSourceSeed,
		ChangeDescription: "Initial system prompt",
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.PromptVersion{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadySeeded
		}
		return tx.Create(version).Error
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

// Rollback archives the current active version and appends a new active
// version carrying the target's text. The target row itself is never
// reactivated; history stays append-only.
func (s *Store) Rollback(versionID uint) (*model.PromptVersion, error) {
	var created *model.PromptVersion

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var target model.PromptVersion
		if err := tx.First(&target, versionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVersionNotFound
			}
			return err
		}

		if err := archiveActive(tx); err != nil {
			return err
		}

		next, err := nextVersionNumber(tx)
		if err != nil {
			return err
		}

		created = &model.PromptVersion{
			Prompt:            EnsureTranscriptInstruction(target.Prompt),
			Version:           next,
			Status:            model.PromptStatusActive,
			Source:            model.PromptSourceAdminRollback,
			ChangeDescription: fmt.Sprintf("Rolled back to v%d", target.Version),
			ParentVersionID:   &target.ID,
		}
		return tx.Create(created).Error
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// SaveImproved archives the current active version, appends the merged
// prompt as a new active version and marks the given corrections applied
// with a back-reference, all in one transaction.
func (s *Store) SaveImproved(newPrompt string, correctionIDs []uint, changeDescription string) (*model.PromptVersion, error) {
	var created *model.PromptVersion

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var parentID *uint
		var active model.PromptVersion
		err := tx.Where("status = ?", model.PromptStatusActive).First(&active).Error
		if err == nil {
			parentID = &active.ID
			if err := tx.Model(&active).Update("status", model.PromptStatusArchived).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		next, err := nextVersionNumber(tx)
		if err != nil {
			return err
		}

		created = &model.PromptVersion{
			Prompt:            EnsureTranscriptInstruction(newPrompt),
			Version:           next,
			Status:            model.PromptStatusActive,
			Source:            model.PromptSourceAdminCorrection,
			ChangeDescription: changeDescription,
			ParentVersionID:   parentID,
		}
		if err := tx.Create(created).Error; err != nil {
			return err
		}

		if len(correctionIDs) > 0 {
			err := tx.Model(&model.Correction{}).
				Where("id IN ?", correctionIDs).
				Updates(map[string]interface{}{
					"status":                model.CorrectionStatusApplied,
					"applied_to_version_id": created.ID,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AddCorrection records a new pending correction
func (s *Store) AddCorrection(c *model.Correction) error {
	c.Status = model.CorrectionStatusPending
	c.AppliedToVersionID = nil
	return s.db.Create(c).Error
}

// PendingCorrections returns all corrections waiting to be applied
func (s *Store) PendingCorrections() ([]model.Correction, error) {
	var corrections []model.Correction
	err := s.db.Where("status = ?", model.CorrectionStatusPending).Find(&corrections).Error
	return corrections, err
}

// CorrectionsByOrder returns corrections recorded against an order
func (s *Store) CorrectionsByOrder(orderID uint) ([]model.Correction, error) {
	var corrections []model.Correction
	err := s.db.Where("order_id = ?", orderID).Find(&corrections).Error
	return corrections, err
}

// AllCorrections returns corrections, newest first
func (s *Store) AllCorrections(limit int) ([]model.Correction, error) {
	var corrections []model.Correction
	err := s.db.Order("created_at desc").Limit(limit).Find(&corrections).Error
	return corrections, err
}

// RejectCorrection marks a pending correction rejected. Applied and
// rejected corrections are terminal and cannot be changed.
func (s *Store) RejectCorrection(id uint) error {
	result := s.db.Model(&model.Correction{}).
		Where("id = ? AND status = ?", id, model.CorrectionStatusPending).
		Update("status", model.CorrectionStatusRejected)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCorrectionNotPending
	}
	return nil
}

func archiveActive(tx *gorm.DB) error {
	return tx.Model(&model.PromptVersion{}).
		Where("status = ?", model.PromptStatusActive).
		Update("status", model.PromptStatusArchived).Error
}

func nextVersionNumber(tx *gorm.DB) (int, error) {
	var latest model.PromptVersion
	err := tx.Order("version desc").First(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 1, nil
		}
		return 0, err
	}
	return latest.Version + 1, nil
}
