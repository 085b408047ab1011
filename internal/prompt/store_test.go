package prompt

import (
	"fmt"
	"strings"
	"testing"
	"voiceorder-service/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.PromptVersion{},
		&model.Correction{},
	))
	return db
}

func activeCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&model.PromptVersion{}).
		Where("status = ?", model.PromptStatusActive).
		Count(&count).Error)
	return count
}

func TestSeedCreatesVersionOne(t *testing.T) {
	store := NewStore(newTestDB(t))

	version, err := store.Seed()
	require.NoError(t, err)

	assert.Equal(t, 1, version.Version)
	assert.Equal(t, model.PromptStatusActive, version.Status)
	assert.Equal(t, model.PromptSourceSeed, version.Source)
	assert.Contains(t, version.Prompt, "transcript")
}

func TestSeedTwiceIsRejected(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)

	_, err := store.Seed()
	require.NoError(t, err)

	_, err = store.Seed()
	assert.ErrorIs(t, err, ErrAlreadySeeded)

	var count int64
	require.NoError(t, db.Model(&model.PromptVersion{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGetActiveReturnsNilBeforeSeed(t *testing.T) {
	store := NewStore(newTestDB(t))

	active, err := store.GetActive()
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestRollbackAppendsNewVersion(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)

	seeded, err := store.Seed()
	require.NoError(t, err)

	improved, err := store.SaveImproved("updated prompt text with transcript rules", nil, "manual edit")
	require.NoError(t, err)
	assert.Equal(t, 2, improved.Version)

	rolled, err := store.Rollback(seeded.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, rolled.Version)
	assert.Equal(t, seeded.Prompt, rolled.Prompt)
	assert.Equal(t, model.PromptSourceAdminRollback, rolled.Source)
	assert.Equal(t, model.PromptStatusActive, rolled.Status)
	require.NotNil(t, rolled.ParentVersionID)
	assert.Equal(t, seeded.ID, *rolled.ParentVersionID)
	assert.Equal(t, "Rolled back to v1", rolled.ChangeDescription)

	// Rollback never reactivates the old row in place
	var target model.PromptVersion
	require.NoError(t, db.First(&target, seeded.ID).Error)
	assert.Equal(t, model.PromptStatusArchived, target.Status)

	assert.EqualValues(t, 1, activeCount(t, db))
}

func TestRollbackUnknownVersion(t *testing.T) {
	store := NewStore(newTestDB(t))

	_, err := store.Seed()
	require.NoError(t, err)

	_, err = store.Rollback(9999)
	assert.ErrorIs(t, err, ErrVersionNotFound)
}

func TestSaveImprovedMarksCorrectionsApplied(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)

	_, err := store.Seed()
	require.NoError(t, err)

	first := &model.Correction{Type: model.CorrectionTypeTeachTerm, TermHeard: "gond", TermMeaning: "Weld-On solvent cement"}
	second := &model.Correction{Type: model.CorrectionTypeManualTerm, TermHeard: "jodd", TermMeaning: "socket"}
	untouched := &model.Correction{Type: model.CorrectionTypeWrongMatch, TermHeard: "moad", TermMeaning: "elbow"}
	require.NoError(t, store.AddCorrection(first))
	require.NoError(t, store.AddCorrection(second))
	require.NoError(t, store.AddCorrection(untouched))

	version, err := store.SaveImproved("merged prompt with transcript field", []uint{first.ID, second.ID}, "Applied 2 correction(s)")
	require.NoError(t, err)
	assert.Equal(t, 2, version.Version)

	var applied model.Correction
	require.NoError(t, db.First(&applied, first.ID).Error)
	assert.Equal(t, model.CorrectionStatusApplied, applied.Status)
	require.NotNil(t, applied.AppliedToVersionID)
	assert.Equal(t, version.ID, *applied.AppliedToVersionID)

	var other model.Correction
	require.NoError(t, db.First(&other, untouched.ID).Error)
	assert.Equal(t, model.CorrectionStatusPending, other.Status)
	assert.Nil(t, other.AppliedToVersionID)

	assert.EqualValues(t, 1, activeCount(t, db))
}

func TestRejectCorrection(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)

	correction := &model.Correction{Type: model.CorrectionTypeTeachTerm, TermHeard: "dedh", TermMeaning: `1-1/2"`}
	require.NoError(t, store.AddCorrection(correction))

	require.NoError(t, store.RejectCorrection(correction.ID))

	var rejected model.Correction
	require.NoError(t, db.First(&rejected, correction.ID).Error)
	assert.Equal(t, model.CorrectionStatusRejected, rejected.Status)

	// Terminal statuses cannot be changed again
	assert.ErrorIs(t, store.RejectCorrection(correction.ID), ErrCorrectionNotPending)
}

func TestHistoryNewestFirst(t *testing.T) {
	store := NewStore(newTestDB(t))

	_, err := store.Seed()
	require.NoError(t, err)
	_, err = store.SaveImproved("second prompt with transcript", nil, "edit")
	require.NoError(t, err)

	history, err := store.History(50)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].Version)
	assert.Equal(t, 1, history[1].Version)
}
