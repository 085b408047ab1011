package prompt

import (
	"context"
	"errors"
	"testing"
	"voiceorder-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	response string
	err      error

	lastSystem string
	lastUser   string
	calls      int
}

func (f *fakeGenerator) GenerateText(ctx context.Context, systemPrompt, userText string) (string, error) {
	f.calls++
	f.lastSystem = systemPrompt
	f.lastUser = userText
	return f.response, f.err
}

func TestApplyCorrectionsCreatesNewVersion(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)

	_, err := store.Seed()
	require.NoError(t, err)

	first := &model.Correction{Type: model.CorrectionTypeTeachTerm, TermHeard: "gond", TermMeaning: "Weld-On solvent cement", CompanyID: "comp-1"}
	second := &model.Correction{Type: model.CorrectionTypeManualTerm, TermHeard: "jodd", TermMeaning: "socket"}
	require.NoError(t, store.AddCorrection(first))
	require.NoError(t, store.AddCorrection(second))

	llm := &fakeGenerator{response: "merged prompt with transcript instructions"}
	improver := NewImprover(store, llm)

	version, err := improver.ApplyCorrections(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, version.Version)
	assert.Equal(t, model.PromptSourceAdminCorrection, version.Source)
	assert.Equal(t, "merged prompt with transcript instructions", version.Prompt)
	assert.Equal(t, "Applied 2 correction(s): gond, jodd", version.ChangeDescription)

	// The merge request carries the active prompt and every pending term
	assert.Equal(t, 1, llm.calls)
	assert.Contains(t, llm.lastUser, "CURRENT SYSTEM PROMPT:")
	assert.Contains(t, llm.lastUser, `Term heard: "gond"`)
	assert.Contains(t, llm.lastUser, "(Company: comp-1)")
	assert.Contains(t, llm.lastUser, `Term heard: "jodd"`)
	assert.Contains(t, llm.lastSystem, "STRICT RULES")

	var applied int64
	require.NoError(t, db.Model(&model.Correction{}).
		Where("status = ?", model.CorrectionStatusApplied).
		Count(&applied).Error)
	assert.EqualValues(t, 2, applied)
}

func TestApplyCorrectionsWithoutActivePrompt(t *testing.T) {
	store := NewStore(newTestDB(t))
	require.NoError(t, store.AddCorrection(&model.Correction{Type: model.CorrectionTypeTeachTerm, TermHeard: "x", TermMeaning: "y"}))

	improver := NewImprover(store, &fakeGenerator{response: "unused"})

	_, err := improver.ApplyCorrections(context.Background())
	assert.ErrorIs(t, err, ErrNoActivePrompt)
}

func TestApplyCorrectionsWithNothingPending(t *testing.T) {
	store := NewStore(newTestDB(t))
	_, err := store.Seed()
	require.NoError(t, err)

	llm := &fakeGenerator{response: "unused"}
	improver := NewImprover(store, llm)

	_, err = improver.ApplyCorrections(context.Background())
	assert.ErrorIs(t, err, ErrNoPendingCorrections)
	assert.Zero(t, llm.calls)
}

func TestApplyCorrectionsModelFailureLeavesCorrectionsPending(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)

	_, err := store.Seed()
	require.NoError(t, err)
	require.NoError(t, store.AddCorrection(&model.Correction{Type: model.CorrectionTypeTeachTerm, TermHeard: "gond", TermMeaning: "cement"}))

	improver := NewImprover(store, &fakeGenerator{err: errors.New("model unavailable")})

	_, err = improver.ApplyCorrections(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt improvement failed")

	pending, err := store.PendingCorrections()
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	var versions int64
	require.NoError(t, db.Model(&model.PromptVersion{}).Count(&versions).Error)
	assert.EqualValues(t, 1, versions)
}
