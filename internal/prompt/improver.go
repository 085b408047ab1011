package prompt

import (
	"context"
	"fmt"
	"strings"
	"voiceorder-service/internal/model"
	"voiceorder-service/pkg/logger"

	"go.uber.org/zap"
)

const improverMetaPrompt = `You are a system prompt engineer. You maintain a system prompt used by an order-matching LLM that processes Urdu/Hindi/English voice notes for a Pakistani plumbing product distributor.

Your job: integrate NEW CORRECTIONS from human admins into the existing system prompt. The admin is a non-technical plumbing sales person who knows the local terminology better than any AI.

STRICT RULES:
1. NEVER remove any existing rules, domain knowledge, or instructions.
2. NEVER change the JSON response format specification.
3. NEVER change the tone or role description in the opening paragraph.
4. INTEGRATE the new correction naturally into the "Domain knowledge" section.
5. If the correction overlaps with an existing entry, MERGE them intelligently.
6. If the correction conflicts with an existing rule, ADD the new correction as a HIGHER-PRIORITY override.
7. Keep the prompt concise. Do not add verbose explanations.
8. Return ONLY the complete updated system prompt text. No commentary, no markdown, no explanation — just the raw prompt text.`

// TextGenerator is the slice of the model client the improver needs.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userText string) (string, error)
}

// Improver batches all pending corrections into one new prompt version by
// asking a second model call to merge them into the active prompt text.
type Improver struct {
	store *Store
	llm   TextGenerator
}

// NewImprover creates a prompt improver
func NewImprover(store *Store, llm TextGenerator) *Improver {
	return &Improver{store: store, llm: llm}
}

// ApplyCorrections merges every pending correction into a new prompt
// version. Refused when there is no active prompt or nothing pending.
func (i *Improver) ApplyCorrections(ctx context.Context) (*model.PromptVersion, error) {
	log := logger.FromStdContext(ctx)

	active, err := i.store.GetActive()
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, ErrNoActivePrompt
	}

	pending, err := i.store.PendingCorrections()
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, ErrNoPendingCorrections
	}

	lines := make([]string, 0, len(pending))
	terms := make([]string, 0, len(pending))
	ids := make([]uint, 0, len(pending))
	for _, c := range pending {
		line := fmt.Sprintf("- Term heard: %q → Correct meaning: %q", c.TermHeard, c.TermMeaning)
		if c.CompanyID != "" {
			line += fmt.Sprintf(" (Company: %s)", c.CompanyID)
		}
		lines = append(lines, line)
		terms = append(terms, c.TermHeard)
		ids = append(ids, c.ID)
	}

	userMessage := fmt.Sprintf("CURRENT SYSTEM PROMPT:\n\"\"\"\n%s\n\"\"\"\n\nNEW CORRECTION(S) FROM ADMIN:\n%s\n\nReturn the updated system prompt:",
		active.Prompt, strings.Join(lines, "\n"))

	merged, err := i.llm.GenerateText(ctx, improverMetaPrompt, userMessage)
	if err != nil {
		return nil, fmt.Errorf("prompt improvement failed: %w", err)
	}

	changeDescription := fmt.Sprintf("Applied %d correction(s): %s", len(pending), strings.Join(terms, ", "))

	created, err := i.store.SaveImproved(merged, ids, changeDescription)
	if err != nil {
		return nil, err
	}

	log.Info("Applied corrections to new prompt version",
		zap.Int("corrections", len(pending)),
		zap.Int("version", created.Version))
	return created, nil
}
