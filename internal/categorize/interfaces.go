package categorize

import (
	"context"

	"github.com/Veraticus/pnl-categorizer/internal/model"
)

// Matcher runs pass 1.
type Matcher interface {
	Match(txn model.NormalizedTransaction) model.StageOutcome
}

// Scorer runs pass 2. Errors are treated as provider failures.
type Scorer interface {
	Score(ctx context.Context, txn model.NormalizedTransaction, industry, prior string) (model.Pass2Score, error)
}

// Guardrails corrects a proposed category.
type Guardrails interface {
	Apply(txn model.NormalizedTransaction, proposedSlug string, proposedConfidence float64) model.GuardrailOutcome
}
