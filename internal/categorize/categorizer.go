// Package categorize sequences pass 1, pass 2 and the guardrails into a single categorization
// decision per transaction.
package categorize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/money"
	"github.com/Veraticus/pnl-categorizer/internal/pattern"
	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

// FallbackConfidence is the confidence given to the catch-all category when nothing better
// is known.
const FallbackConfidence = 0.1

// Categorizer is the single entry point for categorizing a transaction. It keeps no state
// between calls and is safe for concurrent use.
type Categorizer struct {
	tax        *taxonomy.Taxonomy
	matcher    Matcher
	scorer     Scorer
	guardrails Guardrails
	logger     *slog.Logger
}

// Option configures a Categorizer.
type Option func(*Categorizer)

// WithMatcher replaces the default pass 1 matcher.
func WithMatcher(m Matcher) Option {
	return func(c *Categorizer) { c.matcher = m }
}

// WithScorer enables pass 2.
func WithScorer(s Scorer) Option {
	return func(c *Categorizer) { c.scorer = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Categorizer) { c.logger = l }
}

// New creates a categorizer. guardrails may be nil, in which case configurations that enable
// guardrails only get slug resolution.
func New(tax *taxonomy.Taxonomy, guardrails Guardrails, opts ...Option) *Categorizer {
	c := &Categorizer{
		tax:        tax,
		guardrails: guardrails,
		matcher:    pattern.NewDefaultMatcher(nil),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = common.ComponentLogger(c.logger, "categorize")
	return c
}

// Categorize decides the category of txn. The only error is common.ErrInvalidTransaction;
// every other failure degrades to the catch-all category.
func (c *Categorizer) Categorize(ctx context.Context, txn model.NormalizedTransaction, cfg model.CategorizationConfig) (model.CategorizationResult, error) {
	if err := ValidateTransaction(txn); err != nil {
		return model.CategorizationResult{}, err
	}

	var violations []string
	proposal := c.matcher.Match(txn)

	if !proposal.Matched() || proposal.Confidence < cfg.HybridThreshold {
		if c.scorer != nil {
			pass2 := c.pass2(ctx, txn, cfg)
			switch pass2.Kind {
			case model.OutcomeMatched:
				proposal = pass2
			case model.OutcomeProviderFailed:
				c.logger.Warn("pass 2 failed, using catch-all category",
					"transaction_id", txn.ID,
					"org_id", txn.OrgID,
					"error", pass2.Err)
				violations = append(violations, fmt.Sprintf("pass 2 failed: %v", pass2.Err))
				proposal = c.fallback("pass 2 failed")
			}
		}
	}

	if !proposal.Matched() {
		proposal = c.fallback("no rule matched and no language model is configured")
	}

	result := model.CategorizationResult{
		TransactionID: txn.ID,
		Stage:         proposal.Stage,
		Rationale:     proposal.Rationale,
	}

	if cfg.UseGuardrails && c.guardrails != nil {
		out := c.guardrails.Apply(txn, proposal.Slug, proposal.Confidence)
		result.CategoryID = out.CategoryID
		result.CategorySlug = out.CategorySlug
		result.Confidence = out.Confidence
		result.GuardrailsApplied = out.GuardrailsApplied
		violations = append(violations, out.Violations...)
	} else {
		node, known := c.tax.Resolve(proposal.Slug)
		if !known {
			violations = append(violations, fmt.Sprintf("unknown category %q; fell back to %s", proposal.Slug, node.Slug))
		}
		result.CategoryID = node.ID
		result.CategorySlug = node.Slug
		result.Confidence = min(max(proposal.Confidence, 0), 1)
	}

	result.Violations = violations
	result.AutoApply = result.Confidence >= cfg.AutoApplyThreshold
	result.NeedsReview = !result.AutoApply

	c.logger.Debug("categorized transaction",
		"transaction_id", txn.ID,
		"stage", result.Stage,
		"category", result.CategorySlug,
		"confidence", result.Confidence,
		"auto_apply", result.AutoApply)

	return result, nil
}

func (c *Categorizer) pass2(ctx context.Context, txn model.NormalizedTransaction, cfg model.CategorizationConfig) model.StageOutcome {
	score, err := c.scorer.Score(ctx, txn, cfg.Industry, c.priorCategoryName(txn))
	if err != nil {
		return model.StageOutcome{Kind: model.OutcomeProviderFailed, Stage: model.StagePass2, Err: err}
	}
	return model.StageOutcome{
		Kind:       model.OutcomeMatched,
		Stage:      model.StagePass2,
		Slug:       score.CategorySlug,
		Confidence: score.Confidence,
		Rationale:  score.Rationale,
	}
}

func (c *Categorizer) fallback(reason string) model.StageOutcome {
	return model.StageOutcome{
		Kind:       model.OutcomeMatched,
		Stage:      model.StageFallback,
		Slug:       c.tax.CatchAll().Slug,
		Confidence: FallbackConfidence,
		Rationale:  reason,
	}
}

func (c *Categorizer) priorCategoryName(txn model.NormalizedTransaction) string {
	if txn.CategoryID == nil {
		return ""
	}
	if node, ok := c.tax.ByID(*txn.CategoryID); ok {
		return node.Name
	}
	return ""
}

// ValidateTransaction checks the fields categorization cannot work without.
func ValidateTransaction(txn model.NormalizedTransaction) error {
	var missing []string
	if strings.TrimSpace(txn.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(txn.OrgID) == "" {
		missing = append(missing, "org id")
	}
	if txn.Date.IsZero() {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(txn.AmountCents) == "" {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", common.ErrInvalidTransaction, strings.Join(missing, ", "))
	}
	if _, err := money.ParseCents(txn.AmountCents); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidTransaction, err)
	}
	return nil
}
