// Package guardrail corrects proposed categories that break accounting rules, such as refunds
// or payment processor activity landing in revenue. Rules run in a fixed order and every
// firing is recorded.
package guardrail

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/money"
	"github.com/Veraticus/pnl-categorizer/internal/pattern"
	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

// State is the proposal the rules inspect and rewrite.
type State struct {
	Merchant    string
	Description string
	Slug        string
	Confidence  float64
	Sign        int
}

// processorText is the text checked for processor names: the merchant, or the description
// when no merchant is known.
func (s *State) processorText() string {
	if s.Merchant != "" {
		return s.Merchant
	}
	return s.Description
}

// Engine applies the guardrail chain. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	tax    *taxonomy.Taxonomy
	logger *slog.Logger
	rules  []Rule
}

// NewEngine creates an engine with an explicit rule chain.
func NewEngine(tax *taxonomy.Taxonomy, rules []Rule, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		tax:    tax,
		rules:  rules,
		logger: common.ComponentLogger(logger, "guardrail"),
	}
}

// NewDefaultEngine creates an engine from the embedded table.
func NewDefaultEngine(tax *taxonomy.Taxonomy, logger *slog.Logger) (*Engine, error) {
	table, err := DefaultTable()
	if err != nil {
		return nil, err
	}
	if err := table.Validate(tax); err != nil {
		return nil, fmt.Errorf("guardrail table does not fit taxonomy: %w", err)
	}
	return NewEngine(tax, DefaultRules(tax, table), logger), nil
}

// RuleIDs returns the rule identifiers in evaluation order.
func (e *Engine) RuleIDs() []string {
	ids := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		ids = append(ids, r.ID())
	}
	return ids
}

// Apply runs every rule against the proposal and returns the corrected category. The result
// always resolves in the taxonomy.
func (e *Engine) Apply(txn model.NormalizedTransaction, proposedSlug string, proposedConfidence float64) model.GuardrailOutcome {
	sign, err := money.Sign(txn.AmountCents)
	if err != nil {
		sign = 0
	}

	state := &State{
		Merchant:    pattern.Normalize(txn.Merchant()),
		Description: pattern.Normalize(txn.Description),
		Slug:        proposedSlug,
		Confidence:  proposedConfidence,
		Sign:        sign,
	}

	var applied, violations []string
	for _, rule := range e.rules {
		if !rule.Check(state) {
			continue
		}
		msg := rule.Apply(state)
		applied = append(applied, rule.ID())
		violations = append(violations, msg)
		e.logger.Debug("guardrail fired",
			"rule", rule.ID(),
			"transaction_id", txn.ID,
			"category", state.Slug,
			"confidence", state.Confidence)
	}

	node, _ := e.tax.Resolve(state.Slug)
	return model.GuardrailOutcome{
		CategoryID:        node.ID,
		CategorySlug:      node.Slug,
		Confidence:        min(max(state.Confidence, 0), 1),
		GuardrailsApplied: applied,
		Violations:        violations,
	}
}
