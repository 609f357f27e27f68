package guardrail

import (
	"fmt"

	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/pattern"
	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

// Rule identifiers, in evaluation order.
const (
	RuleRevenueBlock           = "revenue_block"
	RuleSalesTaxRedirect       = "sales_tax_redirect"
	RulePayoutClearingRedirect = "payout_clearing_redirect"
	RuleUnknownSlugFallback    = "unknown_slug_fallback"
)

// Rule is one guardrail. Check reports whether the rule would change the current category;
// Apply changes it and returns a human-readable violation.
type Rule interface {
	ID() string
	Check(s *State) bool
	Apply(s *State) string
}

// matcher is a precompiled list of normalized patterns.
type matcher []string

func newMatcher(patterns ...[]string) matcher {
	var m matcher
	for _, list := range patterns {
		for _, p := range list {
			if n := pattern.Normalize(p); n != "" {
				m = append(m, n)
			}
		}
	}
	return m
}

func (m matcher) find(texts ...string) (string, bool) {
	for _, text := range texts {
		for _, p := range m {
			if pattern.ContainsTokens(text, p) {
				return p, true
			}
		}
	}
	return "", false
}

// revenueBlock keeps money out and processor activity out of revenue.
type revenueBlock struct {
	tax        *taxonomy.Taxonomy
	processors matcher
	refunds    matcher
	damping    float64
}

func (r *revenueBlock) ID() string { return RuleRevenueBlock }

func (r *revenueBlock) Check(s *State) bool {
	node, ok := r.tax.BySlug(s.Slug)
	if !ok || node.Type != model.CategoryTypeRevenue {
		return false
	}
	if s.Sign < 0 {
		return true
	}
	_, isProcessor := r.processors.find(s.processorText())
	return isProcessor
}

func (r *revenueBlock) Apply(s *State) string {
	from := s.Slug
	var reason string
	processor, isProcessor := r.processors.find(s.processorText())
	refund, isRefund := r.refunds.find(s.Description)
	switch {
	case isRefund:
		// Refunds issued through a processor still reduce revenue.
		s.Slug = taxonomy.SlugRefundsAllowances
		reason = fmt.Sprintf("description matches refund pattern %q", refund)
	case isProcessor && s.Sign < 0:
		s.Slug = taxonomy.SlugPaymentProcessingFees
		reason = fmt.Sprintf("merchant matches payment processor %q", processor)
	case isProcessor:
		s.Slug = taxonomy.SlugRefundsAllowances
		reason = fmt.Sprintf("processor %q activity is not a sale", processor)
	default:
		s.Slug = taxonomy.SlugRefundsAllowances
		reason = "amount is money out"
	}
	s.Confidence *= r.damping
	return fmt.Sprintf("revenue category %s blocked (%s); redirected to %s", from, reason, s.Slug)
}

// salesTaxRedirect sends tax authority payments to the sales tax liability.
type salesTaxRedirect struct {
	authorities matcher
	payouts     matcher
}

func (r *salesTaxRedirect) ID() string { return RuleSalesTaxRedirect }

func (r *salesTaxRedirect) Check(s *State) bool {
	if s.Slug == taxonomy.SlugSalesTaxPayable {
		return false
	}
	if _, ok := r.authorities.find(s.Merchant, s.Description); !ok {
		return false
	}
	// Payout descriptions win over tax wording; the payout rule handles them.
	_, isPayout := r.payouts.find(s.Merchant, s.Description)
	return !isPayout
}

func (r *salesTaxRedirect) Apply(s *State) string {
	p, _ := r.authorities.find(s.Merchant, s.Description)
	from := s.Slug
	s.Slug = taxonomy.SlugSalesTaxPayable
	return fmt.Sprintf("tax authority pattern %q matched; redirected %s to %s", p, from, s.Slug)
}

// payoutClearingRedirect sends platform payouts to the platform's clearing account.
type payoutClearingRedirect struct {
	platforms []payoutMatcher
}

type payoutMatcher struct {
	platform string
	slug     string
	patterns matcher
}

func (r *payoutClearingRedirect) ID() string { return RulePayoutClearingRedirect }

func (r *payoutClearingRedirect) match(s *State) (payoutMatcher, string, bool) {
	for _, pm := range r.platforms {
		if p, ok := pm.patterns.find(s.Merchant, s.Description); ok {
			return pm, p, true
		}
	}
	return payoutMatcher{}, "", false
}

func (r *payoutClearingRedirect) Check(s *State) bool {
	pm, _, ok := r.match(s)
	return ok && s.Slug != pm.slug
}

func (r *payoutClearingRedirect) Apply(s *State) string {
	pm, p, _ := r.match(s)
	from := s.Slug
	s.Slug = pm.slug
	return fmt.Sprintf("%s payout pattern %q matched; redirected %s to %s", pm.platform, p, from, s.Slug)
}

// unknownSlugFallback maps unresolvable slugs to the catch-all category.
type unknownSlugFallback struct {
	tax *taxonomy.Taxonomy
}

func (r *unknownSlugFallback) ID() string { return RuleUnknownSlugFallback }

func (r *unknownSlugFallback) Check(s *State) bool {
	_, ok := r.tax.BySlug(s.Slug)
	return !ok
}

func (r *unknownSlugFallback) Apply(s *State) string {
	from := s.Slug
	s.Slug = r.tax.CatchAll().Slug
	return fmt.Sprintf("unknown category %q; fell back to %s", from, s.Slug)
}

// DefaultRules builds the ordered rule chain from table.
func DefaultRules(tax *taxonomy.Taxonomy, table *Table) []Rule {
	payouts := &payoutClearingRedirect{}
	var allPayoutPatterns [][]string
	for _, p := range table.Payouts {
		payouts.platforms = append(payouts.platforms, payoutMatcher{
			platform: p.Platform,
			slug:     p.CategorySlug,
			patterns: newMatcher(p.Patterns),
		})
		allPayoutPatterns = append(allPayoutPatterns, p.Patterns)
	}

	return []Rule{
		&revenueBlock{
			tax:        tax,
			processors: newMatcher(table.PaymentProcessors, table.BNPLProviders),
			refunds:    newMatcher(table.RefundPatterns),
			damping:    table.DampingFactor,
		},
		&salesTaxRedirect{
			authorities: newMatcher(table.TaxAuthorities),
			payouts:     newMatcher(allPayoutPatterns...),
		},
		payouts,
		&unknownSlugFallback{tax: tax},
	}
}
