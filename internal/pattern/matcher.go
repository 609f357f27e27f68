package pattern

import (
	"fmt"
	"regexp"

	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/money"
)

// Matcher evaluates transactions against an ordered rule table.
type Matcher struct {
	compiledRegex map[string]*regexp.Regexp
	keywords      map[string][]string
	rules         []Rule
}

// NewMatcher creates a matcher with the given rules. Invalid regular expressions disable
// their rule; ValidateRules reports them.
func NewMatcher(rules []Rule) *Matcher {
	m := &Matcher{
		rules:         append([]Rule(nil), rules...),
		compiledRegex: make(map[string]*regexp.Regexp),
		keywords:      make(map[string][]string, len(rules)),
	}

	for _, rule := range m.rules {
		if rule.Pattern != "" {
			if re, err := regexp.Compile(rule.Pattern); err == nil {
				m.compiledRegex[rule.ID] = re
			}
		}
		normalized := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			if n := Normalize(kw); n != "" {
				normalized = append(normalized, n)
			}
		}
		m.keywords[rule.ID] = normalized
	}

	return m
}

// NewDefaultMatcher creates a matcher with organization overrides ahead of DefaultRules.
func NewDefaultMatcher(overrides []model.VendorOverride) *Matcher {
	return NewMatcher(append(OverrideRules(overrides), DefaultRules()...))
}

// Rules returns the matcher's rules in evaluation order.
func (m *Matcher) Rules() []Rule {
	return append([]Rule(nil), m.rules...)
}

// Match returns the first matching rule's category, or a no-match outcome.
func (m *Matcher) Match(txn model.NormalizedTransaction) model.StageOutcome {
	merchant := Normalize(txn.Merchant())
	description := Normalize(txn.Description)
	sign, err := money.Sign(txn.AmountCents)
	if err != nil {
		sign = 0
	}

	for _, rule := range m.rules {
		if !matchesDirection(rule.Direction, sign) {
			continue
		}

		if hit, ok := m.matchRule(rule, merchant, description); ok {
			return model.StageOutcome{
				Kind:       model.OutcomeMatched,
				Stage:      model.StagePass1,
				Slug:       rule.CategorySlug,
				Confidence: rule.Confidence,
				RuleID:     rule.ID,
				Rationale:  fmt.Sprintf("matched rule %s on %q", rule.ID, hit),
			}
		}
	}

	return model.StageOutcome{Kind: model.OutcomeNoMatch, Stage: model.StagePass1}
}

func (m *Matcher) matchRule(rule Rule, merchant, description string) (string, bool) {
	for _, text := range []string{merchant, description} {
		if text == "" {
			continue
		}
		for _, kw := range m.keywords[rule.ID] {
			if ContainsTokens(text, kw) {
				return kw, true
			}
		}
		if re, ok := m.compiledRegex[rule.ID]; ok {
			if loc := re.FindString(text); loc != "" {
				return loc, true
			}
		}
	}
	return "", false
}

func matchesDirection(d Direction, sign int) bool {
	switch d {
	case DirectionOut:
		return sign < 0
	case DirectionIn:
		return sign > 0
	default:
		return true
	}
}
