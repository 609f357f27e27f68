package pattern

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

// ValidateRules checks that every rule is usable against tax.
func ValidateRules(rules []Rule, tax *taxonomy.Taxonomy) error {
	var errs []error
	seen := make(map[string]bool, len(rules))

	for _, rule := range rules {
		if rule.ID == "" {
			errs = append(errs, fmt.Errorf("rule for %q has no id", rule.CategorySlug))
		}
		if seen[rule.ID] {
			errs = append(errs, fmt.Errorf("rule %s: duplicate id", rule.ID))
		}
		seen[rule.ID] = true

		if _, ok := tax.BySlug(rule.CategorySlug); !ok {
			errs = append(errs, fmt.Errorf("rule %s: unknown category %q", rule.ID, rule.CategorySlug))
		}
		if rule.Confidence < 0 || rule.Confidence > 1 {
			errs = append(errs, fmt.Errorf("rule %s: confidence %.2f outside [0,1]", rule.ID, rule.Confidence))
		}
		if len(rule.Keywords) == 0 && rule.Pattern == "" {
			errs = append(errs, fmt.Errorf("rule %s: needs keywords or a pattern", rule.ID))
		}
		for _, kw := range rule.Keywords {
			if Normalize(kw) == "" {
				errs = append(errs, fmt.Errorf("rule %s: keyword %q normalizes to nothing", rule.ID, kw))
			}
		}
		if rule.Pattern != "" {
			if _, err := regexp.Compile(rule.Pattern); err != nil {
				errs = append(errs, fmt.Errorf("rule %s: %w", rule.ID, err))
			}
		}
	}

	return errors.Join(errs...)
}
