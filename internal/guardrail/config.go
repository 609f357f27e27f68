package guardrail

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/pattern"
	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Table is the versioned pattern and constant table the guardrail rules read.
type Table struct {
	PaymentProcessors []string        `yaml:"payment_processors"`
	BNPLProviders     []string        `yaml:"bnpl_providers"`
	TaxAuthorities    []string        `yaml:"tax_authorities"`
	RefundPatterns    []string        `yaml:"refund_patterns"`
	Payouts           []PayoutPattern `yaml:"payouts"`
	KnownGaps         []KnownGap      `yaml:"known_gaps"`
	Version           int             `yaml:"version"`
	DampingFactor     float64         `yaml:"damping_factor"`
}

// PayoutPattern maps a platform's payout descriptions to its clearing category.
type PayoutPattern struct {
	Platform     string   `yaml:"platform"`
	CategorySlug string   `yaml:"category_slug"`
	Patterns     []string `yaml:"patterns"`
}

// KnownGap documents a case the table deliberately does not cover.
type KnownGap struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
}

var defaultTable = sync.OnceValues(func() (*Table, error) {
	return ParseTable(defaultRulesYAML)
})

// DefaultTable returns the embedded table.
func DefaultTable() (*Table, error) {
	return defaultTable()
}

// ParseTable decodes and checks a YAML table.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse guardrail table: %w", err)
	}
	if err := t.check(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Table) check() error {
	var errs []error
	if t.Version <= 0 {
		errs = append(errs, errors.New("version must be positive"))
	}
	if t.DampingFactor <= 0 || t.DampingFactor > 1 {
		errs = append(errs, fmt.Errorf("damping_factor %v outside (0,1]", t.DampingFactor))
	}
	for name, list := range map[string][]string{
		"payment_processors": t.PaymentProcessors,
		"tax_authorities":    t.TaxAuthorities,
	} {
		if len(list) == 0 {
			errs = append(errs, fmt.Errorf("%s must not be empty", name))
		}
	}
	for _, p := range t.allPatterns() {
		if pattern.Normalize(p) == "" {
			errs = append(errs, fmt.Errorf("pattern %q normalizes to nothing", p))
		}
	}
	for _, p := range t.Payouts {
		if p.CategorySlug == "" || len(p.Patterns) == 0 {
			errs = append(errs, fmt.Errorf("payout %q needs a category_slug and patterns", p.Platform))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid guardrail table: %w", errors.Join(errs...))
	}
	return nil
}

func (t *Table) allPatterns() []string {
	all := append([]string(nil), t.PaymentProcessors...)
	all = append(all, t.BNPLProviders...)
	all = append(all, t.TaxAuthorities...)
	all = append(all, t.RefundPatterns...)
	for _, p := range t.Payouts {
		all = append(all, p.Patterns...)
	}
	return all
}

// Validate checks that every redirect target exists in tax with a suitable type.
func (t *Table) Validate(tax *taxonomy.Taxonomy) error {
	var errs []error

	required := map[string]model.CategoryType{
		taxonomy.SlugPaymentProcessingFees: model.CategoryTypeOpex,
		taxonomy.SlugRefundsAllowances:     model.CategoryTypeOpex,
		taxonomy.SlugSalesTaxPayable:       model.CategoryTypeLiability,
	}
	for _, p := range t.Payouts {
		required[p.CategorySlug] = model.CategoryTypeClearing
	}

	for slug, typ := range required {
		node, ok := tax.BySlug(slug)
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("guardrail target %q does not exist", slug))
		case node.Type != typ:
			errs = append(errs, fmt.Errorf("guardrail target %q has type %s, want %s", slug, node.Type, typ))
		}
	}

	return errors.Join(errs...)
}
