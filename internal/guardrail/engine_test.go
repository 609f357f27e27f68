package guardrail

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/pattern"
	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewDefaultEngine(taxonomy.Ecommerce(), nil)
	require.NoError(t, err)
	return engine
}

func txn(merchant, description, amount string) model.NormalizedTransaction {
	return model.NormalizedTransaction{
		ID:           "txn-1",
		OrgID:        "org-1",
		MerchantName: model.StringPtr(merchant),
		Description:  description,
		AmountCents:  amount,
		Currency:     "USD",
	}
}

func slugOf(t *testing.T, id string) string {
	t.Helper()
	node, ok := taxonomy.Ecommerce().ByID(id)
	require.True(t, ok, "category id %s must resolve", id)
	return node.Slug
}

func TestEngine_RuleOrder(t *testing.T) {
	assert.Equal(t,
		[]string{RuleRevenueBlock, RuleSalesTaxRedirect, RulePayoutClearingRedirect, RuleUnknownSlugFallback},
		newTestEngine(t).RuleIDs())
}

func TestEngine_Apply(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name           string
		slug           string
		wantSlug       string
		txn            model.NormalizedTransaction
		wantApplied    []string
		confidence     float64
		wantConfidence float64
	}{
		{
			name:           "processor fee proposed as revenue",
			txn:            txn("Stripe", "PAYMENT PROCESSING FEE", "-2500"),
			slug:           "dtc_sales",
			confidence:     0.9,
			wantSlug:       taxonomy.SlugPaymentProcessingFees,
			wantApplied:    []string{RuleRevenueBlock},
			wantConfidence: 0.72,
		},
		{
			name:           "refund proposed as revenue",
			txn:            txn("", "REFUND FOR ORDER #12345", "-4999"),
			slug:           "dtc_sales",
			confidence:     0.7,
			wantSlug:       taxonomy.SlugRefundsAllowances,
			wantApplied:    []string{RuleRevenueBlock},
			wantConfidence: 0.56,
		},
		{
			name:           "bnpl deposit proposed as revenue",
			txn:            txn("Klarna", "KLARNA SETTLEMENT", "18000"),
			slug:           "dtc_sales",
			confidence:     0.5,
			wantSlug:       taxonomy.SlugRefundsAllowances,
			wantApplied:    []string{RuleRevenueBlock},
			wantConfidence: 0.4,
		},
		{
			name:           "processor deposit proposed as revenue is not a fee",
			txn:            txn("Stripe", "STRIPE", "100000"),
			slug:           "dtc_sales",
			confidence:     0.9,
			wantSlug:       taxonomy.SlugRefundsAllowances,
			wantApplied:    []string{RuleRevenueBlock},
			wantConfidence: 0.72,
		},
		{
			name:           "refund through processor",
			txn:            txn("Stripe", "REFUND FOR ORDER #12345", "-2500"),
			slug:           "dtc_sales",
			confidence:     0.9,
			wantSlug:       taxonomy.SlugRefundsAllowances,
			wantApplied:    []string{RuleRevenueBlock},
			wantConfidence: 0.72,
		},
		{
			name:           "chargeback through bnpl provider",
			txn:            txn("Affirm", "AFFIRM CHARGEBACK 8812", "-12000"),
			slug:           "wholesale_sales",
			confidence:     0.5,
			wantSlug:       taxonomy.SlugRefundsAllowances,
			wantApplied:    []string{RuleRevenueBlock},
			wantConfidence: 0.4,
		},
		{
			name:           "processor named only in description",
			txn:            txn("", "PAYPAL *MERCHANT FEE", "-310"),
			slug:           "wholesale_sales",
			confidence:     1,
			wantSlug:       taxonomy.SlugPaymentProcessingFees,
			wantApplied:    []string{RuleRevenueBlock},
			wantConfidence: 0.8,
		},
		{
			name:           "genuine sale untouched",
			txn:            txn("", "ETSY DEPOSIT", "12500"),
			slug:           "marketplace_sales",
			confidence:     0.88,
			wantSlug:       "marketplace_sales",
			wantConfidence: 0.88,
		},
		{
			name:           "money out in expense category untouched",
			txn:            txn("Uline", "ULINE SHIP SUPPLIES", "-8812"),
			slug:           "packaging_materials",
			confidence:     0.88,
			wantSlug:       "packaging_materials",
			wantConfidence: 0.88,
		},
		{
			name:           "sales tax forced",
			txn:            txn("", "TX COMPTROLLER SALES TAX PMT", "-84211"),
			slug:           "bank_fees",
			confidence:     0.6,
			wantSlug:       taxonomy.SlugSalesTaxPayable,
			wantApplied:    []string{RuleSalesTaxRedirect},
			wantConfidence: 0.6,
		},
		{
			name:           "shopify payout forced to clearing",
			txn:            txn("Shopify", "SHOPIFY PAYMENTS PAYOUT", "125000"),
			slug:           "dtc_sales",
			confidence:     0.9,
			wantSlug:       taxonomy.SlugShopifyClearing,
			wantApplied:    []string{RulePayoutClearingRedirect},
			wantConfidence: 0.9,
		},
		{
			name:           "stripe payout blocked then cleared",
			txn:            txn("Stripe", "STRIPE PAYOUT", "50000"),
			slug:           "dtc_sales",
			confidence:     0.9,
			wantSlug:       taxonomy.SlugStripeClearing,
			wantApplied:    []string{RuleRevenueBlock, RulePayoutClearingRedirect},
			wantConfidence: 0.72,
		},
		{
			name:           "payout wins over tax wording",
			txn:            txn("", "PAYPAL TRANSFER SALES TAX HOLD", "1000"),
			slug:           "other_operations",
			confidence:     0.3,
			wantSlug:       taxonomy.SlugPayPalClearing,
			wantApplied:    []string{RulePayoutClearingRedirect},
			wantConfidence: 0.3,
		},
		{
			name:           "unknown slug falls back",
			txn:            txn("Acme", "ACME", "-100"),
			slug:           "not_a_real_slug",
			confidence:     0.4,
			wantSlug:       taxonomy.SlugOtherOperations,
			wantApplied:    []string{RuleUnknownSlugFallback},
			wantConfidence: 0.4,
		},
		{
			name:           "unknown slug replaced by tax redirect",
			txn:            txn("", "DEPT OF REVENUE", "-100"),
			slug:           "garbage",
			confidence:     0.4,
			wantSlug:       taxonomy.SlugSalesTaxPayable,
			wantApplied:    []string{RuleSalesTaxRedirect},
			wantConfidence: 0.4,
		},
		{
			name:           "unparseable amount still blocks processors",
			txn:            txn("Square", "SQ FEE", "n/a"),
			slug:           "dtc_sales",
			confidence:     0.5,
			wantSlug:       taxonomy.SlugRefundsAllowances,
			wantApplied:    []string{RuleRevenueBlock},
			wantConfidence: 0.4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Apply(tt.txn, tt.slug, tt.confidence)

			assert.Equal(t, tt.wantSlug, got.CategorySlug)
			assert.Equal(t, tt.wantSlug, slugOf(t, got.CategoryID))
			assert.Equal(t, tt.wantApplied, got.GuardrailsApplied)
			assert.Len(t, got.Violations, len(tt.wantApplied))
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 1e-9)
		})
	}
}

func TestEngine_StripeScenario(t *testing.T) {
	engine := newTestEngine(t)

	got := engine.Apply(txn("Stripe", "PAYMENT PROCESSING FEE", "-2500"), "dtc_sales", 0.9)

	assert.Equal(t, taxonomy.Ecommerce().SlugToID(taxonomy.SlugPaymentProcessingFees), got.CategoryID)
	assert.Contains(t, got.GuardrailsApplied, RuleRevenueBlock)
	assert.Less(t, got.Confidence, 0.9)
	require.Len(t, got.Violations, 1)
	assert.Contains(t, got.Violations[0], "stripe")
}

func TestEngine_Idempotent(t *testing.T) {
	engine := newTestEngine(t)

	cases := []struct {
		txn  model.NormalizedTransaction
		slug string
	}{
		{txn("Stripe", "PAYMENT PROCESSING FEE", "-2500"), "dtc_sales"},
		{txn("", "REFUND FOR ORDER #12345", "-4999"), "dtc_sales"},
		{txn("Stripe", "STRIPE PAYOUT", "50000"), "dtc_sales"},
		{txn("Stripe", "REFUND FOR ORDER #12345", "-2500"), "dtc_sales"},
		{txn("Klarna", "KLARNA DEPOSIT", "50000"), "dtc_sales"},
		{txn("", "PAYPAL TRANSFER SALES TAX HOLD", "1000"), "dtc_sales"},
		{txn("", "CA FRANCHISE TAX BOARD", "-80000"), "not_a_real_slug"},
		{txn("Afterpay", "AFTERPAY", "-150"), "shipping_income"},
		{txn("", "ETSY DEPOSIT", "12500"), "marketplace_sales"},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case %d", i), func(t *testing.T) {
			first := engine.Apply(c.txn, c.slug, 0.9)
			second := engine.Apply(c.txn, first.CategorySlug, first.Confidence)

			assert.Equal(t, first.CategoryID, second.CategoryID)
			assert.InDelta(t, first.Confidence, second.Confidence, 1e-12)
			assert.Empty(t, second.GuardrailsApplied)
		})
	}
}

func TestEngine_RevenueBlockInvariants(t *testing.T) {
	engine := newTestEngine(t)
	tax := taxonomy.Ecommerce()

	processors := newMatcher([]string{"stripe", "paypal", "square", "klarna", "affirm", "shopify payments"})
	merchants := []string{"", "Stripe", "PayPal", "Square", "Klarna", "Affirm", "Shopify Payments", "Acme Co", "Etsy"}
	amounts := []string{"-1", "-2500", "0", "1", "99999"}

	for _, rev := range tax.ByType(model.CategoryTypeRevenue) {
		for _, merchant := range merchants {
			for _, amount := range amounts {
				got := engine.Apply(txn(merchant, "ORDER 1001", amount), rev.Slug, 0.95)
				node, ok := tax.ByID(got.CategoryID)
				require.True(t, ok)

				if amount[0] == '-' {
					assert.NotEqual(t, model.CategoryTypeRevenue, node.Type,
						"money out must never stay in revenue (%s, %s, %s)", rev.Slug, merchant, amount)
				}
				if _, isProcessor := processors.find(pattern.Normalize(merchant)); isProcessor {
					assert.NotEqual(t, model.CategoryTypeRevenue, node.Type,
						"processor activity must never be revenue (%s, %s, %s)", rev.Slug, merchant, amount)
					if amount[0] != '-' {
						assert.NotEqual(t, taxonomy.SlugPaymentProcessingFees, got.CategorySlug,
							"money in must never become a fee (%s, %s, %s)", rev.Slug, merchant, amount)
					}
				}
			}
		}
	}
}
