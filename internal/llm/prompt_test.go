package llm

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

func promptTxn() model.NormalizedTransaction {
	return model.NormalizedTransaction{
		ID:          "txn-1",
		OrgID:       "org-1",
		Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		AmountCents: "2550",
		Currency:    "USD",
		Description: "ETSY DEPOSIT",
	}
}

func TestBuildCategorizationPrompt_Fields(t *testing.T) {
	prompt := BuildCategorizationPrompt(promptTxn(), taxonomy.Ecommerce(), "ecommerce", "")

	assert.Contains(t, prompt, "- Merchant: Unknown")
	assert.Contains(t, prompt, "- MCC: Not provided")
	assert.Contains(t, prompt, "- Amount: $25.50")
	assert.Contains(t, prompt, "- Industry: ecommerce")
	assert.NotContains(t, prompt, "Previously categorized")
	assert.Contains(t, prompt, "Refunds, returns and chargebacks are never revenue")
	assert.Contains(t, prompt, "payment processors")
	assert.Contains(t, prompt, `"category_slug"`)
}

func TestBuildCategorizationPrompt_OptionalFields(t *testing.T) {
	txn := promptTxn()
	txn.MerchantName = model.StringPtr("Etsy")
	txn.MCC = model.StringPtr("5999")
	txn.AmountCents = "-100"

	prompt := BuildCategorizationPrompt(txn, taxonomy.Ecommerce(), "ecommerce", "Marketplace Sales")

	assert.Contains(t, prompt, "- Merchant: Etsy")
	assert.Contains(t, prompt, "- MCC: 5999")
	assert.Contains(t, prompt, "- Amount: -$1.00")
	assert.Contains(t, prompt, "- Previously categorized as: Marketplace Sales")
}

func TestBuildCategorizationPrompt_CandidateLists(t *testing.T) {
	tax := taxonomy.Ecommerce()
	prompt := BuildCategorizationPrompt(promptTxn(), tax, "ecommerce", "")

	for _, n := range tax.PromptCategories() {
		assert.Contains(t, prompt, n.Slug)
	}
	for _, n := range tax.All() {
		if n.Type.IsBalanceSheet() {
			assert.NotContains(t, prompt, n.Slug)
		}
	}
	assert.Contains(t, prompt, "Revenue: dtc_sales, wholesale_sales")
}

func TestBuildCategorizationPrompt_Deterministic(t *testing.T) {
	tax := taxonomy.Ecommerce()
	assert.Equal(t,
		BuildCategorizationPrompt(promptTxn(), tax, "ecommerce", "x"),
		BuildCategorizationPrompt(promptTxn(), tax, "ecommerce", "x"))
}

func TestBuildCategorizationPrompt_TruncatesDescription(t *testing.T) {
	txn := promptTxn()
	txn.Description = strings.Repeat("a", 150) + strings.Repeat("b", 50)

	prompt := BuildCategorizationPrompt(txn, taxonomy.Ecommerce(), "ecommerce", "")

	want := strings.Repeat("a", 150) + strings.Repeat("b", 7) + "..."
	assert.Contains(t, prompt, "- Description: "+want+"\n")
	assert.NotContains(t, prompt, txn.Description)
	assert.NotContains(t, prompt, strings.Repeat("b", 8))
}

func TestTruncateDescription(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "short", in: "PAYMENT", want: "PAYMENT"},
		{name: "exactly 160", in: strings.Repeat("x", 160), want: strings.Repeat("x", 160)},
		{name: "161", in: strings.Repeat("x", 161), want: strings.Repeat("x", 157) + "..."},
		{name: "multibyte", in: strings.Repeat("é", 200), want: strings.Repeat("é", 157) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateDescription(tt.in))
		})
	}
}
