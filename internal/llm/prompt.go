package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/money"
	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

const (
	maxDescriptionRunes = 160
	ellipsis            = "..."
)

const systemPrompt = "You are a bookkeeping assistant that assigns profit-and-loss categories to business bank transactions. " +
	"You MUST respond with ONLY a valid JSON object. Do not include any explanatory text, markdown formatting, or commentary before or after the JSON."

// BuildCategorizationPrompt renders the pass 2 prompt for txn. The output depends only on its
// arguments. prior may be empty.
func BuildCategorizationPrompt(txn model.NormalizedTransaction, tax *taxonomy.Taxonomy, industry, prior string) string {
	merchant := txn.Merchant()
	if merchant == "" {
		merchant = "Unknown"
	}

	mcc := txn.MerchantCode()
	if mcc == "" {
		mcc = "Not provided"
	}

	amount, err := money.FormatCents(txn.AmountCents)
	if err != nil {
		amount = "Unknown"
	}

	var sb strings.Builder
	sb.WriteString("Categorize this business transaction into exactly one category.\n\n")
	sb.WriteString("Transaction:\n")
	fmt.Fprintf(&sb, "- Merchant: %s\n", merchant)
	fmt.Fprintf(&sb, "- Description: %s\n", TruncateDescription(txn.Description))
	fmt.Fprintf(&sb, "- Amount: %s (negative is money out, positive is money in)\n", amount)
	fmt.Fprintf(&sb, "- MCC: %s\n", mcc)
	fmt.Fprintf(&sb, "- Industry: %s\n", industry)
	if prior = strings.TrimSpace(prior); prior != "" {
		fmt.Fprintf(&sb, "- Previously categorized as: %s\n", prior)
	}

	sb.WriteString("\nAllowed categories:\n")
	fmt.Fprintf(&sb, "Revenue: %s\n", strings.Join(tax.PromptSlugsByType(model.CategoryTypeRevenue), ", "))
	fmt.Fprintf(&sb, "COGS: %s\n", strings.Join(tax.PromptSlugsByType(model.CategoryTypeCOGS), ", "))
	fmt.Fprintf(&sb, "Operating expenses: %s\n", strings.Join(tax.PromptSlugsByType(model.CategoryTypeOpex), ", "))

	sb.WriteString("\nRules:\n")
	sb.WriteString("- Refunds, returns and chargebacks are never revenue; use refunds_allowances.\n")
	sb.WriteString("- Fees charged by payment processors (Stripe, PayPal, Square, Shopify Payments) are never revenue; use payment_processing_fees.\n")
	sb.WriteString("- Only use a slug from the lists above.\n")

	sb.WriteString("\nRespond with JSON only, in exactly this shape:\n")
	sb.WriteString(`{"category_slug": "<slug>", "confidence": <number between 0 and 1>, "rationale": "<one sentence>"}`)
	sb.WriteString("\n")

	return sb.String()
}

// TruncateDescription caps s at 160 characters, keeping 157 and appending "..." when cut.
func TruncateDescription(s string) string {
	runes := []rune(s)
	if len(runes) <= maxDescriptionRunes {
		return s
	}
	keep := maxDescriptionRunes - len(ellipsis)
	return string(runes[:keep]) + ellipsis
}
