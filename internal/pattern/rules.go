// Package pattern implements pass 1 of categorization: deterministic vendor and keyword rules.
package pattern

import (
	"fmt"

	"github.com/Veraticus/pnl-categorizer/internal/model"
)

// Direction restricts a rule to one sign of the transaction amount.
type Direction string

// Rule directions.
const (
	DirectionAny Direction = ""
	DirectionOut Direction = "out"
	DirectionIn  Direction = "in"
)

// Rule maps keywords (or a regular expression over normalized text) to a category slug.
// Keywords are normalized before matching and must appear as whole tokens.
type Rule struct {
	ID           string
	CategorySlug string
	Pattern      string
	Direction    Direction
	Keywords     []string
	Confidence   float64
}

// DefaultRules returns the ordered ecommerce rule table. Earlier rules win, so specific
// vendors are listed before generic words.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:           "payout_shopify",
			Keywords:     []string{"shopify payments payout", "shopify transfer", "shopify payout"},
			CategorySlug: "shopify_payments_clearing",
			Confidence:   0.98,
		},
		{
			ID:           "payout_stripe",
			Keywords:     []string{"stripe payout", "stripe transfer"},
			CategorySlug: "stripe_clearing",
			Confidence:   0.98,
		},
		{
			ID:           "payout_paypal",
			Keywords:     []string{"paypal transfer", "paypal payout"},
			CategorySlug: "paypal_clearing",
			Confidence:   0.98,
		},
		{
			ID:           "payout_amazon",
			Keywords:     []string{"amazon payments payout", "amzn mktp payout", "amazon seller payout"},
			CategorySlug: "amazon_payouts_clearing",
			Confidence:   0.97,
		},
		{
			ID:           "sales_tax",
			Keywords:     []string{"sales tax", "department of revenue", "dept of revenue", "comptroller", "franchise tax board", "taxjar", "avalara"},
			CategorySlug: "sales_tax_payable",
			Confidence:   0.95,
		},
		{
			ID:           "financing",
			Keywords:     []string{"shopify capital", "clearco", "paypal working capital", "stripe capital"},
			CategorySlug: "loan_payable",
			Confidence:   0.9,
		},
		{
			ID:           "processor_fees",
			Keywords:     []string{"stripe fee", "stripe fees", "paypal fee", "paypal fees", "processing fee", "merchant fee", "square fee", "shopify payments fee"},
			CategorySlug: "payment_processing_fees",
			Direction:    DirectionOut,
			Confidence:   0.92,
		},
		{
			ID:           "ads",
			Keywords:     []string{"facebk", "facebook ads", "meta ads", "google ads", "tiktok ads", "pinterest ads", "snapchat ads"},
			CategorySlug: "advertising_marketing",
			Direction:    DirectionOut,
			Confidence:   0.95,
		},
		{
			ID:           "email_marketing",
			Keywords:     []string{"klaviyo", "mailchimp", "attentive", "postscript"},
			CategorySlug: "advertising_marketing",
			Direction:    DirectionOut,
			Confidence:   0.88,
		},
		{
			ID:           "shipping_carriers",
			Keywords:     []string{"usps", "ups", "fedex", "dhl", "shipstation", "easypost", "pirate ship", "stamps com"},
			CategorySlug: "shipping_fulfillment",
			Direction:    DirectionOut,
			Confidence:   0.9,
		},
		{
			ID:           "third_party_logistics",
			Keywords:     []string{"shipbob", "deliverr", "shipmonk", "red stag"},
			CategorySlug: "fulfillment_3pl",
			Direction:    DirectionOut,
			Confidence:   0.9,
		},
		{
			ID:           "packaging",
			Keywords:     []string{"uline", "packlane", "noissue", "ecoenclose"},
			CategorySlug: "packaging_materials",
			Direction:    DirectionOut,
			Confidence:   0.88,
		},
		{
			ID:           "freight",
			Keywords:     []string{"flexport", "freightos", "customs duty", "customs broker"},
			CategorySlug: "freight_inbound",
			Direction:    DirectionOut,
			Confidence:   0.88,
		},
		{
			ID:           "suppliers",
			Keywords:     []string{"alibaba", "aliexpress", "faire wholesale"},
			CategorySlug: "inventory_purchases",
			Direction:    DirectionOut,
			Confidence:   0.85,
		},
		{
			ID:           "software",
			Keywords:     []string{"shopify subscription", "shopify app", "google workspace", "gsuite", "slack", "notion", "adobe", "canva", "zoom us", "aws", "github", "quickbooks", "xero", "gorgias"},
			CategorySlug: "software_subscriptions",
			Direction:    DirectionOut,
			Confidence:   0.9,
		},
		{
			ID:           "payroll",
			Keywords:     []string{"gusto", "adp", "rippling", "justworks", "paychex"},
			CategorySlug: "payroll",
			Direction:    DirectionOut,
			Confidence:   0.9,
		},
		{
			ID:           "contractors",
			Keywords:     []string{"upwork", "fiverr", "toptal", "deel"},
			CategorySlug: "contractors",
			Direction:    DirectionOut,
			Confidence:   0.85,
		},
		{
			ID:           "insurance",
			Keywords:     []string{"insurance", "next insurance", "hiscox", "state farm"},
			CategorySlug: "insurance",
			Direction:    DirectionOut,
			Confidence:   0.85,
		},
		{
			ID:           "bank_fees",
			Keywords:     []string{"service fee", "monthly maintenance fee", "wire fee", "overdraft fee", "interest charge"},
			CategorySlug: "bank_fees",
			Direction:    DirectionOut,
			Confidence:   0.85,
		},
		{
			ID:           "refunds",
			Keywords:     []string{"refund", "chargeback", "return credit"},
			CategorySlug: "refunds_allowances",
			Direction:    DirectionOut,
			Confidence:   0.85,
		},
		{
			ID:           "internal_transfer",
			Pattern:      `^(online )?transfer (to|from) (chk|checking|sav|savings)`,
			CategorySlug: "internal_transfers",
			Confidence:   0.8,
		},
		{
			ID:           "storefront_sales",
			Keywords:     []string{"shopify sale", "shop order"},
			CategorySlug: "dtc_sales",
			Direction:    DirectionIn,
			Confidence:   0.7,
		},
	}
}

// OverrideRules turns organization vendor overrides into rules.
func OverrideRules(overrides []model.VendorOverride) []Rule {
	rules := make([]Rule, 0, len(overrides))
	for _, o := range overrides {
		rules = append(rules, Rule{
			ID:           fmt.Sprintf("vendor_override:%d", o.ID),
			Keywords:     []string{o.Keyword},
			CategorySlug: o.CategorySlug,
			Confidence:   o.Confidence,
		})
	}
	return rules
}
