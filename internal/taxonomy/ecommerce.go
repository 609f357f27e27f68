package taxonomy

import (
	"github.com/Veraticus/pnl-categorizer/internal/model"
)

// Slugs referenced by pipeline code.
const (
	SlugOtherOperations       = "other_operations"
	SlugRefundsAllowances     = "refunds_allowances"
	SlugPaymentProcessingFees = "payment_processing_fees"
	SlugSalesTaxPayable       = "sales_tax_payable"
	SlugShopifyClearing       = "shopify_payments_clearing"
	SlugStripeClearing        = "stripe_clearing"
	SlugPayPalClearing        = "paypal_clearing"
	SlugDTCSales              = "dtc_sales"
)

type nodeSpec struct {
	slug   string
	name   string
	parent string
	typ    model.CategoryType
	pnl    bool
	prompt bool
}

// ecommerceSpec is the ecommerce chart of categories. Tier 1 nodes come first.
// refunds_allowances is contra-revenue: it sits under the revenue parent but is typed opex so
// that nothing typed revenue can ever carry money going back out to customers.
var ecommerceSpec = []nodeSpec{
	{slug: "revenue", name: "Revenue", typ: model.CategoryTypeRevenue, pnl: true},
	{slug: "cogs", name: "Cost of Goods Sold", typ: model.CategoryTypeCOGS, pnl: true},
	{slug: "operating_expenses", name: "Operating Expenses", typ: model.CategoryTypeOpex, pnl: true},
	{slug: "liabilities", name: "Liabilities", typ: model.CategoryTypeLiability},
	{slug: "clearing", name: "Clearing Accounts", typ: model.CategoryTypeClearing},

	{slug: SlugDTCSales, name: "DTC Sales", parent: "revenue", typ: model.CategoryTypeRevenue, pnl: true, prompt: true},
	{slug: "wholesale_sales", name: "Wholesale Sales", parent: "revenue", typ: model.CategoryTypeRevenue, pnl: true, prompt: true},
	{slug: "marketplace_sales", name: "Marketplace Sales", parent: "revenue", typ: model.CategoryTypeRevenue, pnl: true, prompt: true},
	{slug: "shipping_income", name: "Shipping Income", parent: "revenue", typ: model.CategoryTypeRevenue, pnl: true, prompt: true},
	{slug: SlugRefundsAllowances, name: "Refunds & Allowances", parent: "revenue", typ: model.CategoryTypeOpex, pnl: true, prompt: true},

	{slug: "inventory_purchases", name: "Inventory Purchases", parent: "cogs", typ: model.CategoryTypeCOGS, pnl: true, prompt: true},
	{slug: "freight_inbound", name: "Inbound Freight & Duties", parent: "cogs", typ: model.CategoryTypeCOGS, pnl: true, prompt: true},
	{slug: "packaging_materials", name: "Packaging Materials", parent: "cogs", typ: model.CategoryTypeCOGS, pnl: true, prompt: true},
	{slug: "shipping_fulfillment", name: "Outbound Shipping & Postage", parent: "cogs", typ: model.CategoryTypeCOGS, pnl: true, prompt: true},
	{slug: "fulfillment_3pl", name: "3PL & Warehousing", parent: "cogs", typ: model.CategoryTypeCOGS, pnl: true, prompt: true},

	{slug: "advertising_marketing", name: "Advertising & Marketing", parent: "operating_expenses", typ: model.CategoryTypeOpex, pnl: true, prompt: true},
	{slug: "software_subscriptions", name: "Software & Subscriptions", parent: "operating_expenses", typ: model.CategoryTypeOpex, pnl: true, prompt: true},
	{slug: SlugPaymentProcessingFees, name: "Payment Processing Fees", parent: "operating_expenses", typ: model.CategoryTypeOpex, pnl: true, prompt: true},
	{slug: "payroll", name: "Payroll & Benefits", parent: "operating_expenses", typ: model.CategoryTypeOpex, pnl: true, prompt: true},
	{slug: "contractors", name: "Contractors & Freelancers", parent: "operating_expenses", typ: model.CategoryTypeOpex, pnl: true, prompt: true},
	{slug: "rent_utilities", name: "Rent & Utilities", parent: "operating_expenses", typ: model.CategoryTypeOpex, pnl: true, prompt: true},
	{slug: "insurance", name: "Insurance", parent: "operating_expenses", typ: model.CategoryTypeOpex, pnl: true, prompt: true},
	{slug: "professional_services", name: "Legal & Accounting", parent: "operating_expenses", typ: model.CategoryTypeOpex, pnl: true, prompt: true},
	{slug: "bank_fees", name: "Bank Fees & Interest", parent: "operating_expenses", typ: model.CategoryTypeOpex, pnl: true, prompt: true},
	{slug: "travel_meals", name: "Travel & Meals", parent: "operating_expenses", typ: model.CategoryTypeOpex, pnl: true, prompt: true},
	{slug: "office_supplies", name: "Office Supplies", parent: "operating_expenses", typ: model.CategoryTypeOpex, pnl: true, prompt: true},
	{slug: SlugOtherOperations, name: "Other Operations", parent: "operating_expenses", typ: model.CategoryTypeOpex, pnl: true, prompt: true},

	{slug: SlugSalesTaxPayable, name: "Sales Tax Payable", parent: "liabilities", typ: model.CategoryTypeLiability},
	{slug: "loan_payable", name: "Loans & Financing", parent: "liabilities", typ: model.CategoryTypeLiability},

	{slug: SlugShopifyClearing, name: "Shopify Payments Clearing", parent: "clearing", typ: model.CategoryTypeClearing},
	{slug: SlugStripeClearing, name: "Stripe Clearing", parent: "clearing", typ: model.CategoryTypeClearing},
	{slug: SlugPayPalClearing, name: "PayPal Clearing", parent: "clearing", typ: model.CategoryTypeClearing},
	{slug: "amazon_payouts_clearing", name: "Amazon Payouts Clearing", parent: "clearing", typ: model.CategoryTypeClearing},
	{slug: "internal_transfers", name: "Internal Transfers", parent: "clearing", typ: model.CategoryTypeClearing},
}

func buildNodes(industry string, specs []nodeSpec) []model.CategoryNode {
	ids := make(map[string]string, len(specs))
	for _, s := range specs {
		ids[s.slug] = NodeID(industry, s.slug)
	}

	nodes := make([]model.CategoryNode, 0, len(specs))
	for _, s := range specs {
		node := model.CategoryNode{
			ID:              ids[s.slug],
			Slug:            s.slug,
			Name:            s.name,
			Type:            s.typ,
			IsPnL:           s.pnl,
			IncludeInPrompt: s.prompt,
		}
		if s.parent != "" {
			parentID, ok := ids[s.parent]
			if !ok {
				// Unresolvable parents keep a dangling id so Validate reports them.
				parentID = NodeID(industry, s.parent)
			}
			node.ParentID = &parentID
		}
		nodes = append(nodes, node)
	}
	return nodes
}
