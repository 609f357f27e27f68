package model

// CategoryType places a category in the profit-and-loss structure.
type CategoryType string

const (
	// CategoryTypeRevenue represents income from sales.
	CategoryTypeRevenue CategoryType = "revenue"
	// CategoryTypeCOGS represents direct costs of the goods sold.
	CategoryTypeCOGS CategoryType = "cogs"
	// CategoryTypeOpex represents operating expenses.
	CategoryTypeOpex CategoryType = "opex"
	// CategoryTypeLiability represents balance-sheet obligations such as collected sales tax.
	CategoryTypeLiability CategoryType = "liability"
	// CategoryTypeClearing represents money in transit between accounts (processor payouts).
	CategoryTypeClearing CategoryType = "clearing"
)

// IsValid reports whether t is one of the known category types.
func (t CategoryType) IsValid() bool {
	switch t {
	case CategoryTypeRevenue, CategoryTypeCOGS, CategoryTypeOpex, CategoryTypeLiability, CategoryTypeClearing:
		return true
	}
	return false
}

// IsBalanceSheet reports whether categories of this type are excluded from P&L totals.
func (t CategoryType) IsBalanceSheet() bool {
	return t == CategoryTypeLiability || t == CategoryTypeClearing
}

// CategoryNode is a single entry of the category taxonomy.
type CategoryNode struct {
	ParentID        *string
	ID              string
	Slug            string
	Name            string
	Type            CategoryType
	IsPnL           bool
	IncludeInPrompt bool
}

// IsTier1 reports whether the node is a top-level parent.
func (n CategoryNode) IsTier1() bool {
	return n.ParentID == nil
}
