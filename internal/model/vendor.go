package model

import "time"

// VendorOverride is an organization-specific pass 1 rule mapping a keyword to a category.
type VendorOverride struct {
	CreatedAt    time.Time
	OrgID        string
	Keyword      string
	CategorySlug string
	Confidence   float64
	ID           int64
}
