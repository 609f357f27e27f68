package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Source values for NormalizedTransaction.Source.
const (
	SourcePlaid  = "plaid"
	SourceOFX    = "ofx"
	SourceManual = "manual"
)

// NormalizedTransaction is a provider transaction reduced to the fields categorization needs.
//
// AmountCents is a signed integer number of minor currency units kept as a string.
// Negative amounts are money out, positive amounts are money in.
type NormalizedTransaction struct {
	Date         time.Time
	MerchantName *string
	MCC          *string
	CategoryID   *string
	Confidence   *float64
	ID           string
	OrgID        string
	AmountCents  string
	Currency     string
	Description  string
	Source       string
	Raw          json.RawMessage
	Reviewed     bool
	NeedsReview  bool
}

// Merchant returns the trimmed merchant name, or "" when absent.
func (t NormalizedTransaction) Merchant() string {
	if t.MerchantName == nil {
		return ""
	}
	return strings.TrimSpace(*t.MerchantName)
}

// MerchantCode returns the trimmed MCC, or "" when absent.
func (t NormalizedTransaction) MerchantCode() string {
	if t.MCC == nil {
		return ""
	}
	return strings.TrimSpace(*t.MCC)
}

// StringPtr returns a pointer to s, or nil when s is blank.
func StringPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
