// Package storage provides SQLite persistence for organizations, transactions,
// categorization history and vendor overrides.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/money"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidOverride    = errors.New("invalid vendor override")
	ErrInvalidResult      = errors.New("invalid categorization result")
	ErrAlreadyReviewed    = errors.New("transaction already reviewed")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validConfidence(c float64) bool {
	return !math.IsNaN(c) && c >= 0 && c <= 1
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.NormalizedTransaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i := range transactions {
		if err := validateTransaction(&transactions[i]); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.NormalizedTransaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if strings.TrimSpace(txn.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if strings.TrimSpace(txn.OrgID) == "" {
		return fmt.Errorf("%w: missing organization ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if strings.TrimSpace(txn.Source) == "" {
		return fmt.Errorf("%w: missing source", ErrInvalidTransaction)
	}
	if _, err := money.ParseCents(txn.AmountCents); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	return nil
}

// validateOrganization validates an organization record.
func validateOrganization(org *model.Organization) error {
	if org == nil {
		return fmt.Errorf("%w: organization", ErrNilParameter)
	}
	if err := validateString(org.ID, "organization ID"); err != nil {
		return err
	}
	if err := validateString(org.Name, "organization name"); err != nil {
		return err
	}
	return nil
}

// validateOverride validates a vendor override.
func validateOverride(o *model.VendorOverride) error {
	if o == nil {
		return fmt.Errorf("%w: vendor override", ErrNilParameter)
	}
	if strings.TrimSpace(o.OrgID) == "" {
		return fmt.Errorf("%w: missing organization ID", ErrInvalidOverride)
	}
	if strings.TrimSpace(o.Keyword) == "" {
		return fmt.Errorf("%w: missing keyword", ErrInvalidOverride)
	}
	if strings.TrimSpace(o.CategorySlug) == "" {
		return fmt.Errorf("%w: missing category slug", ErrInvalidOverride)
	}
	if !validConfidence(o.Confidence) {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidOverride, o.Confidence)
	}
	return nil
}

// validateResult validates a categorization result before it is persisted.
func validateResult(r *model.CategorizationResult) error {
	if r == nil {
		return fmt.Errorf("%w: result", ErrNilParameter)
	}
	if strings.TrimSpace(r.CategoryID) == "" {
		return fmt.Errorf("%w: missing category ID", ErrInvalidResult)
	}
	if !validConfidence(r.Confidence) {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidResult, r.Confidence)
	}
	return nil
}
