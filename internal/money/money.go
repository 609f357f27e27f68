// Package money converts between minor-unit amount strings and display values without
// floating-point arithmetic.
package money

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for amounts that are not whole numbers of minor units.
var ErrInvalidAmount = errors.New("invalid amount")

// centsPattern accepts only an optionally signed run of digits.
var centsPattern = regexp.MustCompile(`^[+-]?[0-9]+$`)

// ParseCents parses a signed, integer-valued amount of minor currency units.
func ParseCents(cents string) (decimal.Decimal, error) {
	s := strings.TrimSpace(cents)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}

	if !centsPattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q is not a whole number of minor units", ErrInvalidAmount, cents)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, cents)
	}

	return d, nil
}

// Sign returns -1, 0 or 1 for the amount, or an error when it cannot be parsed.
func Sign(cents string) (int, error) {
	d, err := ParseCents(cents)
	if err != nil {
		return 0, err
	}
	return d.Sign(), nil
}

// FormatCents renders minor units as dollars, e.g. "2550" -> "$25.50", "-2500" -> "-$25.00".
func FormatCents(cents string) (string, error) {
	d, err := ParseCents(cents)
	if err != nil {
		return "", err
	}

	formatted := "$" + d.Abs().Shift(-2).StringFixed(2)
	if d.Sign() < 0 {
		formatted = "-" + formatted
	}
	return formatted, nil
}

// ToCentsString converts a major-unit amount to a minor-unit string, rounding half away from zero.
func ToCentsString(amount decimal.Decimal) string {
	return amount.Shift(2).Round(0).String()
}

// FromMajorString converts a decimal string in major units ("25.50") to minor units ("2550").
func FromMajorString(amount string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	return ToCentsString(d), nil
}
