package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// AmountScale is the number of decimal places an amount may carry.
	AmountScale = 2

	maxAmountDigits = 12
)

var (
	ErrInvalidAmount = errors.New("invalid amount")

	// MaxAmount is the largest accepted transaction amount.
	MaxAmount = decimal.New(1, maxAmountDigits)
)

// ParseAmount reads a decimal amount. Both "12.34" and "12,34" are accepted;
// exponent notation is not. Sign and range checks are left to validation so
// that "-5" reports as out of range rather than malformed.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders d with two decimals, the way amounts are displayed
// in exports.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
