package utils

import (
	"strings"

	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
)

// RoundToDecimalPrecision rounds the quantity down to the specified decimal precision.
func RoundToDecimalPrecision(quantity decimal.Decimal, decimalPrecision int32) decimal.Decimal {
	return quantity.RoundDown(decimalPrecision)
}

// FormatDecimal renders d with at most decimalPrecision places, dropping trailing zeros.
func FormatDecimal(d decimal.Decimal, decimalPrecision int32) string {
	return RoundToDecimalPrecision(d, decimalPrecision).String()
}

// ParseDecimal parses a venue number string. An empty string is zero.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.ErrCodeInvalidType, err, "invalid decimal %q", s)
	}

	return d, nil
}

// AveragePrice divides a quote amount by a quantity, returning zero when nothing executed.
func AveragePrice(quoteAmount, quantity decimal.Decimal) decimal.Decimal {
	if !quantity.IsPositive() {
		return decimal.Zero
	}

	return quoteAmount.DivRound(quantity, 8)
}
