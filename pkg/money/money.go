// Package money canonicalizes monetary text at wire and storage boundaries.
// Amounts are carried through the core as decimals and rendered with exactly
// two digits after the point, so binary floating-point error never reaches
// comparisons or display.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Zero is the canonical textual zero amount.
const Zero = "0.00"

// Format renders any numeric-like text as a canonical 2-decimal string.
// Unparseable input degrades to "0.00" rather than failing; form fields cross
// this boundary unvalidated. Format is idempotent: Format(Format(x)) == Format(x).
func Format(s string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Zero
	}
	return d.StringFixed(2)
}

// Parse returns the decimal value of a monetary string, or false when the
// input is not numeric.
func Parse(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	return d.Round(2), true
}

// String renders a decimal amount canonically.
func String(d decimal.Decimal) string {
	return d.StringFixed(2)
}
