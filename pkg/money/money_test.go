package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"integer", "100", "100.00"},
		{"one_decimal", "99.9", "99.90"},
		{"two_decimals", "150.00", "150.00"},
		{"extra_precision_rounds", "10.005", "10.01"},
		{"negative", "-3.5", "-3.50"},
		{"whitespace", "  42 ", "42.00"},
		{"non_numeric", "abc", "0.00"},
		{"empty", "", "0.00"},
		{"currency_symbol_rejected", "$5", "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.input))
		})
	}
}

func TestFormatIdempotent(t *testing.T) {
	for _, input := range []string{"100", "99.999", "0", "abc", "-17.3", "1e3"} {
		once := Format(input)
		assert.Equal(t, once, Format(once), "input %q", input)
	}
}

func TestParse(t *testing.T) {
	d, ok := Parse("150.00")
	require.True(t, ok)
	assert.True(t, d.Equal(decimal.RequireFromString("150")))

	_, ok = Parse("not money")
	assert.False(t, ok)
}

func TestStringRoundTrip(t *testing.T) {
	d, ok := Parse("99.9")
	require.True(t, ok)
	assert.Equal(t, "99.90", String(d))
}
