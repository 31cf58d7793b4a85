package common

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"11880", "CAD", "$11,880.00"},
		{"1234.565", "cad", "$1,234.57"},
		{"-250.5", "USD", "-$250.50"},
		{"10", "XYZ", "10.00 XYZ"},
	}
	for _, tt := range tests {
		got := FormatMoney(decimal.RequireFromString(tt.amount), tt.currency)
		assert.Equal(t, tt.want, got, tt.amount+" "+tt.currency)
	}
}

func TestFormatSignedMoney(t *testing.T) {
	assert.Equal(t, "+$1,000.00", FormatSignedMoney(decimal.NewFromInt(1000), "CAD"))
	assert.Equal(t, "$0.00", FormatSignedMoney(decimal.Zero, "CAD"))
}

func TestFormatPct(t *testing.T) {
	assert.Equal(t, "8.4%", FormatPct(decimal.RequireFromString("8.417")))
}
