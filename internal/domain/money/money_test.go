package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name      string
		unitPrice string
		quantity  int
		want      string
	}{
		{"whole amounts", "10.00", 3, "30.00"},
		{"no float drift", "0.10", 3, "0.30"},
		{"rounds half away from zero", "0.125", 1, "0.13"},
		{"sub-cent unit price", "0.333", 3, "1.00"},
		{"large quantity", "19.99", 1000, "19990.00"},
		{"zero price", "0", 5, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineTotal(MustParse(tt.unitPrice), tt.quantity)
			assert.True(t, got.Equal(MustParse(tt.want)), "LineTotal() = %s, want %s", got, tt.want)
		})
	}
}

func TestSum(t *testing.T) {
	assert.True(t, Sum().Equal(decimal.Zero))
	assert.Equal(t, "0.30", Format(Sum(MustParse("0.1"), MustParse("0.2"))))
	assert.Equal(t, "60.50", Format(Sum(MustParse("30.00"), MustParse("30.50"))))
}

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency(" usd ")
	require.NoError(t, err)
	assert.Equal(t, CurrencyUSD, c)

	_, err = ParseCurrency("JPY")
	assert.Error(t, err)

	_, err = ParseCurrency("")
	assert.Error(t, err)
}

func TestCurrency_IsValid(t *testing.T) {
	for _, c := range Currencies() {
		assert.True(t, c.IsValid(), string(c))
	}
	assert.False(t, Currency("eur").IsValid())
}

func TestTolerance(t *testing.T) {
	assert.Equal(t, "0.01", Tolerance.String())
}
