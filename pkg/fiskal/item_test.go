package fiskal_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fiskalhr/pkg/fiskal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewTaxItem(t *testing.T) {
	item, err := fiskal.NewTaxItem(d("100"), d("25"), d("25"))
	require.NoError(t, err)
	assert.Equal(t, "100.00", item.Base.String())
	assert.Equal(t, "25.00", item.Rate.String())
	assert.Equal(t, "25.00", item.Amount.String())
}

func TestNewTaxItem_RejectsWrongAmount(t *testing.T) {
	_, err := fiskal.NewTaxItem(d("100"), d("20"), d("30"))
	require.Error(t, err)
	var verr *fiskal.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "20.00")
	assert.Contains(t, err.Error(), "30.00")
}

// The comparison happens after rounding both sides to two decimals, so an
// amount that matches only in rounded form is accepted.
func TestNewTaxItem_RoundedComparison(t *testing.T) {
	// 13% of 33.33 is 4.3329, rounds to 4.33.
	item, err := fiskal.NewTaxItem(d("33.33"), d("13"), d("4.33"))
	require.NoError(t, err)
	assert.Equal(t, "4.33", item.Amount.String())
}

func TestNewTaxItem_NegativeTriple(t *testing.T) {
	// Storno lines carry a negative base and amount with a positive rate.
	item, err := fiskal.NewTaxItem(d("-100"), d("25"), d("-25"))
	require.NoError(t, err)
	assert.Equal(t, "-25.00", item.Amount.String())
}

func TestNewNamedTaxItem(t *testing.T) {
	item, err := fiskal.NewNamedTaxItem("porez na luksuz", d("100"), d("15"), d("15"))
	require.NoError(t, err)
	assert.Equal(t, "porez na luksuz", item.Name)

	_, err = fiskal.NewNamedTaxItem("porez na luksuz", d("100"), d("15"), d("10"))
	assert.Error(t, err)
}

func TestNewFee(t *testing.T) {
	fee := fiskal.NewFee("povratna naknada", d("0.5"))
	assert.Equal(t, "povratna naknada", fee.Name)
	assert.Equal(t, "0.50", fee.Amount.String())
}
