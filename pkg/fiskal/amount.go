package fiskal

import "github.com/shopspring/decimal"

// Amount is a monetary or tax value normalized to exactly two decimal
// places. All amount fields on documents and tax items are stored in this
// form; String renders the canonical wire form ("314.16").
type Amount struct {
	value decimal.Decimal
}

// NewAmount normalizes d to two decimal places using banker's rounding.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{value: d.RoundBank(2)}
}

// AmountFromString parses a decimal string into a normalized Amount.
func AmountFromString(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, validationErrorf("invalid amount %q: %v", s, err)
	}
	return NewAmount(d), nil
}

// AmountFromFloat normalizes a float into an Amount. Prefer AmountFromString
// or NewAmount for values that originate as text or decimals.
func AmountFromFloat(f float64) Amount {
	return NewAmount(decimal.NewFromFloat(f))
}

// Decimal returns the underlying two-decimal value.
func (a Amount) Decimal() decimal.Decimal { return a.value }

// String renders the fixed two-decimal wire form, e.g. "100.00".
func (a Amount) String() string { return a.value.StringFixed(2) }

// Equal compares by normalized value.
func (a Amount) Equal(other Amount) bool { return a.value.Equal(other.value) }
