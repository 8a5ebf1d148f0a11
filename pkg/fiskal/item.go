package fiskal

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// TaxItem is a validated (base, rate, amount) triple for a single tax rate.
// The amount must equal base * rate / 100 rounded to two decimal places;
// construction fails otherwise so an arithmetic mistake is caught before the
// invoice leaves the process.
type TaxItem struct {
	Base   Amount
	Rate   Amount
	Amount Amount
}

// NewTaxItem validates the triple and returns the normalized item.
func NewTaxItem(base, rate, amount decimal.Decimal) (TaxItem, error) {
	item := TaxItem{
		Base:   NewAmount(base),
		Rate:   NewAmount(rate),
		Amount: NewAmount(amount),
	}
	calculated := NewAmount(item.Base.Decimal().Mul(item.Rate.Decimal()).Div(hundred))
	if !calculated.Equal(item.Amount) {
		return TaxItem{}, validationErrorf(
			"calculated tax amount %s differs from provided %s", calculated, item.Amount)
	}
	return item, nil
}

func (t TaxItem) String() string { return t.Rate.String() + "%" }

// NamedTaxItem is a TaxItem carrying a label, used for named surcharges
// ("other taxes"). Ordering within a list is caller-determined and preserved.
type NamedTaxItem struct {
	TaxItem
	Name string
}

// NewNamedTaxItem validates the triple and attaches the name.
func NewNamedTaxItem(name string, base, rate, amount decimal.Decimal) (NamedTaxItem, error) {
	item, err := NewTaxItem(base, rate, amount)
	if err != nil {
		return NamedTaxItem{}, err
	}
	return NamedTaxItem{TaxItem: item, Name: name}, nil
}

func (t NamedTaxItem) String() string { return t.Name + " (" + t.Rate.String() + "%)" }

// Fee is a named surcharge amount with no arithmetic invariant.
type Fee struct {
	Name   string
	Amount Amount
}

// NewFee normalizes the amount and returns the fee.
func NewFee(name string, amount decimal.Decimal) Fee {
	return Fee{Name: name, Amount: NewAmount(amount)}
}

func (f Fee) String() string { return f.Name }
