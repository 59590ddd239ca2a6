// Package tax implements GST arithmetic for bills: line amounts, taxable
// totals, the CGST/SGST vs IGST split and the post-tax grand total. All
// functions are pure; rounding is half-up to two decimal places at every
// stage.
package tax

import (
	"errors"

	"github.com/shopspring/decimal"
)

// DefaultRate is the flat GST rate applied when no HSN-specific rate is
// supplied.
const DefaultRate = 0.18

var (
	// ErrInvalidAmount indicates a non-positive or non-finite quantity,
	// rate or amount.
	ErrInvalidAmount = errors.New("tax: invalid amount")
	// ErrEmptyItems indicates an empty item set.
	ErrEmptyItems = errors.New("tax: empty item set")
)

// Item is a single bill line.
type Item struct {
	Description string  `json:"description"`
	HSNCode     string  `json:"hsnCode,omitempty"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
}

// Split carries the applicable tax amounts. Exactly one of {SGST+CGST} or
// {IGST} is set.
type Split struct {
	SGST *float64
	CGST *float64
	IGST *float64
}

// LineAmount returns quantity x rate rounded to two decimals.
func LineAmount(quantity, rate float64) (float64, error) {
	if !isFinite(quantity) || !isFinite(rate) || quantity <= 0 || rate <= 0 {
		return 0, ErrInvalidAmount
	}
	amt := decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(rate)).Round(2)
	return amt.InexactFloat64(), nil
}

// Totals sums the line amounts of all items.
func Totals(items []Item) (float64, error) {
	if len(items) == 0 {
		return 0, ErrEmptyItems
	}
	total := decimal.Zero
	for _, it := range items {
		line, err := LineAmount(it.Quantity, it.Rate)
		if err != nil {
			return 0, err
		}
		total = total.Add(decimal.NewFromFloat(line))
	}
	return total.Round(2).InexactFloat64(), nil
}

// ComputeSplit derives the tax split for a taxable total. Inter-state
// transactions carry the full rate as IGST; intra-state transactions carry
// half the rate each as SGST and CGST, rounded independently. Callers must
// not assume SGST equals CGST exactly, only that their sum matches the
// whole-rate tax within 0.01.
func ComputeSplit(totalBeforeTax float64, interState bool, rate float64) (Split, error) {
	if !isFinite(totalBeforeTax) || totalBeforeTax < 0 {
		return Split{}, ErrInvalidAmount
	}
	if !isFinite(rate) || rate < 0 || rate > 1 {
		return Split{}, ErrInvalidAmount
	}
	base := decimal.NewFromFloat(totalBeforeTax)
	if interState {
		igst := base.Mul(decimal.NewFromFloat(rate)).Round(2).InexactFloat64()
		return Split{IGST: &igst}, nil
	}
	half := decimal.NewFromFloat(rate).Div(decimal.NewFromInt(2))
	sgst := base.Mul(half).Round(2).InexactFloat64()
	cgst := base.Mul(half).Round(2).InexactFloat64()
	return Split{SGST: &sgst, CGST: &cgst}, nil
}

// GrandTotal returns totalBeforeTax plus the applicable tax amounts, rounded
// to two decimals.
func GrandTotal(totalBeforeTax float64, split Split) float64 {
	total := decimal.NewFromFloat(totalBeforeTax)
	if split.IGST != nil {
		total = total.Add(decimal.NewFromFloat(*split.IGST))
	} else {
		if split.SGST != nil {
			total = total.Add(decimal.NewFromFloat(*split.SGST))
		}
		if split.CGST != nil {
			total = total.Add(decimal.NewFromFloat(*split.CGST))
		}
	}
	return total.Round(2).InexactFloat64()
}

// TaxAmount returns the combined tax carried by a split.
func (s Split) TaxAmount() float64 {
	if s.IGST != nil {
		return *s.IGST
	}
	total := decimal.Zero
	if s.SGST != nil {
		total = total.Add(decimal.NewFromFloat(*s.SGST))
	}
	if s.CGST != nil {
		total = total.Add(decimal.NewFromFloat(*s.CGST))
	}
	return total.InexactFloat64()
}

func isFinite(f float64) bool {
	// NaN fails both comparisons; +/-Inf fails one.
	return f == f && f > -1e18 && f < 1e18
}
