package menu

import (
	"github.com/shopspring/decimal"
)

// Breakdown is the result of decomposing a paid amount.
type Breakdown struct {
	// Composition is the final item mix, including any absorbed water.
	Composition Composition

	// ExpectedCost is the cost of Composition under the price table.
	ExpectedCost decimal.Decimal

	// Adjustment is PaidAmount - ExpectedCost.
	Adjustment decimal.Decimal

	// Remainder is what the greedy walk could not place, before absorption.
	// It is always below the packing price for a valid table.
	Remainder decimal.Decimal

	// ExtraWater is the number of water units added by absorption.
	ExtraWater int
}

// Decompose maps a paid amount to item quantities using a greedy,
// largest-denomination-first walk over the price table, then applies the
// overpayment absorption rule.
//
// The result always satisfies ExpectedCost + Adjustment == paid.
// Negative amounts decompose to an empty composition with the whole amount
// as adjustment.
func Decompose(paid decimal.Decimal, table PriceTable) Breakdown {
	if !paid.IsPositive() {
		return Breakdown{
			ExpectedCost: decimal.Zero,
			Adjustment:   paid,
			Remainder:    paid,
		}
	}

	var base Composition
	remaining := paid

	for _, kind := range Kinds() {
		price := table.Price(kind)
		if !price.IsPositive() {
			continue
		}

		count := remaining.Div(price).Floor()
		remaining = remaining.Sub(count.Mul(price))
		base = base.With(kind, int(count.IntPart()))
	}

	b := Absorb(paid, base, table)
	b.Remainder = remaining
	return b
}

// Absorb applies the overpayment absorption rule to a base composition.
//
// When the paid amount exceeds the base cost by more than one water unit,
// the overpayment is converted into whole water units and only the
// remainder (overpay mod water price) is left as adjustment. Otherwise the
// overpayment is reported unchanged.
func Absorb(paid decimal.Decimal, base Composition, table PriceTable) Breakdown {
	overpay := paid.Sub(base.Cost(table))
	waterPrice := table.Water

	final := base
	adjustment := overpay
	extra := 0

	if waterPrice.IsPositive() && overpay.GreaterThan(waterPrice) {
		extra = int(overpay.Div(waterPrice).Floor().IntPart())
		adjustment = overpay.Mod(waterPrice)
		final.Water += extra
	}

	return Breakdown{
		Composition:  final,
		ExpectedCost: final.Cost(table),
		Adjustment:   adjustment,
		Remainder:    overpay,
		ExtraWater:   extra,
	}
}
