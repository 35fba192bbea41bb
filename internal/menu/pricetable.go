// =============================================================================
// Statement Order Replay - Menu Price Table
// =============================================================================
//
// This package holds the menu model used to reconstruct orders from paid
// amounts. A PriceTable maps each item kind to a unit price; a Composition is
// a count of each item kind. Both are plain values and safe to share.
//
// ITEM ORDER:
//   Item kinds have a fixed order (full plate, half plate, water, packing).
//   The decomposer walks them in this order, so the table is expected to be
//   strictly descending in price. See PriceTable.Validate.
//
// =============================================================================

package menu

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ITEM KINDS
// =============================================================================

// ItemKind identifies a menu item.
type ItemKind string

const (
	FullPlate ItemKind = "full_plate"
	HalfPlate ItemKind = "half_plate"
	Water     ItemKind = "water"
	Packing   ItemKind = "packing"
)

// Kinds returns all item kinds in decomposition order (largest first).
func Kinds() []ItemKind {
	return []ItemKind{FullPlate, HalfPlate, Water, Packing}
}

// Label returns a human-readable name for the item kind.
func (k ItemKind) Label() string {
	switch k {
	case FullPlate:
		return "Full Plate"
	case HalfPlate:
		return "Half Plate"
	case Water:
		return "Water"
	case Packing:
		return "Packing"
	default:
		return string(k)
	}
}

// ParseItemKind accepts the canonical name as well as the camelCase and
// spaced spellings used by spreadsheets and config files.
func ParseItemKind(s string) (ItemKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(normalized)

	switch normalized {
	case "fullplate", "full":
		return FullPlate, nil
	case "halfplate", "half":
		return HalfPlate, nil
	case "water", "waterbottle":
		return Water, nil
	case "packing", "packingcharges":
		return Packing, nil
	default:
		return "", fmt.Errorf("unknown item kind %q", s)
	}
}

// =============================================================================
// PRICE TABLE
// =============================================================================

// PriceTable maps each item kind to its unit price.
type PriceTable struct {
	FullPlate decimal.Decimal
	HalfPlate decimal.Decimal
	Water     decimal.Decimal
	Packing   decimal.Decimal
}

// DefaultPriceTable returns the stall's standard menu prices.
func DefaultPriceTable() PriceTable {
	return PriceTable{
		FullPlate: decimal.NewFromInt(89),
		HalfPlate: decimal.NewFromInt(49),
		Water:     decimal.NewFromInt(10),
		Packing:   decimal.NewFromInt(5),
	}
}

// NewPriceTable builds a table from float prices, as read from config files.
func NewPriceTable(fullPlate, halfPlate, water, packing float64) PriceTable {
	return PriceTable{
		FullPlate: decimal.NewFromFloat(fullPlate),
		HalfPlate: decimal.NewFromFloat(halfPlate),
		Water:     decimal.NewFromFloat(water),
		Packing:   decimal.NewFromFloat(packing),
	}
}

// Price returns the unit price of the given item kind.
// Unknown kinds are priced at zero.
func (t PriceTable) Price(kind ItemKind) decimal.Decimal {
	switch kind {
	case FullPlate:
		return t.FullPlate
	case HalfPlate:
		return t.HalfPlate
	case Water:
		return t.Water
	case Packing:
		return t.Packing
	default:
		return decimal.Zero
	}
}

// Cheapest returns the smallest price in the table.
func (t PriceTable) Cheapest() decimal.Decimal {
	min := t.FullPlate
	for _, kind := range Kinds()[1:] {
		if p := t.Price(kind); p.LessThan(min) {
			min = p
		}
	}
	return min
}

// Validate checks that every price is positive and that prices descend in
// decomposition order (fullPlate > halfPlate > water >= packing).
//
// A table that fails the ordering check still decomposes, but the greedy
// walk will prefer items in an order that no longer matches the menu.
func (t PriceTable) Validate() error {
	for _, kind := range Kinds() {
		if !t.Price(kind).IsPositive() {
			return fmt.Errorf("price of %s must be positive, got %s", kind, t.Price(kind))
		}
	}

	if !t.FullPlate.GreaterThan(t.HalfPlate) {
		return fmt.Errorf("full plate price %s must exceed half plate price %s", t.FullPlate, t.HalfPlate)
	}
	if !t.HalfPlate.GreaterThan(t.Water) {
		return fmt.Errorf("half plate price %s must exceed water price %s", t.HalfPlate, t.Water)
	}
	if t.Water.LessThan(t.Packing) {
		return fmt.Errorf("water price %s must not be below packing price %s", t.Water, t.Packing)
	}

	return nil
}

// =============================================================================
// COMPOSITION
// =============================================================================

// Composition is the inferred quantity of each menu item in an order.
type Composition struct {
	FullPlate int `json:"fullPlate" yaml:"full_plate"`
	HalfPlate int `json:"halfPlate" yaml:"half_plate"`
	Water     int `json:"water" yaml:"water"`
	Packing   int `json:"packing" yaml:"packing"`
}

// Quantity returns the count for the given item kind.
func (c Composition) Quantity(kind ItemKind) int {
	switch kind {
	case FullPlate:
		return c.FullPlate
	case HalfPlate:
		return c.HalfPlate
	case Water:
		return c.Water
	case Packing:
		return c.Packing
	default:
		return 0
	}
}

// With returns a copy of the composition with the given kind's quantity set.
func (c Composition) With(kind ItemKind, quantity int) Composition {
	switch kind {
	case FullPlate:
		c.FullPlate = quantity
	case HalfPlate:
		c.HalfPlate = quantity
	case Water:
		c.Water = quantity
	case Packing:
		c.Packing = quantity
	}
	return c
}

// Cost is the dot product of the composition with the price table.
func (c Composition) Cost(table PriceTable) decimal.Decimal {
	total := decimal.Zero
	for _, kind := range Kinds() {
		total = total.Add(table.Price(kind).Mul(decimal.NewFromInt(int64(c.Quantity(kind)))))
	}
	return total
}

// Items returns the total number of units across all kinds.
func (c Composition) Items() int {
	return c.FullPlate + c.HalfPlate + c.Water + c.Packing
}

// IsEmpty reports whether no item has a non-zero quantity.
func (c Composition) IsEmpty() bool {
	return c.Items() == 0
}
