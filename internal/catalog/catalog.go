// Package catalog holds the fixed menu of the stall: the three item
// types, the flavor list, and the per-type selection and pricing rules.
// The menu only changes by editing this package.
package catalog

import (
	"github.com/eggwaffle-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Rule describes how an item type is ordered.
type Rule struct {
	// SelectionCount is the exact number of flavor picks required.
	// Zero means the type is quantity-based instead (plain waffles).
	SelectionCount int32

	// AllowFiller permits the plain flavor as a filler slot among the
	// picks. Filler slots are hidden on the kitchen checklist but stay
	// in the order's items like any other line.
	AllowFiller bool

	// Price is the charge for one unit of this type. Quantity-based
	// types multiply by quantity; selection-based types are flat per set.
	Price decimal.Decimal
}

var rules = map[string]Rule{
	enum.ItemTypePlain:   {SelectionCount: 0, Price: decimal.NewFromInt(60)},
	enum.ItemTypeCombo:   {SelectionCount: 3, AllowFiller: true, Price: decimal.NewFromInt(70)},
	enum.ItemTypeFilling: {SelectionCount: 3, Price: decimal.NewFromInt(65)},
}

// flavors is the closed set pickable for combo and filling types,
// in menu order. Menu order is also the order line items are built in.
var flavors = []string{enum.FlavorCheese, enum.FlavorOreo, enum.FlavorBrownSugar}

// RuleFor returns the ordering rule for an item type.
func RuleFor(itemType string) (Rule, bool) {
	r, ok := rules[itemType]
	return r, ok
}

// Flavors returns the pickable flavor list in menu order.
func Flavors() []string {
	out := make([]string, len(flavors))
	copy(out, flavors)
	return out
}

// IsFlavor reports whether name is a pickable flavor for the item type,
// taking the filler rule into account.
func IsFlavor(itemType, name string) bool {
	r, ok := rules[itemType]
	if !ok {
		return false
	}
	if name == enum.FlavorPlain {
		return r.AllowFiller
	}
	for _, f := range flavors {
		if f == name {
			return true
		}
	}
	return false
}

// HiddenOnChecklist reports whether a line with this flavor is hidden
// from the kitchen checklist for the given item type. Hidden lines are
// still part of the order and still selectable by id.
func HiddenOnChecklist(itemType, name string) bool {
	r, ok := rules[itemType]
	return ok && r.AllowFiller && name == enum.FlavorPlain
}

// PriceFor returns the charge for an order of the given type and total
// quantity. Selection-based types charge flat per set regardless of how
// quantity is spread across flavors.
func PriceFor(itemType string, quantity int32) decimal.Decimal {
	r, ok := rules[itemType]
	if !ok {
		return decimal.Zero
	}
	if r.SelectionCount > 0 {
		return r.Price
	}
	return r.Price.Mul(decimal.NewFromInt32(quantity))
}
