package vending

import (
	"strings"

	"github.com/warp/vending-engine/generic"
)

// =============================================================================
// PRODUCT CATALOG
// =============================================================================

// Product is a sellable item. NoProduct is the zero value and stands for an
// absent selection; it is never stocked.
type Product int

const (
	NoProduct Product = iota
	Cola
	Chips
	Candy
)

var allProducts = []Product{Cola, Chips, Candy}

// Products returns the catalog in display order.
func Products() []Product {
	return append([]Product(nil), allProducts...)
}

// Price returns the product's price in cents.
func (p Product) Price() int64 {
	switch p {
	case Cola:
		return 100
	case Chips:
		return 50
	case Candy:
		return 65
	default:
		return 0
	}
}

func (p Product) String() string {
	switch p {
	case Cola:
		return "COLA"
	case Chips:
		return "CHIPS"
	case Candy:
		return "CANDY"
	default:
		return "NONE"
	}
}

// ParseProduct looks a product up by name, case-insensitive.
// Unknown names return NoProduct and false.
func ParseProduct(s string) (Product, bool) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, p := range allProducts {
		if p.String() == name {
			return p, true
		}
	}
	return NoProduct, false
}

// NewInventory returns an empty stock ledger over the catalog.
func NewInventory() generic.Ledger[Product] {
	return emptyInventory
}

var emptyInventory = generic.NewLedger(allProducts...)
