package vending

import (
	"sort"
	"strings"
)

// =============================================================================
// DENOMINATION CATALOG
// =============================================================================

// Denomination is a recognized coin value, or Unknown for anything the
// classifier rejects. Unknown is the zero value.
type Denomination int

const (
	Unknown Denomination = iota
	Nickel
	Dime
	Quarter
)

var (
	// allDenominations is the Bank key set. Unknown is tracked so rejected
	// coins can be handed back, but it never carries value.
	allDenominations   = []Denomination{Nickel, Dime, Quarter, Unknown}
	knownDenominations = []Denomination{Nickel, Dime, Quarter}

	// changeOrder is knownDenominations by descending face value.
	changeOrder = func() []Denomination {
		order := append([]Denomination(nil), knownDenominations...)
		sort.SliceStable(order, func(i, j int) bool {
			return order[i].FaceValue() > order[j].FaceValue()
		})
		return order
	}()
)

// Denominations returns every denomination, Unknown last.
func Denominations() []Denomination {
	return append([]Denomination(nil), allDenominations...)
}

// FaceValue returns the denomination's worth in cents. Unknown is worth 0.
func (d Denomination) FaceValue() int64 {
	switch d {
	case Nickel:
		return 5
	case Dime:
		return 10
	case Quarter:
		return 25
	default:
		return 0
	}
}

// Coin returns the canonical physical coin for d.
// Unknown has no canonical coin.
func (d Denomination) Coin() (Coin, bool) {
	switch d {
	case Nickel:
		return Coin{Size: SizeMedium, Weight: WeightHeavy}, true
	case Dime:
		return Coin{Size: SizeSmall, Weight: WeightLight}, true
	case Quarter:
		return Coin{Size: SizeLarge, Weight: WeightHeavy}, true
	default:
		return NoCoin, false
	}
}

func (d Denomination) String() string {
	switch d {
	case Nickel:
		return "NICKEL"
	case Dime:
		return "DIME"
	case Quarter:
		return "QUARTER"
	default:
		return "UNKNOWN"
	}
}

// ParseDenomination is the inverse of String, case-insensitive.
func ParseDenomination(s string) (Denomination, bool) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, d := range allDenominations {
		if d.String() == name {
			return d, true
		}
	}
	return Unknown, false
}
