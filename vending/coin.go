// Package vending implements the coin-operated vending machine domain.
// It uses the generic ledger for coin banks and product stock, and exposes
// the Machine state machine driven by the session layer.
package vending

import (
	"fmt"
	"strings"

	"github.com/warp/vending-engine/generic"
)

// =============================================================================
// PHYSICAL COIN - What the coin sensor reports
// =============================================================================

type Size int

const (
	SizeUnset Size = iota
	SizeSmall
	SizeMedium
	SizeLarge
)

type Weight int

const (
	WeightUnset Weight = iota
	WeightLight
	WeightHeavy
)

// Coin is a physical coin as measured by the sensor. Either attribute may be
// unset when the sensor could not read it.
type Coin struct {
	Size   Size
	Weight Weight
}

// NoCoin is the absent coin. It classifies as Unknown.
var NoCoin = Coin{}

func (s Size) String() string {
	switch s {
	case SizeSmall:
		return "SMALL"
	case SizeMedium:
		return "MEDIUM"
	case SizeLarge:
		return "LARGE"
	default:
		return ""
	}
}

func (w Weight) String() string {
	switch w {
	case WeightLight:
		return "LIGHT"
	case WeightHeavy:
		return "HEAVY"
	default:
		return ""
	}
}

func (c Coin) String() string {
	size, weight := c.Size.String(), c.Weight.String()
	if size == "" {
		size = "?"
	}
	if weight == "" {
		weight = "?"
	}
	return size + "/" + weight
}

// ParseSize accepts SMALL, MEDIUM, LARGE in any case. "" is SizeUnset.
func ParseSize(s string) (Size, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return SizeUnset, nil
	case "SMALL":
		return SizeSmall, nil
	case "MEDIUM":
		return SizeMedium, nil
	case "LARGE":
		return SizeLarge, nil
	}
	return SizeUnset, fmt.Errorf("%w: unknown coin size %q", generic.ErrInvalidInput, s)
}

// ParseWeight accepts LIGHT, HEAVY in any case. "" is WeightUnset.
func ParseWeight(s string) (Weight, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return WeightUnset, nil
	case "LIGHT":
		return WeightLight, nil
	case "HEAVY":
		return WeightHeavy, nil
	}
	return WeightUnset, fmt.Errorf("%w: unknown coin weight %q", generic.ErrInvalidInput, s)
}

// =============================================================================
// CLASSIFIER
// =============================================================================

// Classify maps a physical coin to its denomination.
// Anything that is not exactly one of the canonical coins is Unknown,
// including the absent coin and partially read coins.
func Classify(coin Coin) Denomination {
	for _, d := range knownDenominations {
		if canonical, ok := d.Coin(); ok && canonical == coin {
			return d
		}
	}
	return Unknown
}
