/*
Package factory provides JSON to Go machine conversion.

PURPOSE:
  Converts JSON machine definitions into vending.Machine values. Operators
  describe a machine's starting float and stock in JSON, and the factory
  validates it and builds the immutable Machine the session layer runs.

JSON SCHEMA:
  {
    "id": "lobby-1",
    "machine_bank":  {"QUARTER": 10, "DIME": 10, "NICKEL": 10},
    "customer_bank": {},
    "coin_return":   {"UNKNOWN": 1},
    "inventory":     {"COLA": 5, "CHIPS": 5, "CANDY": 5},
    "float_dollars": "2.50"
  }

  Every ledger is optional and missing ledgers are empty. Names are
  case-insensitive. float_dollars is added to the machine bank as quarters,
  then dimes, then nickels, and must be a non-negative multiple of $0.05
  no larger than $1000. Each count is capped at 10000.

USAGE:
  id, machine, err := factory.ParseMachine(factory.StockedJSON("lobby-1", 10, 10))

SEE ALSO:
  - vending/machine.go: Machine and Restore
  - api/scenarios.go: demo machines built from these presets
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/warp/vending-engine/generic"
	"github.com/warp/vending-engine/vending"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// MachineJSON is the JSON representation of a machine.
type MachineJSON struct {
	ID           string         `json:"id,omitempty" validate:"omitempty,max=64"`
	MachineBank  map[string]int `json:"machine_bank,omitempty" validate:"omitempty,dive,keys,oneof=NICKEL DIME QUARTER,endkeys,gte=0,lte=10000"`
	CustomerBank map[string]int `json:"customer_bank,omitempty" validate:"omitempty,dive,keys,oneof=NICKEL DIME QUARTER,endkeys,gte=0,lte=10000"`
	CoinReturn   map[string]int `json:"coin_return,omitempty" validate:"omitempty,dive,keys,oneof=NICKEL DIME QUARTER UNKNOWN,endkeys,gte=0,lte=10000"`
	Inventory    map[string]int `json:"inventory,omitempty" validate:"omitempty,dive,keys,oneof=COLA CHIPS CANDY,endkeys,gte=0,lte=10000"`
	FloatDollars string         `json:"float_dollars,omitempty" validate:"omitempty,numeric"`
}

var validate = validator.New()

// maxFloat caps float_dollars.
var maxFloat = decimal.NewFromInt(1000)

// =============================================================================
// PARSING
// =============================================================================

// ParseMachine parses a JSON definition and builds the machine.
func ParseMachine(jsonStr string) (generic.EntityID, vending.Machine, error) {
	var mj MachineJSON
	if err := json.Unmarshal([]byte(jsonStr), &mj); err != nil {
		return "", vending.Machine{}, fmt.Errorf("%w: failed to parse machine JSON: %v", generic.ErrInvalidDefinition, err)
	}
	m, err := Build(mj)
	if err != nil {
		return "", vending.Machine{}, err
	}
	return generic.EntityID(mj.ID), m, nil
}

// Build validates mj and converts it to a Machine. The display is computed
// from the resulting ledgers.
func Build(mj MachineJSON) (vending.Machine, error) {
	mj = normalize(mj)
	if err := validate.Struct(mj); err != nil {
		return vending.Machine{}, fmt.Errorf("%w: %v", generic.ErrInvalidDefinition, err)
	}

	float, err := floatBank(mj.FloatDollars)
	if err != nil {
		return vending.Machine{}, err
	}

	return vending.Restore(vending.State{
		MachineBank:  bank(mj.MachineBank).DepositBank(float),
		CustomerBank: bank(mj.CustomerBank),
		CoinReturn:   bank(mj.CoinReturn),
		Inventory:    inventory(mj.Inventory),
	}).CheckDisplay(), nil
}

// ToJSON converts a Machine back to its definition. Zero counts are left out.
func ToJSON(id generic.EntityID, m vending.Machine) MachineJSON {
	return MachineJSON{
		ID:           string(id),
		MachineBank:  bankJSON(m.MachineBank()),
		CustomerBank: bankJSON(m.CustomerBank()),
		CoinReturn:   bankJSON(m.CoinReturn()),
		Inventory:    inventoryJSON(m),
	}
}

// =============================================================================
// PRESETS
// =============================================================================

// StockedJSON returns a machine holding coins of every denomination and
// products of every kind.
func StockedJSON(id string, coins, products int) string {
	return marshal(MachineJSON{
		ID:          id,
		MachineBank: map[string]int{"QUARTER": coins, "DIME": coins, "NICKEL": coins},
		Inventory:   map[string]int{"COLA": products, "CHIPS": products, "CANDY": products},
	})
}

// ExactChangeJSON returns a stocked machine with no nickels, which cannot
// make change for candy.
func ExactChangeJSON(id string) string {
	return marshal(MachineJSON{
		ID:          id,
		MachineBank: map[string]int{"QUARTER": 10, "DIME": 10},
		Inventory:   map[string]int{"COLA": 5, "CHIPS": 5, "CANDY": 5},
	})
}

// EmptyJSON returns a machine with nothing in it.
func EmptyJSON(id string) string {
	return marshal(MachineJSON{ID: id})
}

func marshal(mj MachineJSON) string {
	b, _ := json.MarshalIndent(mj, "", "  ")
	return string(b)
}

// =============================================================================
// HELPERS
// =============================================================================

func normalize(mj MachineJSON) MachineJSON {
	mj.MachineBank = upperKeys(mj.MachineBank)
	mj.CustomerBank = upperKeys(mj.CustomerBank)
	mj.CoinReturn = upperKeys(mj.CoinReturn)
	mj.Inventory = upperKeys(mj.Inventory)
	mj.FloatDollars = strings.TrimSpace(mj.FloatDollars)
	return mj
}

func upperKeys(in map[string]int) map[string]int {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[strings.ToUpper(strings.TrimSpace(k))] += v
	}
	return out
}

// bank expects validated names.
func bank(counts map[string]int) vending.Bank {
	b := vending.NewBank()
	for name, n := range counts {
		d, _ := vending.ParseDenomination(name)
		b = b.DepositN(d, n)
	}
	return b
}

func inventory(counts map[string]int) generic.Ledger[vending.Product] {
	inv := vending.NewInventory()
	for name, n := range counts {
		p, _ := vending.ParseProduct(name)
		inv = inv.AddN(p, n)
	}
	return inv
}

// floatBank converts a dollar amount to coins, largest first.
func floatBank(dollars string) (vending.Bank, error) {
	if dollars == "" {
		return vending.NewBank(), nil
	}
	amount, err := decimal.NewFromString(dollars)
	if err != nil {
		return vending.Bank{}, fmt.Errorf("%w: float_dollars %q: %v", generic.ErrInvalidDefinition, dollars, err)
	}
	if amount.GreaterThan(maxFloat) {
		return vending.Bank{}, fmt.Errorf("%w: float_dollars %q exceeds %s",
			generic.ErrInvalidDefinition, dollars, maxFloat.StringFixed(2))
	}
	cents := amount.Shift(2)
	if amount.IsNegative() || !cents.IsInteger() || cents.IntPart()%5 != 0 {
		return vending.Bank{}, fmt.Errorf("%w: float_dollars %q must be a non-negative multiple of 0.05",
			generic.ErrInvalidDefinition, dollars)
	}

	remaining := cents.IntPart()
	b := vending.NewBank()
	for _, d := range []vending.Denomination{vending.Quarter, vending.Dime, vending.Nickel} {
		n := remaining / d.FaceValue()
		b = b.DepositN(d, int(n))
		remaining -= n * d.FaceValue()
	}
	return b, nil
}

func bankJSON(b vending.Bank) map[string]int {
	out := map[string]int{}
	for d, n := range b.Counts() {
		if n > 0 {
			out[d.String()] = n
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func inventoryJSON(m vending.Machine) map[string]int {
	out := map[string]int{}
	for _, p := range vending.Products() {
		if n := m.Stock(p); n > 0 {
			out[p.String()] = n
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
