package vending

import (
	"fmt"
	"time"

	"github.com/warp/vending-engine/generic"
)

// Ledger names used in snapshots.
const (
	LedgerCustomerBank = "customer_bank"
	LedgerMachineBank  = "machine_bank"
	LedgerCoinReturn   = "coin_return"
	LedgerInventory    = "inventory"
)

// Snapshot flattens m for storage. Zero counts are kept so a snapshot always
// lists the whole catalog.
func (m Machine) Snapshot(id generic.EntityID, version int64) generic.Snapshot {
	return generic.Snapshot{
		EntityID: id,
		Version:  version,
		Ledgers: map[string]generic.Counts{
			LedgerCustomerBank: bankCounts(m.customer),
			LedgerMachineBank:  bankCounts(m.machine),
			LedgerCoinReturn:   bankCounts(m.coinReturn),
			LedgerInventory:    inventoryCounts(m.stock()),
		},
		Display: m.display,
		TakenAt: time.Now().UTC(),
	}
}

// FromSnapshot rebuilds a machine. Missing ledgers are empty; names the
// catalogs don't know fail with generic.ErrInvalidSnapshot.
func FromSnapshot(s generic.Snapshot) (Machine, error) {
	customer, err := bankFromCounts(s.Ledgers[LedgerCustomerBank])
	if err != nil {
		return Machine{}, fmt.Errorf("%s: %w", LedgerCustomerBank, err)
	}
	machine, err := bankFromCounts(s.Ledgers[LedgerMachineBank])
	if err != nil {
		return Machine{}, fmt.Errorf("%s: %w", LedgerMachineBank, err)
	}
	coinReturn, err := bankFromCounts(s.Ledgers[LedgerCoinReturn])
	if err != nil {
		return Machine{}, fmt.Errorf("%s: %w", LedgerCoinReturn, err)
	}
	inventory, err := inventoryFromCounts(s.Ledgers[LedgerInventory])
	if err != nil {
		return Machine{}, fmt.Errorf("%s: %w", LedgerInventory, err)
	}
	return Restore(State{
		CustomerBank: customer,
		MachineBank:  machine,
		CoinReturn:   coinReturn,
		Inventory:    inventory,
		Display:      s.Display,
	}), nil
}

func bankCounts(b Bank) generic.Counts {
	out := make(generic.Counts, len(allDenominations))
	for d, n := range b.Counts() {
		out[d.String()] = n
	}
	return out
}

func inventoryCounts(l generic.Ledger[Product]) generic.Counts {
	out := make(generic.Counts, len(allProducts))
	for p, n := range l.Counts() {
		out[p.String()] = n
	}
	return out
}

func bankFromCounts(c generic.Counts) (Bank, error) {
	bank := NewBank()
	for name, n := range c {
		d, ok := ParseDenomination(name)
		if !ok {
			return Bank{}, fmt.Errorf("%w: unknown denomination %q", generic.ErrInvalidSnapshot, name)
		}
		if n < 0 {
			return Bank{}, fmt.Errorf("%w: negative count %d for %s", generic.ErrInvalidSnapshot, n, name)
		}
		bank = bank.DepositN(d, n)
	}
	return bank, nil
}

func inventoryFromCounts(c generic.Counts) (generic.Ledger[Product], error) {
	inventory := NewInventory()
	for name, n := range c {
		p, ok := ParseProduct(name)
		if !ok {
			return inventory, fmt.Errorf("%w: unknown product %q", generic.ErrInvalidSnapshot, name)
		}
		if n < 0 {
			return inventory, fmt.Errorf("%w: negative count %d for %s", generic.ErrInvalidSnapshot, n, name)
		}
		inventory = inventory.AddN(p, n)
	}
	return inventory, nil
}
