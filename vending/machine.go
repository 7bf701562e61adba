/*
machine.go - Vending machine state machine

PURPOSE:
  Machine composes three coin banks, the product stock and the display into
  one immutable value. Every transition returns a new Machine; no Machine is
  ever changed in place, so a caller holding an old value keeps seeing the
  old state.

STATE:
  customer:   coins inserted for the current purchase
  machine:    the machine's own coins, used to make change
  coinReturn: coins waiting in the return slot
  inventory:  product stock
  display:    cached message, recomputed by every transition that changes it

TRANSITIONS:
  InsertCoin:   known coin -> customer bank, display shows balance
                unknown coin -> coin return, display unchanged
  ReturnCoins:  customer bank -> coin return, display INSERT COIN
  CheckDisplay: recompute display only
  Restock, LoadCoins: recompute an idle display
  Vend:         SOLD OUT / PRICE $X.XX / THANK YOU (see Vend)

TWO-STAGE SHORT CHANGE:
  Vend never verifies that the change it hands out is exact. The warning
  comes earlier: CheckDisplay shows EXACT CHANGE ONLY when the machine bank
  could not make change for some product price. Keep it that way; a vend
  that under-pays change is observable behavior, not a failure.

SEE ALSO:
  - bank.go: MakeChange
  - session/service.go: drives transitions and persists the results
*/
package vending

import "github.com/warp/vending-engine/generic"

// =============================================================================
// MACHINE
// =============================================================================

type Machine struct {
	customer   Bank
	machine    Bank
	coinReturn Bank
	inventory  generic.Ledger[Product]
	display    string
}

// State is the full set of fields of a Machine, for building one from
// stored or configured values.
type State struct {
	CustomerBank Bank
	MachineBank  Bank
	CoinReturn   Bank
	Inventory    generic.Ledger[Product]
	// Display is recomputed with CheckDisplay rules when empty.
	Display string
}

// NewMachine returns a machine with every ledger empty. Its display is
// EXACT CHANGE ONLY since an empty machine bank cannot make change.
func NewMachine() Machine {
	return Restore(State{})
}

// Restore builds a machine from explicit fields.
func Restore(s State) Machine {
	m := Machine{
		customer:   NewBank().DepositBank(s.CustomerBank),
		machine:    NewBank().DepositBank(s.MachineBank),
		coinReturn: NewBank().DepositBank(s.CoinReturn),
		inventory:  NewInventory().Merge(s.Inventory),
		display:    s.Display,
	}
	if m.display == "" {
		m = m.CheckDisplay()
	}
	return m
}

// State returns the machine's fields.
func (m Machine) State() State {
	return State{
		CustomerBank: m.customer,
		MachineBank:  m.machine,
		CoinReturn:   m.coinReturn,
		Inventory:    m.stock(),
		Display:      m.display,
	}
}

func (m Machine) Display() string { return m.display }

func (m Machine) CustomerBank() Bank { return m.customer }

func (m Machine) MachineBank() Bank { return m.machine }

func (m Machine) CoinReturn() Bank { return m.coinReturn }

// Stock returns the remaining count of p.
func (m Machine) Stock(p Product) int { return m.stock().Quantity(p) }

func (m Machine) Inventory() generic.Ledger[Product] { return m.stock() }

// stock treats the zero Machine's inventory as an empty catalog ledger.
func (m Machine) stock() generic.Ledger[Product] {
	if m.inventory.Len() == 0 {
		return NewInventory()
	}
	return m.inventory
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// InsertCoin classifies coin and routes it. NoCoin behaves like any other
// unrecognized coin.
func (m Machine) InsertCoin(coin Coin) Machine {
	next := m
	d := Classify(coin)
	if d == Unknown {
		next.coinReturn = m.coinReturn.Deposit(Unknown)
		return next
	}
	next.customer = m.customer.Deposit(d)
	next.display = FormatCents(next.customer.Balance())
	return next
}

// ReturnCoins moves the customer's coins to the coin return.
func (m Machine) ReturnCoins() Machine {
	next := m
	next.coinReturn = m.coinReturn.DepositBank(m.customer)
	next.customer = NewBank()
	next.display = DisplayInsertCoin
	return next
}

// CheckDisplay recomputes the display without touching any ledger.
func (m Machine) CheckDisplay() Machine {
	next := m
	if balance := m.customer.Balance(); balance > 0 {
		next.display = FormatCents(balance)
	} else {
		next.display = m.idleDisplay()
	}
	return next
}

// Vend sells product if it is stocked and paid for.
//
//   - absent or out of stock: SOLD OUT, inserted funds stay put
//   - balance below price:    PRICE $X.XX, nothing else changes
//   - otherwise: customer coins join the machine bank, greedy change for
//     balance-price is withdrawn from it and REPLACES the coin return, stock
//     drops by one and the display reads THANK YOU
func (m Machine) Vend(product Product) Machine {
	next := m
	if m.stock().Quantity(product) <= 0 {
		next.display = DisplaySoldOut
		return next
	}
	balance := m.customer.Balance()
	price := product.Price()
	if balance < price {
		next.display = PriceMessage(price)
		return next
	}

	combined := m.machine.DepositBank(m.customer)
	change := combined.MakeChange(balance - price)
	next.machine = combined.Withdraw(change)
	next.coinReturn = change
	next.customer = NewBank()
	next.inventory = m.stock().Subtract(product)
	next.display = DisplayThankYou
	return next
}

// CanMakeChange reports whether the machine bank can return exact change
// equal to every catalog price.
func (m Machine) CanMakeChange() bool {
	for _, p := range allProducts {
		price := p.Price()
		if m.machine.MakeChange(price).Balance() != price {
			return false
		}
	}
	return true
}

func (m Machine) idleDisplay() string {
	if !m.CanMakeChange() {
		return DisplayExactChange
	}
	return DisplayInsertCoin
}

// refreshIdle recomputes an idle display after the operator changed the
// float or the stock. Balances and transient messages are left alone.
func (m Machine) refreshIdle() Machine {
	if m.customer.Balance() > 0 {
		return m
	}
	switch m.display {
	case DisplayInsertCoin, DisplayExactChange, "":
		m.display = m.idleDisplay()
	}
	return m
}

// =============================================================================
// SERVICE OPERATIONS - Performed by the operator, not the customer
// =============================================================================

// TakeCoinReturn empties the coin return and hands its contents to the
// hardware layer. The display is left alone.
func (m Machine) TakeCoinReturn() (Machine, Bank) {
	next := m
	next.coinReturn = NewBank()
	return next, m.coinReturn
}

// Restock adds n of product. Products outside the catalog are ignored.
// An idle display is recomputed.
func (m Machine) Restock(p Product, n int) Machine {
	next := m
	next.inventory = m.stock().AddN(p, n)
	return next.refreshIdle()
}

// LoadCoins adds n coins of d to the machine bank. Unknown coins are not
// accepted into the float. An idle display is recomputed, so a machine
// showing EXACT CHANGE ONLY switches to INSERT COIN once it can make change.
func (m Machine) LoadCoins(d Denomination, n int) Machine {
	if d == Unknown {
		return m
	}
	next := m
	next.machine = m.machine.DepositN(d, n)
	return next.refreshIdle()
}
