/*
bank.go - Coin ledger with balance and change making

PURPOSE:
  A Bank is a generic.Ledger over denominations. The machine holds three:
  the customer's inserted coins, its own float, and the coin return slot.
  Balance is always recomputed from the counts, never stored.

UNKNOWN COINS:
  Unknown is part of the key set so rejected coins can sit in the coin
  return, but its face value is 0. Stray coins never change a balance.

CHANGE MAKING:
  MakeChange is greedy: largest face value first, take one coin at a time
  while it still fits and stock remains. It is best effort. When the stock
  cannot reach the target exactly the result is worth LESS than requested,
  and the caller must compare balances to notice.

  Greedy is optimal for the canonical {25, 10, 5} set when stock is ample.
  It is not optimal for arbitrary sets: with {25, 10, 1}, 30 cents greedy
  gives 25+1+1+1+1+1 instead of 10+10+10. Limited stock can also defeat it
  even here: one quarter and three dimes asked for 30 cents yields 25, while
  three dimes would have been exact. Adding a denomination means revisiting
  this algorithm.

EXAMPLE:
  bank := vending.NewBank().Deposit(vending.Quarter).Deposit(vending.Quarter).Deposit(vending.Dime)
  bank.Balance()                  // 60
  bank.MakeChange(55).Balance()   // 50, no nickel available

SEE ALSO:
  - generic/ledger.go: underlying ledger
  - machine.go: how the banks move during a vend
*/
package vending

import "github.com/warp/vending-engine/generic"

// =============================================================================
// BANK
// =============================================================================

// Bank is an immutable coin ledger. The zero Bank is an empty bank.
type Bank struct {
	coins generic.Ledger[Denomination]
}

var emptyCoins = generic.NewLedger(allDenominations...)

// NewBank returns a bank with no coins.
func NewBank() Bank {
	return Bank{coins: emptyCoins}
}

// ledger returns the bank's coins, treating the zero Bank as empty.
func (b Bank) ledger() generic.Ledger[Denomination] {
	if b.coins.Len() == 0 {
		return emptyCoins
	}
	return b.coins
}

// Balance returns the value of the bank in cents.
func (b Bank) Balance() int64 {
	var balance int64
	for d, n := range b.ledger().Counts() {
		balance += d.FaceValue() * int64(n)
	}
	return balance
}

func (b Bank) Deposit(d Denomination) Bank {
	return Bank{coins: b.ledger().Add(d)}
}

func (b Bank) DepositN(d Denomination, n int) Bank {
	return Bank{coins: b.ledger().AddN(d, n)}
}

// DepositBank merges other into b. The zero Bank deposits nothing.
func (b Bank) DepositBank(other Bank) Bank {
	return Bank{coins: b.ledger().Merge(other.coins)}
}

// Withdraw removes other's coins from b, flooring each denomination at zero
// on its own.
func (b Bank) Withdraw(other Bank) Bank {
	return Bank{coins: b.ledger().SubtractAll(other.coins)}
}

func (b Bank) Quantity(d Denomination) int {
	return b.ledger().Quantity(d)
}

// Counts returns every denomination's count, Unknown included.
func (b Bank) Counts() map[Denomination]int {
	return b.ledger().Counts()
}

// IsEmpty reports whether the bank holds no coins at all, unknown ones included.
func (b Bank) IsEmpty() bool {
	return b.ledger().IsEmpty()
}

func (b Bank) Equal(other Bank) bool {
	return b.ledger().Equal(other.ledger())
}

// MakeChange picks coins from b worth at most amount, greedily.
// The result is a new bank; b is untouched. Compare result.Balance() with
// amount to detect short change.
func (b Bank) MakeChange(amount int64) Bank {
	change := NewBank()
	if amount <= 0 {
		return change
	}
	remaining := amount
	for _, d := range changeOrder {
		available := b.Quantity(d)
		value := d.FaceValue()
		for available > 0 && remaining >= value {
			remaining -= value
			available--
			change = change.Deposit(d)
		}
	}
	return change
}
