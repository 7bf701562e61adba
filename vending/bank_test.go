package vending_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/vending-engine/vending"
)

func TestBank_NewBalanceIsZero(t *testing.T) {
	assert.Equal(t, int64(0), vending.NewBank().Balance())
	assert.Equal(t, int64(0), vending.Bank{}.Balance())
}

func TestBank_DepositEachDenomination(t *testing.T) {
	for _, d := range vending.Denominations() {
		assert.Equal(t, d.FaceValue(), vending.NewBank().Deposit(d).Balance(), d.String())
	}
}

func TestBank_DepositUnknown_TrackedButWorthless(t *testing.T) {
	bank := vending.NewBank().Deposit(vending.Unknown).Deposit(vending.Unknown)

	assert.Equal(t, int64(0), bank.Balance())
	assert.Equal(t, 2, bank.Quantity(vending.Unknown))
	assert.False(t, bank.IsEmpty())
}

func TestBank_DepositOutOfRangeDenomination_IsNoOp(t *testing.T) {
	bank := vending.NewBank().Deposit(vending.Denomination(42))

	assert.True(t, bank.IsEmpty())
}

func TestBank_DepositBank_MergesBalances(t *testing.T) {
	one := vending.NewBank().Deposit(vending.Quarter)
	two := vending.NewBank().Deposit(vending.Dime).Deposit(vending.Nickel)

	assert.Equal(t, int64(40), one.DepositBank(two).Balance())
	assert.Equal(t, one.DepositBank(two).Balance(), two.DepositBank(one).Balance())
	assert.Equal(t, one.Balance()+two.Balance(), one.DepositBank(two).Balance())
}

func TestBank_DepositAbsentBank_IsNoOp(t *testing.T) {
	bank := vending.NewBank().Deposit(vending.Quarter)

	assert.True(t, bank.Equal(bank.DepositBank(vending.Bank{})))
	assert.Equal(t, int64(0), vending.NewBank().DepositBank(vending.NewBank()).Balance())
}

func TestBank_Withdraw_FloorsPerDenomination(t *testing.T) {
	// GIVEN: 1 quarter and 3 dimes
	bank := vending.NewBank().Deposit(vending.Quarter).DepositN(vending.Dime, 3)

	// WHEN: withdrawing 2 quarters and 1 dime
	out := vending.NewBank().DepositN(vending.Quarter, 2).Deposit(vending.Dime)
	left := bank.Withdraw(out)

	// THEN: quarters floor at zero, dimes drop by one only
	assert.Equal(t, 0, left.Quantity(vending.Quarter))
	assert.Equal(t, 2, left.Quantity(vending.Dime))
	assert.Equal(t, int64(20), left.Balance())
}

// =============================================================================
// MAKE CHANGE
// =============================================================================

func TestBank_MakeChange_Zero(t *testing.T) {
	assert.Equal(t, int64(0), vending.NewBank().MakeChange(0).Balance())
	assert.Equal(t, int64(0), vending.NewBank().DepositN(vending.Quarter, 4).MakeChange(0).Balance())
	assert.Equal(t, int64(0), vending.NewBank().DepositN(vending.Quarter, 4).MakeChange(-25).Balance())
}

func TestBank_MakeChange_BestFitWhenShort(t *testing.T) {
	bank := vending.NewBank().
		Deposit(vending.Quarter).
		Deposit(vending.Quarter).
		Deposit(vending.Dime)

	assert.Equal(t, int64(50), bank.MakeChange(55).Balance())
}

func TestBank_MakeChange_NothingFits(t *testing.T) {
	bank := vending.NewBank().Deposit(vending.Quarter)

	assert.Equal(t, int64(0), bank.MakeChange(10).Balance())
}

func TestBank_MakeChange_FallsBackToNickels(t *testing.T) {
	nickels := vending.NewBank().Deposit(vending.Quarter).DepositN(vending.Nickel, 5)

	change := nickels.MakeChange(50)

	assert.Equal(t, int64(50), change.Balance())
	assert.Equal(t, 1, change.Quantity(vending.Quarter))
	assert.Equal(t, 5, change.Quantity(vending.Nickel))
	assert.Equal(t, 5, nickels.Quantity(vending.Nickel), "source bank untouched")
}

func TestBank_MakeChange_LargestFirst(t *testing.T) {
	bank := vending.NewBank().
		DepositN(vending.Quarter, 10).
		DepositN(vending.Dime, 10).
		DepositN(vending.Nickel, 10)

	change := bank.MakeChange(90)

	assert.Equal(t, 3, change.Quantity(vending.Quarter))
	assert.Equal(t, 1, change.Quantity(vending.Dime))
	assert.Equal(t, 1, change.Quantity(vending.Nickel))
}

func TestBank_MakeChange_ExactWithAmpleStock(t *testing.T) {
	bank := vending.NewBank().
		DepositN(vending.Quarter, 10).
		DepositN(vending.Dime, 10).
		DepositN(vending.Nickel, 10)

	for amount := int64(0); amount <= 250; amount += 5 {
		assert.Equal(t, amount, bank.MakeChange(amount).Balance(), "amount %d", amount)
	}
}

func TestBank_MakeChange_IgnoresUnknownCoins(t *testing.T) {
	bank := vending.NewBank().DepositN(vending.Unknown, 10).Deposit(vending.Dime)

	change := bank.MakeChange(15)

	assert.Equal(t, int64(10), change.Balance())
	assert.Equal(t, 0, change.Quantity(vending.Unknown))
}
