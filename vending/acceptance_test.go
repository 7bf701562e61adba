package vending_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/warp/vending-engine/vending"
)

type machineTestContext struct {
	machine vending.Machine
	taken   vending.Bank
}

func (c *machineTestContext) reset() {
	c.machine = vending.NewMachine()
	c.taken = vending.NewBank()
}

var coinsByName = map[string]vending.Coin{
	"nickel":  nickel,
	"dime":    dime,
	"quarter": quarter,
	"lead":    lead,
	"penny":   penny,
}

func parseDenomination(name string) (vending.Denomination, error) {
	d, ok := vending.ParseDenomination(name)
	if !ok {
		return vending.Unknown, fmt.Errorf("unknown denomination %q", name)
	}
	return d, nil
}

func parseProduct(name string) (vending.Product, error) {
	p, ok := vending.ParseProduct(name)
	if !ok {
		return vending.NoProduct, fmt.Errorf("unknown product %q", name)
	}
	return p, nil
}

// ----- Given -----

func (c *machineTestContext) anEmptyMachine() error {
	c.machine = vending.NewMachine()
	return nil
}

func (c *machineTestContext) aStockedMachine(n int) error {
	m := vending.NewMachine()
	for _, d := range []vending.Denomination{vending.Nickel, vending.Dime, vending.Quarter} {
		m = m.LoadCoins(d, n)
	}
	for _, p := range vending.Products() {
		m = m.Restock(p, n)
	}
	c.machine = m.CheckDisplay()
	return nil
}

func (c *machineTestContext) theMachineBankHolds(n int, name string) error {
	d, err := parseDenomination(name)
	if err != nil {
		return err
	}
	c.machine = c.machine.LoadCoins(d, n)
	return nil
}

func (c *machineTestContext) inStock(n int, name string) error {
	p, err := parseProduct(name)
	if err != nil {
		return err
	}
	c.machine = c.machine.Restock(p, n)
	return nil
}

// ----- When -----

func (c *machineTestContext) iInsertA(name string) error {
	coin, ok := coinsByName[name]
	if !ok {
		return fmt.Errorf("no test coin named %q", name)
	}
	c.machine = c.machine.InsertCoin(coin)
	return nil
}

func (c *machineTestContext) iInsertN(n int, name string) error {
	for i := 0; i < n; i++ {
		if err := c.iInsertA(name); err != nil {
			return err
		}
	}
	return nil
}

func (c *machineTestContext) iInsertACoinOfSizeAndWeight(size, weight string) error {
	s, err := vending.ParseSize(size)
	if err != nil {
		return err
	}
	w, err := vending.ParseWeight(weight)
	if err != nil {
		return err
	}
	c.machine = c.machine.InsertCoin(vending.Coin{Size: s, Weight: w})
	return nil
}

func (c *machineTestContext) iSelect(name string) error {
	p, err := parseProduct(name)
	if err != nil {
		return err
	}
	c.machine = c.machine.Vend(p)
	return nil
}

func (c *machineTestContext) iCheckTheDisplay() error {
	c.machine = c.machine.CheckDisplay()
	return nil
}

func (c *machineTestContext) iPressReturnCoins() error {
	c.machine = c.machine.ReturnCoins()
	return nil
}

func (c *machineTestContext) iTakeTheCoinReturn() error {
	c.machine, c.taken = c.machine.TakeCoinReturn()
	return nil
}

// ----- Then -----

func (c *machineTestContext) theDisplayReads(want string) error {
	if got := c.machine.Display(); got != want {
		return fmt.Errorf("expected display %q, got %q", want, got)
	}
	return nil
}

func (c *machineTestContext) theCoinReturnHoldsCents(cents int) error {
	if got := c.machine.CoinReturn().Balance(); got != int64(cents) {
		return fmt.Errorf("expected coin return of %d cents, got %d", cents, got)
	}
	return nil
}

func (c *machineTestContext) theCoinReturnHolds(n int, name string) error {
	d, err := parseDenomination(name)
	if err != nil {
		return err
	}
	if got := c.machine.CoinReturn().Quantity(d); got != n {
		return fmt.Errorf("expected %d %s in coin return, got %d", n, d, got)
	}
	return nil
}

func (c *machineTestContext) remainInStock(n int, name string) error {
	p, err := parseProduct(name)
	if err != nil {
		return err
	}
	if got := c.machine.Stock(p); got != n {
		return fmt.Errorf("expected %d %s in stock, got %d", n, p, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &machineTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an empty machine$`, tc.anEmptyMachine)
	ctx.Step(`^a machine stocked with (\d+) of every coin and product$`, tc.aStockedMachine)
	ctx.Step(`^the machine bank holds (\d+) (\w+)$`, tc.theMachineBankHolds)
	ctx.Step(`^(\d+) (\w+) in stock$`, tc.inStock)

	// When steps
	ctx.Step(`^I insert an? (\w+)$`, tc.iInsertA)
	ctx.Step(`^I insert (\d+) (\w+?)s$`, tc.iInsertN)
	ctx.Step(`^I insert a coin of size "([^"]*)" and weight "([^"]*)"$`, tc.iInsertACoinOfSizeAndWeight)
	ctx.Step(`^I select (\w+)$`, tc.iSelect)
	ctx.Step(`^I check the display$`, tc.iCheckTheDisplay)
	ctx.Step(`^I press return coins$`, tc.iPressReturnCoins)
	ctx.Step(`^I take the coin return$`, tc.iTakeTheCoinReturn)

	// Then steps
	ctx.Step(`^the display reads "([^"]*)"$`, tc.theDisplayReads)
	ctx.Step(`^the coin return holds (\d+) cents$`, tc.theCoinReturnHoldsCents)
	ctx.Step(`^the coin return holds (\d+) (NICKEL|DIME|QUARTER|UNKNOWN)$`, tc.theCoinReturnHolds)
	ctx.Step(`^(\d+) (\w+) remain in stock$`, tc.remainInStock)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
