package vending

import "github.com/shopspring/decimal"

// Display messages.
const (
	DisplayInsertCoin  = "INSERT COIN"
	DisplayExactChange = "EXACT CHANGE ONLY"
	DisplaySoldOut     = "SOLD OUT"
	DisplayThankYou    = "THANK YOU"
	displayPricePrefix = "PRICE "
)

// FormatCents renders cents as "$D.CC", e.g. 5 -> "$0.05", 100 -> "$1.00".
func FormatCents(cents int64) string {
	return "$" + decimal.New(cents, -2).StringFixed(2)
}

// PriceMessage renders the display shown when funds are short.
func PriceMessage(cents int64) string {
	return displayPricePrefix + FormatCents(cents)
}
