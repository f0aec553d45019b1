package domain

import "github.com/shopspring/decimal"

// Currency carries the code and the number of fractional digits amounts are rounded
// to when they hit the ledger.
type Currency struct {
	Code   string
	Digits int32
}

func (c Currency) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(c.Digits)
}
