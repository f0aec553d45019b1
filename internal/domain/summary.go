package domain

import "github.com/shopspring/decimal"

// TransactionSummary caches the per-type totals derived from the ledger so balance
// and summary queries do not rescan the transaction history. It is recomputed in
// full after every mutation.
type TransactionSummary struct {
	TotalDeposits          decimal.Decimal
	TotalWithdrawals       decimal.Decimal
	TotalInterestPosted    decimal.Decimal
	TotalFeeCharge         decimal.Decimal
	TotalPenaltyCharge     decimal.Decimal
	TotalFeesWaived        decimal.Decimal
	TotalWithholdTax       decimal.Decimal
	TotalOverdraftInterest decimal.Decimal
	AccountBalance         decimal.Decimal
}
