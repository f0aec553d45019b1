package ledger

import (
	"github.com/api-sage/deposit-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Summarize derives the cached per-type totals from the ledger in a single pass.
// Reversed transactions and bookkeeping records contribute nothing.
func Summarize(transactions []domain.Transaction) domain.TransactionSummary {
	summary := domain.TransactionSummary{
		TotalDeposits:          decimal.Zero,
		TotalWithdrawals:       decimal.Zero,
		TotalInterestPosted:    decimal.Zero,
		TotalFeeCharge:         decimal.Zero,
		TotalPenaltyCharge:     decimal.Zero,
		TotalFeesWaived:        decimal.Zero,
		TotalWithholdTax:       decimal.Zero,
		TotalOverdraftInterest: decimal.Zero,
		AccountBalance:         decimal.Zero,
	}

	for _, tx := range transactions {
		if tx.Reversed {
			continue
		}

		switch tx.Type {
		case domain.TransactionTypeDeposit:
			summary.TotalDeposits = summary.TotalDeposits.Add(tx.Amount)
		case domain.TransactionTypeWithdrawal:
			summary.TotalWithdrawals = summary.TotalWithdrawals.Add(tx.Amount)
		case domain.TransactionTypeInterestPosting:
			summary.TotalInterestPosted = summary.TotalInterestPosted.Add(tx.Amount)
		case domain.TransactionTypeFee:
			summary.TotalFeeCharge = summary.TotalFeeCharge.Add(tx.Amount)
		case domain.TransactionTypePenalty:
			summary.TotalPenaltyCharge = summary.TotalPenaltyCharge.Add(tx.Amount)
		case domain.TransactionTypeFeeWaiver:
			summary.TotalFeesWaived = summary.TotalFeesWaived.Add(tx.Amount)
		case domain.TransactionTypeWithholdTax:
			summary.TotalWithholdTax = summary.TotalWithholdTax.Add(tx.Amount)
		case domain.TransactionTypeOverdraftInterest:
			summary.TotalOverdraftInterest = summary.TotalOverdraftInterest.Add(tx.Amount)
		}

		if tx.AffectsLedgerBalance() {
			summary.AccountBalance = tx.RunningBalance
		}
	}

	return summary
}
