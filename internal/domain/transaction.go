package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit           TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal        TransactionType = "WITHDRAWAL"
	TransactionTypeInterestPosting   TransactionType = "INTEREST_POSTING"
	TransactionTypeFee               TransactionType = "FEE"
	TransactionTypePenalty           TransactionType = "PENALTY"
	TransactionTypeFeeWaiver         TransactionType = "FEE_WAIVER"
	TransactionTypeOverdraftInterest TransactionType = "OVERDRAFT_INTEREST"
	TransactionTypeWithholdTax       TransactionType = "WITHHOLD_TAX"
	TransactionTypeReversal          TransactionType = "REVERSAL"
	TransactionTypeHold              TransactionType = "HOLD"
	TransactionTypeRelease           TransactionType = "RELEASE"
)

// PaymentDetails carries the instrument metadata supplied by the caller when cash
// moves. The engine stores it verbatim.
type PaymentDetails struct {
	PaymentReference string
	ReceiptNumber    string
	CheckNumber      string
	RoutingCode      string
}

// Transaction is immutable once created except for the Reversed flag and the cached
// RunningBalance. Amounts are stored unsigned; the sign is derived from the type.
type Transaction struct {
	ID             string
	Type           TransactionType
	Amount         decimal.Decimal
	Date           time.Time
	CreatedAt      time.Time
	Seq            int64
	Reversed       bool
	OriginalTxID   string
	TransferID     string
	RunningBalance decimal.Decimal
	PaymentDetails *PaymentDetails
}

// IsCredit reports whether the transaction increases the ledger balance.
func (t Transaction) IsCredit() bool {
	switch t.Type {
	case TransactionTypeDeposit, TransactionTypeInterestPosting, TransactionTypeFeeWaiver:
		return true
	}
	return false
}

// IsDebit reports whether the transaction decreases the ledger balance.
func (t Transaction) IsDebit() bool {
	switch t.Type {
	case TransactionTypeWithdrawal,
		TransactionTypeFee,
		TransactionTypePenalty,
		TransactionTypeOverdraftInterest,
		TransactionTypeWithholdTax:
		return true
	}
	return false
}

// AffectsLedgerBalance reports whether the transaction participates in running
// balance computation. Hold/release pairs move available funds only, and reversal
// markers are bookkeeping records for the transaction they annul.
func (t Transaction) AffectsLedgerBalance() bool {
	switch t.Type {
	case TransactionTypeReversal, TransactionTypeHold, TransactionTypeRelease:
		return false
	}
	return true
}

// SignedAmount returns the amount with the sign implied by the transaction type.
// Non-ledger transactions contribute zero.
func (t Transaction) SignedAmount() decimal.Decimal {
	switch {
	case t.IsCredit():
		return t.Amount
	case t.IsDebit():
		return t.Amount.Neg()
	}
	return decimal.Zero
}

// OrderedBefore defines the total order over a ledger: effective date first, then
// creation timestamp, then insertion sequence. Amounts never participate.
func (t Transaction) OrderedBefore(other Transaction) bool {
	if !t.Date.Equal(other.Date) {
		return t.Date.Before(other.Date)
	}
	if !t.CreatedAt.Equal(other.CreatedAt) {
		return t.CreatedAt.Before(other.CreatedAt)
	}
	return t.Seq < other.Seq
}
