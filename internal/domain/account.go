package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountKind string

const (
	AccountKindSavings          AccountKind = "SAVINGS"
	AccountKindFixedDeposit     AccountKind = "FIXED_DEPOSIT"
	AccountKindRecurringDeposit AccountKind = "RECURRING_DEPOSIT"
)

type PostingFrequency string

const (
	PostingFrequencyMonthly   PostingFrequency = "MONTHLY"
	PostingFrequencyQuarterly PostingFrequency = "QUARTERLY"
	PostingFrequencyBiannual  PostingFrequency = "BIANNUAL"
	PostingFrequencyAnnual    PostingFrequency = "ANNUAL"
)

// Months returns the cycle length of the posting frequency.
func (f PostingFrequency) Months() int {
	switch f {
	case PostingFrequencyQuarterly:
		return 3
	case PostingFrequencyBiannual:
		return 6
	case PostingFrequencyAnnual:
		return 12
	default:
		return 1
	}
}

// Account is the single account type for savings, fixed deposits and recurring
// deposits. Kind-specific data lives in TermDetail/RecurringDetail; dispatch is on
// Kind, not on subtypes.
type Account struct {
	ID            string
	AccountNumber string
	CustomerID    string
	Currency      Currency
	Kind          AccountKind
	Status        AccountStatus

	MinRequiredBalance decimal.Decimal
	OverdraftEnabled   bool
	OverdraftLimit     decimal.Decimal
	OverdraftRate      decimal.Decimal

	WithholdTaxPercent          decimal.Decimal
	LockedUntil                 *time.Time
	ImmediateInterestWithdrawal bool

	PostingFrequency     PostingFrequency
	FiscalYearStartMonth time.Month

	Chart            RateChart
	ClientAttributes map[IncentiveAttribute]string

	Transactions []Transaction
	HeldAmount   decimal.Decimal
	Summary      TransactionSummary

	TermDetail      *TermDetail
	RecurringDetail *RecurringDetail

	ActivatedOn *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AvailableBalance is the ledger balance less held funds.
func (a *Account) AvailableBalance() decimal.Decimal {
	return a.LedgerBalance().Sub(a.HeldAmount)
}

// LedgerBalance is the running balance after the last ledger-affecting
// transaction, zero on an empty ledger.
func (a *Account) LedgerBalance() decimal.Decimal {
	for i := len(a.Transactions) - 1; i >= 0; i-- {
		tx := a.Transactions[i]
		if tx.Reversed || !tx.AffectsLedgerBalance() {
			continue
		}
		return tx.RunningBalance
	}
	return decimal.Zero
}

// InterestCalculationStart is the date interest accrual begins: activation date,
// falling back to the first transaction date.
func (a *Account) InterestCalculationStart() (time.Time, bool) {
	if a.ActivatedOn != nil {
		return *a.ActivatedOn, true
	}
	if len(a.Transactions) > 0 {
		return a.Transactions[0].Date, true
	}
	return time.Time{}, false
}

// IsTermDeposit reports whether the account carries a term detail record.
func (a *Account) IsTermDeposit() bool {
	return a.Kind == AccountKindFixedDeposit || a.Kind == AccountKindRecurringDeposit
}

// Transition moves the account to the requested status or fails with
// InvalidStateTransitionError. It never mutates on failure.
func (a *Account) Transition(to AccountStatus) error {
	if !CanTransition(a.Status, to) {
		return &InvalidStateTransitionError{From: a.Status, To: to}
	}
	a.Status = to
	return nil
}
