package services

import (
	"strings"
	"time"

	"github.com/api-sage/deposit-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateAccountRequest struct {
	CustomerID     string             `json:"customerId"`
	Currency       string             `json:"currency"`
	CurrencyDigits int32              `json:"currencyDigits"`
	Kind           domain.AccountKind `json:"kind"`

	MinRequiredBalance decimal.Decimal `json:"minRequiredBalance"`
	OverdraftEnabled   bool            `json:"overdraftEnabled"`
	OverdraftLimit     decimal.Decimal `json:"overdraftLimit"`
	OverdraftRate      decimal.Decimal `json:"overdraftRate"`
	WithholdTaxPercent decimal.Decimal `json:"withholdTaxPercent"`

	PostingFrequency     domain.PostingFrequency `json:"postingFrequency"`
	FiscalYearStartMonth time.Month              `json:"fiscalYearStartMonth"`

	ImmediateInterestWithdrawal bool       `json:"immediateInterestWithdrawal"`
	LockedUntil                 *time.Time `json:"lockedUntil,omitempty"`

	Chart            domain.RateChart                     `json:"chart"`
	ClientAttributes map[domain.IncentiveAttribute]string `json:"clientAttributes,omitempty"`
	TermDetail       *domain.TermDetail                   `json:"termDetail,omitempty"`
	RecurringDetail  *domain.RecurringDetail              `json:"recurringDetail,omitempty"`
}

func (r CreateAccountRequest) Validate() error {
	if strings.TrimSpace(r.CustomerID) == "" {
		return domain.NewValidationError("customerId is required")
	}
	if strings.TrimSpace(r.Currency) == "" {
		return domain.NewValidationError("currency is required")
	}
	if r.CurrencyDigits < 0 || r.CurrencyDigits > 4 {
		return domain.NewValidationError("currencyDigits must be between 0 and 4")
	}

	switch r.Kind {
	case domain.AccountKindSavings, domain.AccountKindFixedDeposit, domain.AccountKindRecurringDeposit:
	default:
		return domain.NewValidationError("kind must be SAVINGS, FIXED_DEPOSIT or RECURRING_DEPOSIT")
	}

	switch r.PostingFrequency {
	case domain.PostingFrequencyMonthly, domain.PostingFrequencyQuarterly,
		domain.PostingFrequencyBiannual, domain.PostingFrequencyAnnual:
	default:
		return domain.NewValidationError("postingFrequency must be MONTHLY, QUARTERLY, BIANNUAL or ANNUAL")
	}

	if r.FiscalYearStartMonth < time.January || r.FiscalYearStartMonth > time.December {
		return domain.NewValidationError("fiscalYearStartMonth must be a calendar month")
	}

	if r.MinRequiredBalance.IsNegative() {
		return domain.NewValidationError("minRequiredBalance must not be negative")
	}
	if r.OverdraftEnabled && r.OverdraftLimit.LessThanOrEqual(decimal.Zero) {
		return domain.NewValidationError("overdraftLimit must be positive when overdraft is enabled")
	}
	if r.WithholdTaxPercent.IsNegative() || r.WithholdTaxPercent.GreaterThan(decimal.NewFromInt(100)) {
		return domain.NewValidationError("withholdTaxPercent must be between 0 and 100")
	}

	if err := r.Chart.Validate(); err != nil {
		return err
	}

	if r.Kind != domain.AccountKindSavings {
		if r.TermDetail == nil {
			return domain.NewValidationError("termDetail is required for %s accounts", r.Kind)
		}
		if err := r.TermDetail.Validate(); err != nil {
			return err
		}
	}
	if r.Kind == domain.AccountKindRecurringDeposit && r.RecurringDetail == nil {
		return domain.NewValidationError("recurringDetail is required for RECURRING_DEPOSIT accounts")
	}

	return nil
}

type TransactionRequest struct {
	AccountID      string                 `json:"accountId"`
	Amount         decimal.Decimal        `json:"amount"`
	Date           time.Time              `json:"date"`
	PaymentDetails *domain.PaymentDetails `json:"paymentDetails,omitempty"`
}

func (r TransactionRequest) Validate() error {
	if strings.TrimSpace(r.AccountID) == "" {
		return domain.NewValidationError("accountId is required")
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return domain.NewValidationError("amount must be positive")
	}
	if r.Date.IsZero() {
		return domain.NewValidationError("date is required")
	}
	return nil
}

type HoldFundsRequest struct {
	AccountID string          `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
}

func (r HoldFundsRequest) Validate() error {
	if strings.TrimSpace(r.AccountID) == "" {
		return domain.NewValidationError("accountId is required")
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return domain.NewValidationError("amount must be positive")
	}
	if r.Date.IsZero() {
		return domain.NewValidationError("date is required")
	}
	return nil
}

type TransactionResponse struct {
	ID             string `json:"id"`
	AccountID      string `json:"accountId"`
	Type           string `json:"type"`
	Amount         string `json:"amount"`
	Date           string `json:"date"`
	RunningBalance string `json:"runningBalance"`
	Reversed       bool   `json:"reversed"`
}

type PostingResult struct {
	AccountID      string                `json:"accountId"`
	From           string                `json:"from"`
	UpTo           string                `json:"upTo"`
	TotalPosted    string                `json:"totalPosted"`
	TotalTax       string                `json:"totalTax"`
	TotalOverdraft string                `json:"totalOverdraft"`
	Transactions   []TransactionResponse `json:"transactions"`
}

type MaturityResponse struct {
	AccountID       string `json:"accountId"`
	MaturityDate    string `json:"maturityDate"`
	MaturityAmount  string `json:"maturityAmount"`
	InterestPayable string `json:"interestPayable"`
}

type PreCloseResponse struct {
	AccountID       string `json:"accountId"`
	ClosureDate     string `json:"closureDate"`
	ClosureAmount   string `json:"closureAmount"`
	InterestPayable string `json:"interestPayable"`
	Penalty         string `json:"penalty"`
	ElapsedPeriods  int    `json:"elapsedPeriods"`
}

type AccountSummaryResponse struct {
	AccountID        string `json:"accountId"`
	AccountNumber    string `json:"accountNumber"`
	Currency         string `json:"currency"`
	Kind             string `json:"kind"`
	Status           string `json:"status"`
	LedgerBalance    string `json:"ledgerBalance"`
	AvailableBalance string `json:"availableBalance"`
	HeldAmount       string `json:"heldAmount"`

	TotalDeposits          string `json:"totalDeposits"`
	TotalWithdrawals       string `json:"totalWithdrawals"`
	TotalInterestPosted    string `json:"totalInterestPosted"`
	TotalFeeCharge         string `json:"totalFeeCharge"`
	TotalPenaltyCharge     string `json:"totalPenaltyCharge"`
	TotalFeesWaived        string `json:"totalFeesWaived"`
	TotalWithholdTax       string `json:"totalWithholdTax"`
	TotalOverdraftInterest string `json:"totalOverdraftInterest"`
}

func transactionResponse(accountID string, tx domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:             tx.ID,
		AccountID:      accountID,
		Type:           string(tx.Type),
		Amount:         tx.Amount.String(),
		Date:           tx.Date.Format(time.DateOnly),
		RunningBalance: tx.RunningBalance.String(),
		Reversed:       tx.Reversed,
	}
}
