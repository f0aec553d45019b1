// Package term computes maturity and pre-closure figures for fixed and recurring
// deposit accounts from the finalized ledger state.
package term

import (
	"time"

	"github.com/api-sage/deposit-ledger/internal/domain"
	"github.com/api-sage/deposit-ledger/internal/interest"
	"github.com/shopspring/decimal"
)

// MaturityResult is the projected outcome of holding a term deposit to maturity.
type MaturityResult struct {
	MaturityDate     time.Time
	MaturityAmount   decimal.Decimal
	InterestPayable  decimal.Decimal
	InterestByPeriod []interest.PeriodInterest
}

// PreCloseResult is the outcome of closing a term deposit before maturity.
type PreCloseResult struct {
	ClosureDate     time.Time
	ClosureAmount   decimal.Decimal
	InterestPayable decimal.Decimal
	Penalty         decimal.Decimal
	ElapsedPeriods  int
}

// MaturityDate advances a start date by the deposit term using calendar
// arithmetic.
func MaturityDate(start time.Time, periods int, unit domain.PeriodUnit) time.Time {
	switch unit {
	case domain.PeriodUnitWeeks:
		return start.AddDate(0, 0, periods*7)
	case domain.PeriodUnitMonths:
		return start.AddDate(0, periods, 0)
	case domain.PeriodUnitYears:
		return start.AddDate(periods, 0, 0)
	default:
		return start.AddDate(0, 0, periods)
	}
}

// ElapsedPeriods measures the whole calendar units of the term's frequency unit
// between two dates. Calendar-unit subtraction, not day-count proration: eleven
// months and three weeks is eleven months.
func ElapsedPeriods(start, end time.Time, unit domain.PeriodUnit) int {
	if end.Before(start) {
		return 0
	}

	switch unit {
	case domain.PeriodUnitDays:
		return int(end.Sub(start).Hours() / 24)
	case domain.PeriodUnitWeeks:
		return int(end.Sub(start).Hours()/24) / 7
	case domain.PeriodUnitMonths:
		return wholeMonthsBetween(start, end)
	case domain.PeriodUnitYears:
		return wholeMonthsBetween(start, end) / 12
	}
	return 0
}

func wholeMonthsBetween(start, end time.Time) int {
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// IsValidInMultiplesOfPeriod checks that the chosen term sits on the configured
// grid: (term - minTerm) must be a whole number of "in multiples of" terms, all
// converted to days with the fixed week=7d/month=30d/year=365d approximation.
// The approximation is part of the product contract and is kept verbatim.
func IsValidInMultiplesOfPeriod(detail domain.TermDetail) bool {
	if detail.InMultiplesOf <= 0 {
		return true
	}

	chosenDays := detail.DepositPeriodUnit.ApproximateDays(detail.DepositPeriod)
	minDays := detail.MinTermUnit.ApproximateDays(detail.MinTerm)
	multipleDays := detail.InMultiplesOfUnit.ApproximateDays(detail.InMultiplesOf)
	if multipleDays <= 0 {
		return true
	}

	return (chosenDays-minDays)%multipleDays == 0
}

// ComputeMaturity projects the maturity date and amount for a term account: the
// closing cash principal plus the interest payable over the full term, segmented
// and compounded the same way regular posting is. Recurring accounts include
// their scheduled mandatory installments in both figures.
func ComputeMaturity(account *domain.Account) (MaturityResult, error) {
	detail, start, err := termBasis(account)
	if err != nil {
		return MaturityResult{}, err
	}

	maturityDate := MaturityDate(start, detail.DepositPeriod, detail.DepositPeriodUnit)

	// Interest accrues up to the day before the payout date.
	result, principal := projectInterest(account, detail, start, maturityDate.AddDate(0, 0, -1), decimal.Zero)
	maturityAmount := account.Currency.Round(principal.Add(result.Total))

	return MaturityResult{
		MaturityDate:     maturityDate,
		MaturityAmount:   maturityAmount,
		InterestPayable:  result.Total,
		InterestByPeriod: result.Periods,
	}, nil
}

// PreClose computes the proceeds of closing a term deposit on the given date. The
// actual elapsed deposit period replaces the configured term, and the configured
// penalty applies: a rate reduction recomputes interest at the reduced rate over
// the elapsed period, a flat penalty deducts from the proceeds.
func PreClose(account *domain.Account, closeDate time.Time) (PreCloseResult, error) {
	detail, start, err := termBasis(account)
	if err != nil {
		return PreCloseResult{}, err
	}

	maturityDate := MaturityDate(start, detail.DepositPeriod, detail.DepositPeriodUnit)
	if !closeDate.Before(maturityDate) {
		return PreCloseResult{}, domain.NewValidationError("close date %s is not before maturity %s",
			closeDate.Format(time.DateOnly), maturityDate.Format(time.DateOnly))
	}

	elapsed := ElapsedPeriods(start, closeDate, detail.DepositPeriodUnit)
	if detail.MinTerm > 0 && !detail.AllowPrematureClose {
		minEnd := MaturityDate(start, detail.MinTerm, detail.MinTermUnit)
		if closeDate.Before(minEnd) {
			return PreCloseResult{}, domain.NewValidationError(
				"minimum term of %d %s has not elapsed", detail.MinTerm, detail.MinTermUnit)
		}
	}

	rateReduction := decimal.Zero
	flatDeduction := decimal.Zero
	if detail.PreClosurePenal {
		switch detail.PenaltyType {
		case domain.PenaltyTypeRateReduction:
			rateReduction = detail.PenaltyRate
		case domain.PenaltyTypeFlat:
			flatDeduction = detail.PenaltyFlatAmount
		}
	}

	accrualEnd := closeDate.AddDate(0, 0, -1)
	result, principal := projectInterest(account, detail, start, accrualEnd, rateReduction)

	penalty := flatDeduction
	if detail.PreClosurePenal && detail.PenaltyType == domain.PenaltyTypeRateReduction {
		full, _ := projectInterest(account, detail, start, accrualEnd, decimal.Zero)
		penalty = full.Total.Sub(result.Total)
	}

	closureAmount := account.Currency.Round(principal.Add(result.Total).Sub(flatDeduction))

	return PreCloseResult{
		ClosureDate:     closeDate,
		ClosureAmount:   closureAmount,
		InterestPayable: result.Total,
		Penalty:         penalty,
		ElapsedPeriods:  elapsed,
	}, nil
}

func termBasis(account *domain.Account) (domain.TermDetail, time.Time, error) {
	if !account.IsTermDeposit() || account.TermDetail == nil {
		return domain.TermDetail{}, time.Time{}, domain.NewValidationError("account %s is not a term deposit", account.ID)
	}
	if err := account.TermDetail.Validate(); err != nil {
		return domain.TermDetail{}, time.Time{}, err
	}

	start, ok := account.InterestCalculationStart()
	if !ok {
		return domain.TermDetail{}, time.Time{}, domain.NewValidationError("account %s has no activation date or transactions", account.ID)
	}
	return *account.TermDetail, start, nil
}

// projectInterest runs the regular segmentation and compounding over [start, end],
// optionally reducing every resolved rate by the pre-closure penalty. The
// projection compounds from the cash principal series alone: interest already
// posted to the ledger is stripped first, so it is never counted twice. It also
// returns the closing principal balance of that series, the settlement basis for
// maturity and closure amounts.
func projectInterest(account *domain.Account, detail domain.TermDetail, start, end time.Time, rateReduction decimal.Decimal) (interest.Result, decimal.Decimal) {
	series := principalSeries(account, detail, start, end)
	periods := interest.SegmentPeriods(start, end, account.PostingFrequency, account.FiscalYearStartMonth, nil)

	rateFor := func(principal decimal.Decimal, subStart, subEnd time.Time) decimal.Decimal {
		rate := interest.ResolveRate(account.Chart, account.ClientAttributes, principal, subStart, subEnd)
		rate = rate.Sub(rateReduction)
		if rate.IsNegative() {
			return decimal.Zero
		}
		return rate
	}

	result := interest.Calculate(periods, series,
		account.Chart.DayCount, account.LockedUntil, account.ImmediateInterestWithdrawal, rateFor)

	principal := decimal.Zero
	if len(series) > 0 {
		principal = series[len(series)-1].RunningBalance
	}
	return result, principal
}

// principalSeries is the cash principal the projection runs over. For a recurring
// deposit, mandatory installments not yet present in the ledger are assumed to be
// paid on schedule. A fixed deposit projected before funding assumes the
// configured deposit amount arrives on the start date.
func principalSeries(account *domain.Account, detail domain.TermDetail, start, end time.Time) []domain.Transaction {
	series := principalTransactions(account.Transactions)

	if account.Kind == domain.AccountKindRecurringDeposit {
		return withScheduledInstallments(account.RecurringDetail, series, start, end)
	}

	if len(series) == 0 && detail.DepositAmount.IsPositive() {
		series = append(series, domain.Transaction{
			Type:           domain.TransactionTypeDeposit,
			Amount:         detail.DepositAmount,
			Date:           start,
			RunningBalance: detail.DepositAmount,
		})
	}
	return series
}

// withScheduledInstallments appends the mandatory deposits a recurring account is
// scheduled to make through the projection horizon. Installment dates on or before
// the last recorded transaction reflect what actually happened, paid or missed;
// only dates after it are assumed.
func withScheduledInstallments(detail *domain.RecurringDetail, series []domain.Transaction, start, end time.Time) []domain.Transaction {
	if detail == nil || detail.MandatoryDeposit.LessThanOrEqual(decimal.Zero) || detail.RecurringFrequency <= 0 {
		return series
	}

	lastRecorded := start.AddDate(0, 0, -1)
	running := decimal.Zero
	if len(series) > 0 {
		lastRecorded = series[len(series)-1].Date
		running = series[len(series)-1].RunningBalance
	}

	// Each due date is computed from the start date, not cumulatively, so
	// month-end drift never accumulates.
	for n := 0; ; n++ {
		due := MaturityDate(start, n*detail.RecurringFrequency, detail.RecurringUnit)
		if due.After(end) {
			break
		}
		if !due.After(lastRecorded) {
			continue
		}
		running = running.Add(detail.MandatoryDeposit)
		series = append(series, domain.Transaction{
			Type:           domain.TransactionTypeDeposit,
			Amount:         detail.MandatoryDeposit,
			Date:           due,
			RunningBalance: running,
		})
	}
	return series
}

// principalTransactions rebuilds the ledger without interest-related entries,
// with running balances recomputed over the remainder.
func principalTransactions(transactions []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(transactions))
	running := decimal.Zero
	for _, tx := range transactions {
		if tx.Reversed || !tx.AffectsLedgerBalance() {
			continue
		}
		switch tx.Type {
		case domain.TransactionTypeInterestPosting, domain.TransactionTypeWithholdTax:
			continue
		}
		running = running.Add(tx.SignedAmount())
		tx.RunningBalance = running
		out = append(out, tx)
	}
	return out
}
