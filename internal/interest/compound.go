package interest

import (
	"time"

	"github.com/api-sage/deposit-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// RateFunc resolves the annual rate, in percent, for a principal held over a
// sub-interval. The calculator calls it every time the principal changes.
type RateFunc func(principal decimal.Decimal, start, end time.Time) decimal.Decimal

// PeriodInterest is the computed contribution of one posting period.
type PeriodInterest struct {
	Period
	Interest decimal.Decimal
	// Deferred marks interest whose posting transaction must wait for the
	// account lock to expire. The amount still compounds forward.
	Deferred bool
}

// Result is the outcome of a compound interest calculation over a period sequence.
type Result struct {
	Periods []PeriodInterest
	Total   decimal.Decimal
}

// Calculate computes per-period compound interest from the running balances of the
// transaction history. Within a period the principal is piecewise constant between
// transaction dates; each constant stretch contributes
// principal * rate * days / denominator. Unless interest is withdrawn immediately,
// a period's interest is folded into the principal of the following periods.
// Amounts stay unrounded; rounding happens when a posting transaction is created.
func Calculate(periods []Period, transactions []domain.Transaction, convention domain.DayCount, lockedUntil *time.Time, immediateWithdrawal bool, rate RateFunc) Result {
	ledger := make([]domain.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.Reversed || !tx.AffectsLedgerBalance() {
			continue
		}
		ledger = append(ledger, tx)
	}

	result := Result{Total: decimal.Zero}
	carried := decimal.Zero

	for _, period := range periods {
		periodInterest := decimal.Zero

		for _, stretch := range constantStretches(period, ledger) {
			principal := balanceOn(ledger, stretch.Start).Add(carried)
			if principal.LessThanOrEqual(decimal.Zero) {
				continue
			}

			annualRate := rate(principal, stretch.Start, stretch.End)
			if annualRate.LessThanOrEqual(decimal.Zero) {
				continue
			}

			days := decimal.NewFromInt(int64(DaysInclusive(stretch.Start, stretch.End)))
			periodInterest = periodInterest.Add(
				principal.Mul(annualRate).Div(hundred).
					Mul(days).Div(YearDenominator(convention, stretch.Start)))
		}

		deferred := lockedUntil != nil && period.End.Before(*lockedUntil)
		result.Periods = append(result.Periods, PeriodInterest{
			Period:   period,
			Interest: periodInterest,
			Deferred: deferred,
		})
		result.Total = result.Total.Add(periodInterest)

		if !immediateWithdrawal {
			carried = carried.Add(periodInterest)
		}
	}

	return result
}

// OverdraftInterest charges interest on the negative stretches of the running
// balance at a flat annual rate. Overdraft interest never compounds.
func OverdraftInterest(periods []Period, transactions []domain.Transaction, annualRate decimal.Decimal, convention domain.DayCount) Result {
	ledger := make([]domain.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.Reversed || !tx.AffectsLedgerBalance() {
			continue
		}
		ledger = append(ledger, tx)
	}

	result := Result{Total: decimal.Zero}
	if annualRate.LessThanOrEqual(decimal.Zero) {
		for _, period := range periods {
			result.Periods = append(result.Periods, PeriodInterest{Period: period, Interest: decimal.Zero})
		}
		return result
	}

	for _, period := range periods {
		periodInterest := decimal.Zero

		for _, stretch := range constantStretches(period, ledger) {
			balance := balanceOn(ledger, stretch.Start)
			if !balance.IsNegative() {
				continue
			}

			days := decimal.NewFromInt(int64(DaysInclusive(stretch.Start, stretch.End)))
			periodInterest = periodInterest.Add(
				balance.Neg().Mul(annualRate).Div(hundred).
					Mul(days).Div(YearDenominator(convention, stretch.Start)))
		}

		result.Periods = append(result.Periods, PeriodInterest{Period: period, Interest: periodInterest})
		result.Total = result.Total.Add(periodInterest)
	}

	return result
}

// constantStretches splits a period at every transaction date inside it, yielding
// inclusive intervals over which the ledger balance is constant.
func constantStretches(period Period, ledger []domain.Transaction) []Period {
	boundaries := []time.Time{period.Start}
	seen := map[time.Time]struct{}{period.Start: {}}

	for _, tx := range ledger {
		date := midnight(tx.Date)
		if !date.After(period.Start) || date.After(period.End) {
			continue
		}
		if _, dup := seen[date]; dup {
			continue
		}
		seen[date] = struct{}{}
		boundaries = append(boundaries, date)
	}

	// Ledger order is by date, so boundaries are already ascending.
	stretches := make([]Period, 0, len(boundaries))
	for i, start := range boundaries {
		end := period.End
		if i+1 < len(boundaries) {
			end = boundaries[i+1].AddDate(0, 0, -1)
		}
		stretches = append(stretches, Period{Start: start, End: end})
	}

	return stretches
}

// balanceOn returns the running balance effective on a date: the balance after the
// last ledger transaction dated on or before it.
func balanceOn(ledger []domain.Transaction, date time.Time) decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range ledger {
		if midnight(tx.Date).After(date) {
			break
		}
		balance = tx.RunningBalance
	}
	return balance
}
