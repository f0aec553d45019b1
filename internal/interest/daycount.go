package interest

import (
	"time"

	"github.com/api-sage/deposit-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	days360 = decimal.NewFromInt(360)
	days365 = decimal.NewFromInt(365)
	days366 = decimal.NewFromInt(366)
	hundred = decimal.NewFromInt(100)
)

// YearDenominator returns the day-count denominator for a sub-interval starting at
// the given date. ACTUAL uses the real length of that calendar year.
func YearDenominator(convention domain.DayCount, at time.Time) decimal.Decimal {
	switch convention {
	case domain.DayCount360:
		return days360
	case domain.DayCountActual:
		if isLeapYear(at.Year()) {
			return days366
		}
		return days365
	default:
		return days365
	}
}

// DaysInclusive counts the days in [start, end], both ends included.
func DaysInclusive(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
