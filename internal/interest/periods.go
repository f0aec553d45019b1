package interest

import (
	"sort"
	"time"

	"github.com/api-sage/deposit-ledger/internal/domain"
)

// Period is a posting period: an inclusive date interval over which interest is
// accrued before being credited.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the date falls inside the period.
func (p Period) Contains(date time.Time) bool {
	return !date.Before(p.Start) && !date.After(p.End)
}

// SegmentPeriods splits [start, upTo] into an ordered, contiguous, non-overlapping
// sequence of posting periods. Regular cycle boundaries come from the posting
// frequency relative to the fiscal year start month and always land on the last
// day of a month. A break date strictly inside a tentative period truncates it to
// end the day before, so interest can post on the break date itself.
func SegmentPeriods(start, upTo time.Time, frequency domain.PostingFrequency, fiscalYearStart time.Month, breakDates []time.Time) []Period {
	if upTo.Before(start) {
		return nil
	}

	breaks := make([]time.Time, 0, len(breakDates))
	for _, d := range breakDates {
		breaks = append(breaks, midnight(d))
	}
	sort.Slice(breaks, func(i, j int) bool { return breaks[i].Before(breaks[j]) })

	var periods []Period
	cursor := midnight(start)
	upTo = midnight(upTo)

	for !cursor.After(upTo) {
		end := regularCycleEnd(cursor, frequency, fiscalYearStart)

		for _, breakDate := range breaks {
			if breakDate.After(cursor) && !breakDate.After(end) {
				end = breakDate.AddDate(0, 0, -1)
				break
			}
		}

		if end.After(upTo) {
			end = upTo
		}

		periods = append(periods, Period{Start: cursor, End: end})
		cursor = end.AddDate(0, 0, 1)
	}

	return periods
}

// regularCycleEnd computes the last day of the posting cycle containing the date.
// Cycles are aligned to the fiscal year start month, e.g. quarterly cycles with an
// April fiscal year end in June, September, December and March.
func regularCycleEnd(date time.Time, frequency domain.PostingFrequency, fiscalYearStart time.Month) time.Time {
	cycleMonths := frequency.Months()
	monthsIntoYear := (int(date.Month()) - int(fiscalYearStart) + 12) % 12
	monthsLeftInCycle := cycleMonths - 1 - monthsIntoYear%cycleMonths

	firstOfMonth := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	return lastDayOfMonth(firstOfMonth.AddDate(0, monthsLeftInCycle, 0))
}

func lastDayOfMonth(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, -1)
}

func midnight(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
}
