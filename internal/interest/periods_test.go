package interest

import (
	"testing"
	"time"

	"github.com/api-sage/deposit-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestSegmentPeriodsMonthly(t *testing.T) {
	periods := SegmentPeriods(date(2024, time.January, 15), date(2024, time.March, 31),
		domain.PostingFrequencyMonthly, time.January, nil)

	require.Len(t, periods, 3)
	assert.Equal(t, Period{Start: date(2024, time.January, 15), End: date(2024, time.January, 31)}, periods[0])
	assert.Equal(t, Period{Start: date(2024, time.February, 1), End: date(2024, time.February, 29)}, periods[1])
	assert.Equal(t, Period{Start: date(2024, time.March, 1), End: date(2024, time.March, 31)}, periods[2])
}

func TestSegmentPeriodsQuarterlyWithFiscalYearStart(t *testing.T) {
	periods := SegmentPeriods(date(2024, time.May, 10), date(2024, time.December, 31),
		domain.PostingFrequencyQuarterly, time.April, nil)

	require.Len(t, periods, 3)
	assert.Equal(t, date(2024, time.June, 30), periods[0].End)
	assert.Equal(t, date(2024, time.September, 30), periods[1].End)
	assert.Equal(t, date(2024, time.December, 31), periods[2].End)
}

func TestSegmentPeriodsAnnual(t *testing.T) {
	periods := SegmentPeriods(date(2023, time.January, 1), date(2023, time.December, 31),
		domain.PostingFrequencyAnnual, time.January, nil)

	require.Len(t, periods, 1)
	assert.Equal(t, Period{Start: date(2023, time.January, 1), End: date(2023, time.December, 31)}, periods[0])
}

func TestSegmentPeriodsBreakDateForcesBoundary(t *testing.T) {
	breaks := []time.Time{date(2024, time.January, 20)}
	periods := SegmentPeriods(date(2024, time.January, 1), date(2024, time.February, 29),
		domain.PostingFrequencyMonthly, time.January, breaks)

	require.Len(t, periods, 3)
	assert.Equal(t, date(2024, time.January, 19), periods[0].End)
	assert.Equal(t, date(2024, time.January, 20), periods[1].Start)
	assert.Equal(t, date(2024, time.January, 31), periods[1].End)
	assert.Equal(t, date(2024, time.February, 1), periods[2].Start)
}

func TestSegmentPeriodsBreakOnStartIsIgnored(t *testing.T) {
	breaks := []time.Time{date(2024, time.January, 1)}
	periods := SegmentPeriods(date(2024, time.January, 1), date(2024, time.January, 31),
		domain.PostingFrequencyMonthly, time.January, breaks)

	require.Len(t, periods, 1)
	assert.Equal(t, Period{Start: date(2024, time.January, 1), End: date(2024, time.January, 31)}, periods[0])
}

func TestSegmentPeriodsClampsToUpTo(t *testing.T) {
	periods := SegmentPeriods(date(2024, time.January, 1), date(2024, time.January, 10),
		domain.PostingFrequencyMonthly, time.January, nil)

	require.Len(t, periods, 1)
	assert.Equal(t, date(2024, time.January, 10), periods[0].End)
}

func TestSegmentPeriodsEmptyWhenUpToPrecedesStart(t *testing.T) {
	periods := SegmentPeriods(date(2024, time.February, 1), date(2024, time.January, 1),
		domain.PostingFrequencyMonthly, time.January, nil)

	assert.Empty(t, periods)
}

// Periods must be contiguous, non-overlapping and cover [start, upTo] exactly,
// whatever combination of frequency and break dates produced them.
func TestSegmentPeriodsCoverageProperty(t *testing.T) {
	start := date(2023, time.March, 7)
	upTo := date(2024, time.August, 19)
	breaks := []time.Time{
		date(2023, time.May, 14),
		date(2023, time.November, 1),
		date(2024, time.February, 29),
	}

	for _, frequency := range []domain.PostingFrequency{
		domain.PostingFrequencyMonthly,
		domain.PostingFrequencyQuarterly,
		domain.PostingFrequencyBiannual,
		domain.PostingFrequencyAnnual,
	} {
		periods := SegmentPeriods(start, upTo, frequency, time.April, breaks)
		require.NotEmpty(t, periods, "frequency %s", frequency)

		assert.Equal(t, start, periods[0].Start, "frequency %s", frequency)
		assert.Equal(t, upTo, periods[len(periods)-1].End, "frequency %s", frequency)

		for i := 1; i < len(periods); i++ {
			assert.Equal(t, periods[i-1].End.AddDate(0, 0, 1), periods[i].Start,
				"frequency %s period %d", frequency, i)
		}
		for i, period := range periods {
			assert.False(t, period.End.Before(period.Start), "frequency %s period %d", frequency, i)
		}

		for _, breakDate := range breaks {
			found := false
			for _, period := range periods {
				if period.Start.Equal(breakDate) {
					found = true
					break
				}
			}
			assert.True(t, found, "frequency %s: no boundary at break date %s", frequency, breakDate.Format(time.DateOnly))
		}
	}
}
