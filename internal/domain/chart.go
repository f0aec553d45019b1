package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayCount is the denominator convention used when annual rates are applied to
// partial periods. It is configured per chart.
type DayCount string

const (
	DayCount360    DayCount = "DAYS_360"
	DayCount365    DayCount = "DAYS_365"
	DayCountActual DayCount = "ACTUAL"
)

type IncentiveAttribute string

const (
	IncentiveAttributeGender               IncentiveAttribute = "GENDER"
	IncentiveAttributeAge                  IncentiveAttribute = "AGE"
	IncentiveAttributeClientType           IncentiveAttribute = "CLIENT_TYPE"
	IncentiveAttributeClientClassification IncentiveAttribute = "CLIENT_CLASSIFICATION"
)

type IncentiveCondition string

const (
	IncentiveConditionEqual       IncentiveCondition = "EQUAL"
	IncentiveConditionNotEqual    IncentiveCondition = "NOT_EQUAL"
	IncentiveConditionLessThan    IncentiveCondition = "LESS_THAN"
	IncentiveConditionGreaterThan IncentiveCondition = "GREATER_THAN"
)

type IncentiveType string

const (
	// IncentiveTypeFixed adds the incentive amount to the current rate as
	// percentage points.
	IncentiveTypeFixed IncentiveType = "FIXED"
	// IncentiveTypePercentage adjusts the current rate by amount percent of
	// itself.
	IncentiveTypePercentage IncentiveType = "PERCENTAGE"
)

// Incentive is an adjustment rule owned by a slab. Incentives are evaluated in
// declaration order against the account's client attributes.
type Incentive struct {
	ID        int64
	SlabID    int64
	Attribute IncentiveAttribute
	Condition IncentiveCondition
	Value     string
	Type      IncentiveType
	Amount    decimal.Decimal
}

// Slab is one tier of a rate chart: an amount range, an optional validity range and
// a base annual rate. Bounds are inclusive at the lower end, exclusive at the upper.
type Slab struct {
	ID         int64
	ChartID    int64
	AmountFrom decimal.Decimal
	AmountTo   *decimal.Decimal
	FromDate   time.Time
	EndDate    *time.Time
	AnnualRate decimal.Decimal
	Incentives []Incentive
}

// ContainsAmount reports whether the balance falls inside the slab's amount range.
func (s Slab) ContainsAmount(balance decimal.Decimal) bool {
	if balance.LessThan(s.AmountFrom) {
		return false
	}
	if s.AmountTo != nil && balance.GreaterThanOrEqual(*s.AmountTo) {
		return false
	}
	return true
}

// CoversPeriod reports whether the slab's validity range contains the whole period.
func (s Slab) CoversPeriod(start, end time.Time) bool {
	if start.Before(s.FromDate) {
		return false
	}
	if s.EndDate != nil && end.After(*s.EndDate) {
		return false
	}
	return true
}

// RateChart owns its slabs, which own their incentives. Ownership is strictly
// top-down; children are addressed through the parent, never by back-pointer.
type RateChart struct {
	ID       int64
	Name     string
	FromDate time.Time
	EndDate  *time.Time
	DayCount DayCount
	Slabs    []Slab
}

// SlabByID is the lookup that stands in for a child-to-parent reference.
func (c RateChart) SlabByID(id int64) (Slab, bool) {
	for _, slab := range c.Slabs {
		if slab.ID == id {
			return slab, true
		}
	}
	return Slab{}, false
}

// Validate rejects inconsistent charts. Overlapping slabs are a configuration
// error: two slabs whose amount ranges and validity ranges both intersect would
// make rate resolution order-dependent.
func (c RateChart) Validate() error {
	switch c.DayCount {
	case DayCount360, DayCount365, DayCountActual:
	default:
		return NewValidationError("chart %d: unknown day count convention %q", c.ID, c.DayCount)
	}
	if c.EndDate != nil && c.EndDate.Before(c.FromDate) {
		return NewValidationError("chart %d: end date %s precedes from date %s",
			c.ID, c.EndDate.Format(time.DateOnly), c.FromDate.Format(time.DateOnly))
	}

	for i, slab := range c.Slabs {
		if slab.AmountFrom.IsNegative() {
			return NewValidationError("chart %d slab %d: amount from must not be negative", c.ID, slab.ID)
		}
		if slab.AmountTo != nil && slab.AmountTo.LessThanOrEqual(slab.AmountFrom) {
			return NewValidationError("chart %d slab %d: amount to must exceed amount from", c.ID, slab.ID)
		}
		if slab.AnnualRate.IsNegative() {
			return NewValidationError("chart %d slab %d: annual rate must not be negative", c.ID, slab.ID)
		}
		for _, incentive := range slab.Incentives {
			if incentive.Amount.IsZero() {
				return NewValidationError("chart %d slab %d incentive %d: amount must not be zero",
					c.ID, slab.ID, incentive.ID)
			}
		}
		for _, other := range c.Slabs[i+1:] {
			if slabsOverlap(slab, other) {
				return NewValidationError("chart %d: slabs %d and %d overlap", c.ID, slab.ID, other.ID)
			}
		}
	}

	return nil
}

func slabsOverlap(a, b Slab) bool {
	return amountRangesOverlap(a, b) && dateRangesOverlap(a, b)
}

func amountRangesOverlap(a, b Slab) bool {
	if a.AmountTo != nil && !b.AmountFrom.LessThan(*a.AmountTo) {
		return false
	}
	if b.AmountTo != nil && !a.AmountFrom.LessThan(*b.AmountTo) {
		return false
	}
	return true
}

func dateRangesOverlap(a, b Slab) bool {
	if a.EndDate != nil && b.FromDate.After(*a.EndDate) {
		return false
	}
	if b.EndDate != nil && a.FromDate.After(*b.EndDate) {
		return false
	}
	return true
}
