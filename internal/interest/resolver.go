package interest

import (
	"strconv"
	"time"

	"github.com/api-sage/deposit-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// ResolveRate returns the effective annual rate, in percent, for a balance over a
// period. Slabs are assumed mutually exclusive (enforced by RateChart.Validate);
// at most one slab applies, and a balance outside every slab earns zero.
func ResolveRate(chart domain.RateChart, attributes map[domain.IncentiveAttribute]string, balance decimal.Decimal, start, end time.Time) decimal.Decimal {
	for _, slab := range chart.Slabs {
		if !slab.CoversPeriod(start, end) || !slab.ContainsAmount(balance) {
			continue
		}
		return applyIncentives(slab, attributes)
	}
	return decimal.Zero
}

// applyIncentives folds the slab's incentives, in declaration order, over the base
// rate. An incentive chain that drives the rate to zero or below resets to the
// base rate: incentives may not cancel a chart's return.
func applyIncentives(slab domain.Slab, attributes map[domain.IncentiveAttribute]string) decimal.Decimal {
	rate := slab.AnnualRate
	for _, incentive := range slab.Incentives {
		if !incentiveMatches(incentive, attributes) {
			continue
		}
		switch incentive.Type {
		case domain.IncentiveTypeFixed:
			rate = rate.Add(incentive.Amount)
		case domain.IncentiveTypePercentage:
			rate = rate.Add(rate.Mul(incentive.Amount).Div(hundred))
		}
	}

	if rate.LessThanOrEqual(decimal.Zero) {
		return slab.AnnualRate
	}
	return rate
}

func incentiveMatches(incentive domain.Incentive, attributes map[domain.IncentiveAttribute]string) bool {
	actual, ok := attributes[incentive.Attribute]
	if !ok {
		return false
	}

	switch incentive.Condition {
	case domain.IncentiveConditionEqual:
		return actual == incentive.Value
	case domain.IncentiveConditionNotEqual:
		return actual != incentive.Value
	case domain.IncentiveConditionLessThan, domain.IncentiveConditionGreaterThan:
		actualNum, err1 := strconv.Atoi(actual)
		expectedNum, err2 := strconv.Atoi(incentive.Value)
		if err1 != nil || err2 != nil {
			return false
		}
		if incentive.Condition == domain.IncentiveConditionLessThan {
			return actualNum < expectedNum
		}
		return actualNum > expectedNum
	}
	return false
}
