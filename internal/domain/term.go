package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PeriodUnit string

const (
	PeriodUnitDays   PeriodUnit = "DAYS"
	PeriodUnitWeeks  PeriodUnit = "WEEKS"
	PeriodUnitMonths PeriodUnit = "MONTHS"
	PeriodUnitYears  PeriodUnit = "YEARS"
)

// ApproximateDays converts a term to whole days using the fixed calendar
// approximation used throughout deposit-term validation: week=7d, month=30d,
// year=365d. Kept deliberately, for compatibility with configured products.
func (u PeriodUnit) ApproximateDays(periods int) int {
	switch u {
	case PeriodUnitWeeks:
		return periods * 7
	case PeriodUnitMonths:
		return periods * 30
	case PeriodUnitYears:
		return periods * 365
	default:
		return periods
	}
}

type MaturityAction string

const (
	MaturityActionWithdraw MaturityAction = "WITHDRAW_DEPOSIT"
	MaturityActionTransfer MaturityAction = "TRANSFER_TO_SAVINGS"
	MaturityActionReinvest MaturityAction = "REINVEST"
)

type PenaltyType string

const (
	// PenaltyTypeRateReduction subtracts percentage points from the applicable
	// annual rate for the elapsed period.
	PenaltyTypeRateReduction PenaltyType = "RATE_REDUCTION"
	// PenaltyTypeFlat deducts a flat amount from the pre-closure proceeds.
	PenaltyTypeFlat PenaltyType = "FLAT"
)

// TermDetail is the kind-specific record held by fixed and recurring deposit
// accounts.
type TermDetail struct {
	DepositAmount       decimal.Decimal
	DepositPeriod       int
	DepositPeriodUnit   PeriodUnit
	MinTerm             int
	MinTermUnit         PeriodUnit
	MaxTerm             int
	MaxTermUnit         PeriodUnit
	InMultiplesOf       int
	InMultiplesOfUnit   PeriodUnit
	MaturityAmount      decimal.Decimal
	MaturityDate        *time.Time
	OnMaturity          MaturityAction
	PreClosurePenal     bool
	PenaltyType         PenaltyType
	PenaltyRate         decimal.Decimal
	PenaltyFlatAmount   decimal.Decimal
	AllowPrematureClose bool
}

// Validate rejects inconsistent term configuration.
func (d TermDetail) Validate() error {
	if d.DepositAmount.IsNegative() || d.DepositAmount.IsZero() {
		return NewValidationError("deposit amount must be positive")
	}
	if d.DepositPeriod <= 0 {
		return NewValidationError("deposit period must be positive")
	}
	if d.MinTerm > 0 && d.MaxTerm > 0 {
		minDays := d.MinTermUnit.ApproximateDays(d.MinTerm)
		maxDays := d.MaxTermUnit.ApproximateDays(d.MaxTerm)
		if minDays > maxDays {
			return NewValidationError("minimum term exceeds maximum term")
		}
	}
	if d.PreClosurePenal {
		switch d.PenaltyType {
		case PenaltyTypeRateReduction:
			if d.PenaltyRate.IsNegative() {
				return NewValidationError("penalty rate must not be negative")
			}
		case PenaltyTypeFlat:
			if d.PenaltyFlatAmount.IsNegative() {
				return NewValidationError("penalty amount must not be negative")
			}
		default:
			return NewValidationError("unknown penalty type %q", d.PenaltyType)
		}
	}
	return nil
}

// RecurringDetail supplements TermDetail for recurring deposit accounts.
type RecurringDetail struct {
	MandatoryDeposit   decimal.Decimal
	RecurringFrequency int
	RecurringUnit      PeriodUnit
}
