package services

import (
	"context"
	"time"

	"github.com/api-sage/deposit-ledger/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/deposit-ledger/internal/clock"
	"github.com/api-sage/deposit-ledger/internal/commons"
	"github.com/api-sage/deposit-ledger/internal/domain"
	"github.com/api-sage/deposit-ledger/internal/ledger"
	"github.com/api-sage/deposit-ledger/internal/logger"
	"github.com/api-sage/deposit-ledger/internal/term"
	"github.com/google/uuid"
)

// DepositService handles the term-deposit life cycle: maturity projection,
// maturing on schedule and pre-mature closure.
type DepositService struct {
	accountRepo repo_interfaces.AccountRepository
	clk         clock.Clock
	locks       *AccountLocks
}

func NewDepositService(accountRepo repo_interfaces.AccountRepository, clk clock.Clock, locks *AccountLocks) *DepositService {
	return &DepositService{
		accountRepo: accountRepo,
		clk:         clk,
		locks:       locks,
	}
}

// ComputeMaturity projects the maturity figures and caches them on the term
// detail record.
func (s *DepositService) ComputeMaturity(ctx context.Context, accountID string) (commons.Response[MaturityResponse], error) {
	logger.Info("deposit service compute maturity request", logger.Fields{
		"accountId": accountID,
	})

	unlock := s.locks.Lock(accountID)
	defer unlock()

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		logger.Error("deposit service compute maturity fetch failed", err, logger.Fields{
			"accountId": accountID,
		})
		return commons.ErrorResponse[MaturityResponse]("failed to compute maturity", "Unable to fetch account right now"), err
	}

	result, err := term.ComputeMaturity(&account)
	if err != nil {
		logger.Error("deposit service compute maturity failed", err, logger.Fields{
			"accountId": accountID,
		})
		return commons.ErrorResponse[MaturityResponse]("failed to compute maturity", err.Error()), err
	}

	account.TermDetail.MaturityAmount = result.MaturityAmount
	maturityDate := result.MaturityDate
	account.TermDetail.MaturityDate = &maturityDate
	account.UpdatedAt = time.Now().UTC()

	if _, err := s.accountRepo.Save(ctx, account); err != nil {
		logger.Error("deposit service compute maturity save failed", err, logger.Fields{
			"accountId": accountID,
		})
		return commons.ErrorResponse[MaturityResponse]("failed to compute maturity", "Unable to persist maturity right now"), err
	}

	logger.Info("deposit service compute maturity success", logger.Fields{
		"accountId":      accountID,
		"maturityDate":   result.MaturityDate.Format(time.DateOnly),
		"maturityAmount": result.MaturityAmount,
	})

	return commons.SuccessResponse("maturity computed successfully", MaturityResponse{
		AccountID:       accountID,
		MaturityDate:    result.MaturityDate.Format(time.DateOnly),
		MaturityAmount:  result.MaturityAmount.String(),
		InterestPayable: result.InterestPayable.String(),
	}), nil
}

// Mature settles a term deposit on or after its maturity date: the outstanding
// interest posts on the maturity date and the account transitions to MATURED,
// atomically.
func (s *DepositService) Mature(ctx context.Context, accountID string) (commons.Response[MaturityResponse], error) {
	logger.Info("deposit service mature request", logger.Fields{
		"accountId": accountID,
	})

	unlock := s.locks.Lock(accountID)
	defer unlock()

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return commons.ErrorResponse[MaturityResponse]("failed to mature account", "Unable to fetch account right now"), err
	}

	result, err := term.ComputeMaturity(&account)
	if err != nil {
		return commons.ErrorResponse[MaturityResponse]("failed to mature account", err.Error()), err
	}

	if s.clk.Today().Before(result.MaturityDate) {
		err := domain.NewValidationError("account %s matures on %s", accountID, result.MaturityDate.Format(time.DateOnly))
		return commons.ErrorResponse[MaturityResponse]("failed to mature account", err.Error()), err
	}

	outstanding := account.Currency.Round(result.InterestPayable).Sub(account.Summary.TotalInterestPosted)
	if outstanding.IsPositive() {
		posting := domain.Transaction{
			ID:        uuid.NewString(),
			Type:      domain.TransactionTypeInterestPosting,
			Amount:    outstanding,
			Date:      result.MaturityDate,
			CreatedAt: time.Now().UTC(),
		}
		if err := ledger.Append(&account, posting, true); err != nil {
			return commons.ErrorResponse[MaturityResponse]("failed to mature account", err.Error()), err
		}
	}

	if err := account.Transition(domain.AccountStatusMatured); err != nil {
		return commons.ErrorResponse[MaturityResponse]("failed to mature account", err.Error()), err
	}

	account.TermDetail.MaturityAmount = result.MaturityAmount
	maturityDate := result.MaturityDate
	account.TermDetail.MaturityDate = &maturityDate
	account.UpdatedAt = time.Now().UTC()

	if _, err := s.accountRepo.Save(ctx, account); err != nil {
		logger.Error("deposit service mature save failed", err, logger.Fields{
			"accountId": accountID,
		})
		return commons.ErrorResponse[MaturityResponse]("failed to mature account", "Unable to persist maturity right now"), err
	}

	logger.Info("deposit service mature success", logger.Fields{
		"accountId":      accountID,
		"maturityAmount": result.MaturityAmount,
	})

	return commons.SuccessResponse("account matured successfully", MaturityResponse{
		AccountID:       accountID,
		MaturityDate:    result.MaturityDate.Format(time.DateOnly),
		MaturityAmount:  result.MaturityAmount.String(),
		InterestPayable: result.InterestPayable.String(),
	}), nil
}

// PreClose closes a term deposit before maturity. Interest for the elapsed period
// posts at the penalty-adjusted rate, a flat penalty (if configured) is charged,
// the proceeds are withdrawn and the account transitions to PRE_MATURE_CLOSURE,
// all atomically with a single save.
func (s *DepositService) PreClose(ctx context.Context, accountID string, closeDate time.Time) (commons.Response[PreCloseResponse], error) {
	logger.Info("deposit service pre-close request", logger.Fields{
		"accountId": accountID,
		"closeDate": closeDate.Format(time.DateOnly),
	})

	unlock := s.locks.Lock(accountID)
	defer unlock()

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return commons.ErrorResponse[PreCloseResponse]("failed to pre-close account", "Unable to fetch account right now"), err
	}

	if !account.Status.AllowsTransactions() {
		err := &domain.InvalidStateTransitionError{From: account.Status, Op: "pre-close"}
		return commons.ErrorResponse[PreCloseResponse]("failed to pre-close account", err.Error()), err
	}

	result, err := term.PreClose(&account, closeDate)
	if err != nil {
		logger.Error("deposit service pre-close failed", err, logger.Fields{
			"accountId": accountID,
		})
		return commons.ErrorResponse[PreCloseResponse]("failed to pre-close account", err.Error()), err
	}

	outstanding := account.Currency.Round(result.InterestPayable).Sub(account.Summary.TotalInterestPosted)
	if outstanding.IsPositive() {
		posting := domain.Transaction{
			ID:        uuid.NewString(),
			Type:      domain.TransactionTypeInterestPosting,
			Amount:    outstanding,
			Date:      closeDate,
			CreatedAt: time.Now().UTC(),
		}
		if err := ledger.Append(&account, posting, true); err != nil {
			return commons.ErrorResponse[PreCloseResponse]("failed to pre-close account", err.Error()), err
		}
	}

	if account.TermDetail.PreClosurePenal && account.TermDetail.PenaltyType == domain.PenaltyTypeFlat &&
		account.TermDetail.PenaltyFlatAmount.IsPositive() {
		penalty := domain.Transaction{
			ID:        uuid.NewString(),
			Type:      domain.TransactionTypePenalty,
			Amount:    account.Currency.Round(account.TermDetail.PenaltyFlatAmount),
			Date:      closeDate,
			CreatedAt: time.Now().UTC(),
		}
		if err := ledger.Append(&account, penalty, true); err != nil {
			return commons.ErrorResponse[PreCloseResponse]("failed to pre-close account", err.Error()), err
		}
	}

	proceeds := account.LedgerBalance()
	if proceeds.IsPositive() {
		withdrawal := domain.Transaction{
			ID:        uuid.NewString(),
			Type:      domain.TransactionTypeWithdrawal,
			Amount:    proceeds,
			Date:      closeDate,
			CreatedAt: time.Now().UTC(),
		}
		if err := ledger.Append(&account, withdrawal, true); err != nil {
			return commons.ErrorResponse[PreCloseResponse]("failed to pre-close account", err.Error()), err
		}
	}

	if err := account.Transition(domain.AccountStatusPreMatureClosure); err != nil {
		return commons.ErrorResponse[PreCloseResponse]("failed to pre-close account", err.Error()), err
	}
	account.UpdatedAt = time.Now().UTC()

	if _, err := s.accountRepo.Save(ctx, account); err != nil {
		logger.Error("deposit service pre-close save failed", err, logger.Fields{
			"accountId": accountID,
		})
		return commons.ErrorResponse[PreCloseResponse]("failed to pre-close account", "Unable to persist closure right now"), err
	}

	logger.Info("deposit service pre-close success", logger.Fields{
		"accountId":     accountID,
		"closureAmount": proceeds,
		"penalty":       result.Penalty,
	})

	// The closure amount reported is what actually left the account, which
	// includes any deposits or withdrawals made outside the original term plan.
	return commons.SuccessResponse("account pre-closed successfully", PreCloseResponse{
		AccountID:       accountID,
		ClosureDate:     result.ClosureDate.Format(time.DateOnly),
		ClosureAmount:   proceeds.String(),
		InterestPayable: result.InterestPayable.String(),
		Penalty:         result.Penalty.String(),
		ElapsedPeriods:  result.ElapsedPeriods,
	}), nil
}
