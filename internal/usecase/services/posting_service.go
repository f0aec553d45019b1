package services

import (
	"context"
	"time"

	"github.com/api-sage/deposit-ledger/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/deposit-ledger/internal/clock"
	"github.com/api-sage/deposit-ledger/internal/commons"
	"github.com/api-sage/deposit-ledger/internal/domain"
	"github.com/api-sage/deposit-ledger/internal/interest"
	"github.com/api-sage/deposit-ledger/internal/ledger"
	"github.com/api-sage/deposit-ledger/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostingService turns accrued interest into ledger transactions. A posting run
// segments the window since the last posting into periods, computes compound
// interest per period and appends one interest-posting transaction per period,
// plus withhold-tax and overdraft-interest entries where configured.
type PostingService struct {
	accountRepo repo_interfaces.AccountRepository
	clk         clock.Clock
	locks       *AccountLocks
}

func NewPostingService(accountRepo repo_interfaces.AccountRepository, clk clock.Clock, locks *AccountLocks) *PostingService {
	return &PostingService{
		accountRepo: accountRepo,
		clk:         clk,
		locks:       locks,
	}
}

func (s *PostingService) PostInterestUpTo(ctx context.Context, accountID string, upTo time.Time) (commons.Response[PostingResult], error) {
	logger.Info("posting service post interest request", logger.Fields{
		"accountId": accountID,
		"upTo":      upTo.Format(time.DateOnly),
	})

	unlock := s.locks.Lock(accountID)
	defer unlock()

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		logger.Error("posting service account fetch failed", err, logger.Fields{
			"accountId": accountID,
		})
		return commons.ErrorResponse[PostingResult]("failed to post interest", "Unable to fetch account right now"), err
	}

	result, err := s.post(&account, upTo)
	if err != nil {
		logger.Error("posting service post interest failed", err, logger.Fields{
			"accountId": accountID,
		})
		return commons.ErrorResponse[PostingResult]("failed to post interest", err.Error()), err
	}

	if len(result.Transactions) > 0 {
		account.UpdatedAt = time.Now().UTC()
		if _, err := s.accountRepo.Save(ctx, account); err != nil {
			logger.Error("posting service save failed", err, logger.Fields{
				"accountId": accountID,
			})
			return commons.ErrorResponse[PostingResult]("failed to post interest", "Unable to persist posting right now"), err
		}
	}

	logger.Info("posting service post interest success", logger.Fields{
		"accountId":   accountID,
		"totalPosted": result.TotalPosted,
		"count":       len(result.Transactions),
	})

	return commons.SuccessResponse("interest posted successfully", result), nil
}

// post runs the whole computation against the in-memory account. Any error leaves
// the account unsaved, so the persisted state is untouched.
func (s *PostingService) post(account *domain.Account, upTo time.Time) (PostingResult, error) {
	if !account.Status.AllowsTransactions() {
		return PostingResult{}, &domain.InvalidStateTransitionError{From: account.Status, Op: "post interest"}
	}

	start, ok := postingStart(account)
	result := PostingResult{
		AccountID:      account.ID,
		UpTo:           upTo.Format(time.DateOnly),
		TotalPosted:    "0",
		TotalTax:       "0",
		TotalOverdraft: "0",
	}
	if !ok || upTo.Before(start) {
		return result, nil
	}
	result.From = start.Format(time.DateOnly)

	periods := interest.SegmentPeriods(start, upTo, account.PostingFrequency,
		account.FiscalYearStartMonth, breakDates(account, start, upTo))

	rateFor := func(principal decimal.Decimal, subStart, subEnd time.Time) decimal.Decimal {
		return interest.ResolveRate(account.Chart, account.ClientAttributes, principal, subStart, subEnd)
	}

	computed := interest.Calculate(periods, account.Transactions, account.Chart.DayCount,
		account.LockedUntil, account.ImmediateInterestWithdrawal, rateFor)

	// Overdraft interest is computed from the same snapshot, before any posting
	// transaction shifts the running balances.
	var overdraft interest.Result
	if account.OverdraftEnabled && account.OverdraftRate.GreaterThan(decimal.Zero) {
		overdraft = interest.OverdraftInterest(periods, account.Transactions,
			account.OverdraftRate, account.Chart.DayCount)
	}

	today := s.clk.Today()
	totalPosted := decimal.Zero
	totalTax := decimal.Zero

	for _, period := range computed.Periods {
		if period.Deferred && account.LockedUntil != nil && today.Before(*account.LockedUntil) {
			// Locked periods post once the lock expires. Stop here so posted
			// interest stays contiguous.
			break
		}

		gross := account.Currency.Round(period.Interest)
		if gross.LessThanOrEqual(decimal.Zero) {
			continue
		}

		posting := domain.Transaction{
			ID:        uuid.NewString(),
			Type:      domain.TransactionTypeInterestPosting,
			Amount:    gross,
			Date:      period.End,
			CreatedAt: time.Now().UTC(),
		}
		if err := ledger.Append(account, posting, false); err != nil {
			return PostingResult{}, err
		}
		totalPosted = totalPosted.Add(gross)
		result.Transactions = append(result.Transactions, transactionResponse(account.ID, findTransaction(account, posting.ID)))

		if account.WithholdTaxPercent.GreaterThan(decimal.Zero) {
			tax := account.Currency.Round(gross.Mul(account.WithholdTaxPercent).Div(decimal.NewFromInt(100)))
			if tax.GreaterThan(decimal.Zero) {
				taxTx := domain.Transaction{
					ID:           uuid.NewString(),
					Type:         domain.TransactionTypeWithholdTax,
					Amount:       tax,
					Date:         period.End,
					CreatedAt:    time.Now().UTC(),
					OriginalTxID: posting.ID,
				}
				if err := ledger.Append(account, taxTx, false); err != nil {
					return PostingResult{}, err
				}
				totalTax = totalTax.Add(tax)
				result.Transactions = append(result.Transactions, transactionResponse(account.ID, findTransaction(account, taxTx.ID)))
			}
		}
	}

	totalOverdraft := decimal.Zero
	for _, period := range overdraft.Periods {
		charge := account.Currency.Round(period.Interest)
		if charge.LessThanOrEqual(decimal.Zero) {
			continue
		}

		tx := domain.Transaction{
			ID:        uuid.NewString(),
			Type:      domain.TransactionTypeOverdraftInterest,
			Amount:    charge,
			Date:      period.End,
			CreatedAt: time.Now().UTC(),
		}
		if err := ledger.Append(account, tx, false); err != nil {
			return PostingResult{}, err
		}
		totalOverdraft = totalOverdraft.Add(charge)
		result.Transactions = append(result.Transactions, transactionResponse(account.ID, findTransaction(account, tx.ID)))
	}

	result.TotalPosted = totalPosted.String()
	result.TotalTax = totalTax.String()
	result.TotalOverdraft = totalOverdraft.String()
	return result, nil
}

// postingStart is the day after the last posted interest, or the interest
// calculation start for a ledger with no postings yet.
func postingStart(account *domain.Account) (time.Time, bool) {
	var lastPosted time.Time
	for _, tx := range account.Transactions {
		if tx.Type != domain.TransactionTypeInterestPosting || tx.Reversed {
			continue
		}
		if tx.Date.After(lastPosted) {
			lastPosted = tx.Date
		}
	}
	if !lastPosted.IsZero() {
		return lastPosted.AddDate(0, 0, 1), true
	}
	return account.InterestCalculationStart()
}

// breakDates forces period boundaries at withdrawal dates and at slab validity
// starts, so a rate change or an outflow never straddles a period.
func breakDates(account *domain.Account, start, upTo time.Time) []time.Time {
	var dates []time.Time

	for _, tx := range account.Transactions {
		if tx.Reversed || tx.Type != domain.TransactionTypeWithdrawal {
			continue
		}
		if tx.Date.After(start) && !tx.Date.After(upTo) {
			dates = append(dates, tx.Date)
		}
	}

	for _, slab := range account.Chart.Slabs {
		if slab.FromDate.After(start) && !slab.FromDate.After(upTo) {
			dates = append(dates, slab.FromDate)
		}
	}

	return dates
}
