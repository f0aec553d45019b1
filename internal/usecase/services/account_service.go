package services

import (
	"context"
	"strings"
	"time"

	"github.com/api-sage/deposit-ledger/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/deposit-ledger/internal/clock"
	"github.com/api-sage/deposit-ledger/internal/commons"
	"github.com/api-sage/deposit-ledger/internal/domain"
	"github.com/api-sage/deposit-ledger/internal/ledger"
	"github.com/api-sage/deposit-ledger/internal/logger"
	"github.com/api-sage/deposit-ledger/internal/term"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountService is the mutation surface of the deposit ledger: account
// lifecycle, cash transactions, holds and ledger corrections. Every mutation runs
// under the account's lock and persists only after the in-memory computation
// succeeded in full.
type AccountService struct {
	accountRepo repo_interfaces.AccountRepository
	clk         clock.Clock
	locks       *AccountLocks
}

func NewAccountService(accountRepo repo_interfaces.AccountRepository, clk clock.Clock, locks *AccountLocks) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		clk:         clk,
		locks:       locks,
	}
}

func (s *AccountService) CreateAccount(ctx context.Context, req CreateAccountRequest) (commons.Response[AccountSummaryResponse], error) {
	logger.Info("account service create account request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("account service create account validation failed", err, nil)
		return commons.ErrorResponse[AccountSummaryResponse]("validation failed", err.Error()), err
	}

	if req.TermDetail != nil && !term.IsValidInMultiplesOfPeriod(*req.TermDetail) {
		err := domain.NewValidationError("deposit period of %d %s is not a valid multiple of the configured term",
			req.TermDetail.DepositPeriod, req.TermDetail.DepositPeriodUnit)
		return commons.ErrorResponse[AccountSummaryResponse]("validation failed", err.Error()), err
	}

	now := time.Now().UTC()
	account := domain.Account{
		ID:            uuid.NewString(),
		AccountNumber: generateAccountNumber(),
		CustomerID:    strings.TrimSpace(req.CustomerID),
		Currency: domain.Currency{
			Code:   strings.ToUpper(strings.TrimSpace(req.Currency)),
			Digits: req.CurrencyDigits,
		},
		Kind:   req.Kind,
		Status: domain.AccountStatusSubmittedAndPendingApproval,

		MinRequiredBalance: req.MinRequiredBalance,
		OverdraftEnabled:   req.OverdraftEnabled,
		OverdraftLimit:     req.OverdraftLimit,
		OverdraftRate:      req.OverdraftRate,
		WithholdTaxPercent: req.WithholdTaxPercent,

		PostingFrequency:     req.PostingFrequency,
		FiscalYearStartMonth: req.FiscalYearStartMonth,

		ImmediateInterestWithdrawal: req.ImmediateInterestWithdrawal,
		LockedUntil:                 req.LockedUntil,

		Chart:            req.Chart,
		ClientAttributes: req.ClientAttributes,
		TermDetail:       req.TermDetail,
		RecurringDetail:  req.RecurringDetail,

		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.accountRepo.Create(ctx, account)
	if err != nil {
		logger.Error("account service create account repository failed", err, logger.Fields{
			"customerId": account.CustomerID,
		})
		return commons.ErrorResponse[AccountSummaryResponse]("failed to create account", "Unable to create account right now"), err
	}

	logger.Info("account service create account success", logger.Fields{
		"accountId":     created.ID,
		"accountNumber": created.AccountNumber,
		"customerId":    created.CustomerID,
	})

	return commons.SuccessResponse("account created successfully", summaryResponse(&created)), nil
}

// Approve, Activate, Reject and WithdrawApplication move the account through the
// opening workflow. Activation stamps the interest calculation start date.

func (s *AccountService) Approve(ctx context.Context, accountID string) (commons.Response[AccountSummaryResponse], error) {
	return s.transition(ctx, accountID, domain.AccountStatusApproved, "approve")
}

func (s *AccountService) Activate(ctx context.Context, accountID string) (commons.Response[AccountSummaryResponse], error) {
	return s.transition(ctx, accountID, domain.AccountStatusActive, "activate")
}

func (s *AccountService) Reject(ctx context.Context, accountID string) (commons.Response[AccountSummaryResponse], error) {
	return s.transition(ctx, accountID, domain.AccountStatusRejected, "reject")
}

func (s *AccountService) WithdrawApplication(ctx context.Context, accountID string) (commons.Response[AccountSummaryResponse], error) {
	return s.transition(ctx, accountID, domain.AccountStatusWithdrawnByApplicant, "withdraw application")
}

// BeginTransfer, HoldTransfer and ResumeTransfer track an in-flight account
// transfer. Transactions stay permitted throughout; only the status changes.

func (s *AccountService) BeginTransfer(ctx context.Context, accountID string) (commons.Response[AccountSummaryResponse], error) {
	return s.transition(ctx, accountID, domain.AccountStatusTransferInProgress, "begin transfer")
}

func (s *AccountService) HoldTransfer(ctx context.Context, accountID string) (commons.Response[AccountSummaryResponse], error) {
	return s.transition(ctx, accountID, domain.AccountStatusTransferOnHold, "hold transfer")
}

func (s *AccountService) ResumeTransfer(ctx context.Context, accountID string) (commons.Response[AccountSummaryResponse], error) {
	return s.transition(ctx, accountID, domain.AccountStatusActive, "resume transfer")
}

func (s *AccountService) transition(ctx context.Context, accountID string, to domain.AccountStatus, op string) (commons.Response[AccountSummaryResponse], error) {
	account, err := s.mutate(ctx, accountID, op, func(account *domain.Account) error {
		if err := account.Transition(to); err != nil {
			return err
		}
		if to == domain.AccountStatusActive {
			today := s.clk.Today()
			account.ActivatedOn = &today
		}
		return nil
	})
	if err != nil {
		return commons.ErrorResponse[AccountSummaryResponse]("failed to "+op+" account", err.Error()), err
	}

	return commons.SuccessResponse("account status updated successfully", summaryResponse(&account)), nil
}

func (s *AccountService) Deposit(ctx context.Context, req TransactionRequest) (commons.Response[TransactionResponse], error) {
	return s.appendCash(ctx, req, domain.TransactionTypeDeposit, "deposit")
}

func (s *AccountService) Withdraw(ctx context.Context, req TransactionRequest) (commons.Response[TransactionResponse], error) {
	return s.appendCash(ctx, req, domain.TransactionTypeWithdrawal, "withdraw")
}

// ApplyFee, ApplyPenalty and WaiveFee record externally computed charge effects.
// Charge configuration itself is resolved by a collaborator; only the monetary
// amount arrives here.

func (s *AccountService) ApplyFee(ctx context.Context, req TransactionRequest) (commons.Response[TransactionResponse], error) {
	return s.appendCash(ctx, req, domain.TransactionTypeFee, "apply fee")
}

func (s *AccountService) ApplyPenalty(ctx context.Context, req TransactionRequest) (commons.Response[TransactionResponse], error) {
	return s.appendCash(ctx, req, domain.TransactionTypePenalty, "apply penalty")
}

func (s *AccountService) WaiveFee(ctx context.Context, req TransactionRequest) (commons.Response[TransactionResponse], error) {
	return s.appendCash(ctx, req, domain.TransactionTypeFeeWaiver, "waive fee")
}

func (s *AccountService) appendCash(ctx context.Context, req TransactionRequest, txType domain.TransactionType, op string) (commons.Response[TransactionResponse], error) {
	logger.Info("account service "+op+" request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("account service "+op+" validation failed", err, nil)
		return commons.ErrorResponse[TransactionResponse]("validation failed", err.Error()), err
	}

	var created domain.Transaction
	account, err := s.mutate(ctx, req.AccountID, op, func(account *domain.Account) error {
		tx := domain.Transaction{
			ID:             uuid.NewString(),
			Type:           txType,
			Amount:         account.Currency.Round(req.Amount),
			Date:           req.Date,
			CreatedAt:      time.Now().UTC(),
			PaymentDetails: req.PaymentDetails,
		}
		if err := ledger.Append(account, tx, false); err != nil {
			return err
		}
		created = findTransaction(account, tx.ID)
		return nil
	})
	if err != nil {
		return commons.ErrorResponse[TransactionResponse]("failed to "+op, err.Error()), err
	}

	logger.Info("account service "+op+" success", logger.Fields{
		"accountId":     account.ID,
		"transactionId": created.ID,
		"amount":        created.Amount,
	})

	return commons.SuccessResponse("transaction recorded successfully", transactionResponse(account.ID, created)), nil
}

func (s *AccountService) HoldFunds(ctx context.Context, req HoldFundsRequest) (commons.Response[TransactionResponse], error) {
	logger.Info("account service hold funds request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("account service hold funds validation failed", err, nil)
		return commons.ErrorResponse[TransactionResponse]("validation failed", err.Error()), err
	}

	var created domain.Transaction
	account, err := s.mutate(ctx, req.AccountID, "hold funds", func(account *domain.Account) error {
		tx, err := ledger.Hold(account, uuid.NewString(), req.Amount, req.Date, time.Now().UTC())
		if err != nil {
			return err
		}
		created = tx
		return nil
	})
	if err != nil {
		return commons.ErrorResponse[TransactionResponse]("failed to hold funds", err.Error()), err
	}

	logger.Info("account service hold funds success", logger.Fields{
		"accountId":     account.ID,
		"transactionId": created.ID,
		"heldAmount":    account.HeldAmount,
	})

	return commons.SuccessResponse("funds held successfully", transactionResponse(account.ID, created)), nil
}

func (s *AccountService) ReleaseHold(ctx context.Context, accountID, holdTxID string) (commons.Response[TransactionResponse], error) {
	logger.Info("account service release hold request", logger.Fields{
		"accountId":     accountID,
		"transactionId": holdTxID,
	})

	var created domain.Transaction
	account, err := s.mutate(ctx, accountID, "release hold", func(account *domain.Account) error {
		tx, err := ledger.Release(account, uuid.NewString(), holdTxID, s.clk.Today(), time.Now().UTC())
		if err != nil {
			return err
		}
		created = tx
		return nil
	})
	if err != nil {
		return commons.ErrorResponse[TransactionResponse]("failed to release hold", err.Error()), err
	}

	logger.Info("account service release hold success", logger.Fields{
		"accountId":     account.ID,
		"transactionId": created.ID,
		"heldAmount":    account.HeldAmount,
	})

	return commons.SuccessResponse("hold released successfully", transactionResponse(account.ID, created)), nil
}

func (s *AccountService) ReverseTransaction(ctx context.Context, accountID, txID string) (commons.Response[TransactionResponse], error) {
	logger.Info("account service reverse transaction request", logger.Fields{
		"accountId":     accountID,
		"transactionId": txID,
	})

	var marker domain.Transaction
	account, err := s.mutate(ctx, accountID, "reverse transaction", func(account *domain.Account) error {
		created, err := ledger.Reverse(account, txID, uuid.NewString(), time.Now().UTC())
		if err != nil {
			return err
		}
		marker = created
		return nil
	})
	if err != nil {
		return commons.ErrorResponse[TransactionResponse]("failed to reverse transaction", err.Error()), err
	}

	logger.Info("account service reverse transaction success", logger.Fields{
		"accountId":     account.ID,
		"transactionId": txID,
		"markerId":      marker.ID,
	})

	return commons.SuccessResponse("transaction reversed successfully", transactionResponse(account.ID, marker)), nil
}

func (s *AccountService) AdjustTransaction(ctx context.Context, accountID, txID string, newAmount decimal.Decimal) (commons.Response[TransactionResponse], error) {
	logger.Info("account service adjust transaction request", logger.Fields{
		"accountId":     accountID,
		"transactionId": txID,
		"newAmount":     newAmount,
	})

	var replacement domain.Transaction
	account, err := s.mutate(ctx, accountID, "adjust transaction", func(account *domain.Account) error {
		created, err := ledger.Adjust(account, txID, account.Currency.Round(newAmount),
			uuid.NewString(), uuid.NewString(), time.Now().UTC())
		if err != nil {
			return err
		}
		replacement = created
		return nil
	})
	if err != nil {
		return commons.ErrorResponse[TransactionResponse]("failed to adjust transaction", err.Error()), err
	}

	logger.Info("account service adjust transaction success", logger.Fields{
		"accountId":     account.ID,
		"transactionId": txID,
		"replacementId": replacement.ID,
	})

	return commons.SuccessResponse("transaction adjusted successfully", transactionResponse(account.ID, replacement)), nil
}

// Close closes a zero-balance savings account. Term deposits close through
// PreClose or Mature on the deposit service.
func (s *AccountService) Close(ctx context.Context, accountID string) (commons.Response[AccountSummaryResponse], error) {
	account, err := s.mutate(ctx, accountID, "close", func(account *domain.Account) error {
		if account.IsTermDeposit() {
			return domain.NewValidationError("term deposit accounts close via pre-closure or maturity")
		}
		if !account.LedgerBalance().IsZero() {
			return domain.NewValidationError("account balance must be zero before closing, got %s", account.LedgerBalance())
		}
		if !account.HeldAmount.IsZero() {
			return domain.NewValidationError("held funds must be released before closing")
		}
		return account.Transition(domain.AccountStatusClosed)
	})
	if err != nil {
		return commons.ErrorResponse[AccountSummaryResponse]("failed to close account", err.Error()), err
	}

	return commons.SuccessResponse("account closed successfully", summaryResponse(&account)), nil
}

func (s *AccountService) GetAccountSummary(ctx context.Context, accountID string) (commons.Response[AccountSummaryResponse], error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		logger.Error("account service get summary failed", err, logger.Fields{
			"accountId": accountID,
		})
		return commons.ErrorResponse[AccountSummaryResponse]("failed to get account summary", "Unable to fetch account right now"), err
	}

	return commons.SuccessResponse("account summary fetched successfully", summaryResponse(&account)), nil
}

// BalanceAsOf returns the ledger balance effective on a date.
func (s *AccountService) BalanceAsOf(ctx context.Context, accountID string, date time.Time) (decimal.Decimal, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.BalanceAsOf(&account, date), nil
}

// mutate runs fn against the locked, freshly fetched account and saves the result.
// A failing fn aborts before any persistence; the stored account is untouched.
func (s *AccountService) mutate(ctx context.Context, accountID, op string, fn func(*domain.Account) error) (domain.Account, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		logger.Error("account service "+op+" account fetch failed", err, logger.Fields{
			"accountId": accountID,
		})
		return domain.Account{}, err
	}

	if err := fn(&account); err != nil {
		logger.Error("account service "+op+" failed", err, logger.Fields{
			"accountId": accountID,
		})
		return domain.Account{}, err
	}

	account.UpdatedAt = time.Now().UTC()
	saved, err := s.accountRepo.Save(ctx, account)
	if err != nil {
		logger.Error("account service "+op+" save failed", err, logger.Fields{
			"accountId": accountID,
		})
		return domain.Account{}, err
	}

	return saved, nil
}

func summaryResponse(account *domain.Account) AccountSummaryResponse {
	return AccountSummaryResponse{
		AccountID:        account.ID,
		AccountNumber:    account.AccountNumber,
		Currency:         account.Currency.Code,
		Kind:             string(account.Kind),
		Status:           string(account.Status),
		LedgerBalance:    account.LedgerBalance().String(),
		AvailableBalance: account.AvailableBalance().String(),
		HeldAmount:       account.HeldAmount.String(),

		TotalDeposits:          account.Summary.TotalDeposits.String(),
		TotalWithdrawals:       account.Summary.TotalWithdrawals.String(),
		TotalInterestPosted:    account.Summary.TotalInterestPosted.String(),
		TotalFeeCharge:         account.Summary.TotalFeeCharge.String(),
		TotalPenaltyCharge:     account.Summary.TotalPenaltyCharge.String(),
		TotalFeesWaived:        account.Summary.TotalFeesWaived.String(),
		TotalWithholdTax:       account.Summary.TotalWithholdTax.String(),
		TotalOverdraftInterest: account.Summary.TotalOverdraftInterest.String(),
	}
}

func findTransaction(account *domain.Account, id string) domain.Transaction {
	for _, tx := range account.Transactions {
		if tx.ID == id {
			return tx
		}
	}
	return domain.Transaction{}
}

func generateAccountNumber() string {
	id := uuid.New()
	digits := make([]byte, 0, 10)
	for _, b := range id {
		digits = append(digits, '0'+b%10)
		if len(digits) == 10 {
			break
		}
	}
	return string(digits)
}
