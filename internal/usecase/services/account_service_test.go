package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/api-sage/deposit-ledger/internal/adapter/repository/memory"
	"github.com/api-sage/deposit-ledger/internal/clock"
	"github.com/api-sage/deposit-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type serviceFixture struct {
	accounts *AccountService
	posting  *PostingService
	deposits *DepositService
	repo     *memory.AccountRepository
}

func newServiceFixture(today time.Time) *serviceFixture {
	repo := memory.NewAccountRepository()
	clk := clock.Fixed(today)
	locks := NewAccountLocks()
	return &serviceFixture{
		accounts: NewAccountService(repo, clk, locks),
		posting:  NewPostingService(repo, clk, locks),
		deposits: NewDepositService(repo, clk, locks),
		repo:     repo,
	}
}

func flatRateChart(annualRate int64) domain.RateChart {
	return domain.RateChart{
		ID:       1,
		Name:     "standard",
		FromDate: at(2020, time.January, 1),
		DayCount: domain.DayCount365,
		Slabs: []domain.Slab{{
			ID:         1,
			ChartID:    1,
			AmountFrom: decimal.Zero,
			FromDate:   at(2020, time.January, 1),
			AnnualRate: decimal.NewFromInt(annualRate),
		}},
	}
}

func savingsRequest() CreateAccountRequest {
	return CreateAccountRequest{
		CustomerID:           "cust-1",
		Currency:             "usd",
		CurrencyDigits:       2,
		Kind:                 domain.AccountKindSavings,
		PostingFrequency:     domain.PostingFrequencyAnnual,
		FiscalYearStartMonth: time.January,
		Chart:                flatRateChart(5),
	}
}

func createActiveSavings(t *testing.T, fixture *serviceFixture) string {
	t.Helper()
	ctx := context.Background()

	created, err := fixture.accounts.CreateAccount(ctx, savingsRequest())
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	accountID := created.Data.AccountID

	if _, err := fixture.accounts.Approve(ctx, accountID); err != nil {
		t.Fatalf("approve account: %v", err)
	}
	if _, err := fixture.accounts.Activate(ctx, accountID); err != nil {
		t.Fatalf("activate account: %v", err)
	}
	return accountID
}

func mustDeposit(t *testing.T, fixture *serviceFixture, accountID string, amount int64, date time.Time) TransactionResponse {
	t.Helper()
	resp, err := fixture.accounts.Deposit(context.Background(), TransactionRequest{
		AccountID: accountID,
		Amount:    decimal.NewFromInt(amount),
		Date:      date,
	})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	return *resp.Data
}

func TestCreateAccountOpeningWorkflow(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.January, 1))
	ctx := context.Background()

	created, err := fixture.accounts.CreateAccount(ctx, savingsRequest())
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if !created.Success {
		t.Fatalf("expected success response, got %+v", created)
	}
	if created.Data.Status != string(domain.AccountStatusSubmittedAndPendingApproval) {
		t.Fatalf("expected SUBMITTED_AND_PENDING_APPROVAL, got %s", created.Data.Status)
	}
	if created.Data.Currency != "USD" {
		t.Fatalf("currency must be upper-cased, got %s", created.Data.Currency)
	}
	if len(created.Data.AccountNumber) != 10 {
		t.Fatalf("expected a 10 digit account number, got %q", created.Data.AccountNumber)
	}

	if _, err := fixture.accounts.Approve(ctx, created.Data.AccountID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	activated, err := fixture.accounts.Activate(ctx, created.Data.AccountID)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if activated.Data.Status != string(domain.AccountStatusActive) {
		t.Fatalf("expected ACTIVE, got %s", activated.Data.Status)
	}

	stored, err := fixture.repo.GetByID(ctx, created.Data.AccountID)
	if err != nil {
		t.Fatalf("get stored account: %v", err)
	}
	if stored.ActivatedOn == nil || !stored.ActivatedOn.Equal(at(2023, time.January, 1)) {
		t.Fatalf("activation must stamp the interest calculation start, got %v", stored.ActivatedOn)
	}
}

func TestCreateAccountValidation(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.January, 1))
	ctx := context.Background()

	missingCustomer := savingsRequest()
	missingCustomer.CustomerID = "  "
	if _, err := fixture.accounts.CreateAccount(ctx, missingCustomer); err == nil {
		t.Error("expected error for missing customer id")
	}

	missingTermDetail := savingsRequest()
	missingTermDetail.Kind = domain.AccountKindFixedDeposit
	if _, err := fixture.accounts.CreateAccount(ctx, missingTermDetail); err == nil {
		t.Error("expected error for fixed deposit without term detail")
	}

	overlapping := savingsRequest()
	overlapping.Chart.Slabs = append(overlapping.Chart.Slabs, domain.Slab{
		ID:         2,
		ChartID:    1,
		AmountFrom: decimal.NewFromInt(100),
		FromDate:   at(2020, time.January, 1),
		AnnualRate: decimal.NewFromInt(6),
	})
	_, err := fixture.accounts.CreateAccount(ctx, overlapping)
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Errorf("expected validation error for overlapping slabs, got %v", err)
	}
}

func TestCreateAccountRejectsOffGridTerm(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.January, 1))

	req := savingsRequest()
	req.Kind = domain.AccountKindFixedDeposit
	req.TermDetail = &domain.TermDetail{
		DepositAmount:     decimal.NewFromInt(1000),
		DepositPeriod:     13,
		DepositPeriodUnit: domain.PeriodUnitMonths,
		MinTerm:           6,
		MinTermUnit:       domain.PeriodUnitMonths,
		InMultiplesOf:     3,
		InMultiplesOfUnit: domain.PeriodUnitMonths,
	}

	_, err := fixture.accounts.CreateAccount(context.Background(), req)

	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDepositAndWithdrawFlow(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.January, 1))
	ctx := context.Background()
	accountID := createActiveSavings(t, fixture)

	mustDeposit(t, fixture, accountID, 500, at(2023, time.January, 2))

	withdrawal, err := fixture.accounts.Withdraw(ctx, TransactionRequest{
		AccountID: accountID,
		Amount:    decimal.NewFromInt(200),
		Date:      at(2023, time.January, 3),
	})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if withdrawal.Data.RunningBalance != "300" {
		t.Fatalf("expected running balance 300, got %s", withdrawal.Data.RunningBalance)
	}

	_, err = fixture.accounts.Withdraw(ctx, TransactionRequest{
		AccountID: accountID,
		Amount:    decimal.NewFromInt(400),
		Date:      at(2023, time.January, 4),
	})
	var insufficient *domain.InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected insufficient funds error, got %v", err)
	}

	summary, err := fixture.accounts.GetAccountSummary(ctx, accountID)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if summary.Data.LedgerBalance != "300" {
		t.Fatalf("failed withdrawal must not change the balance, got %s", summary.Data.LedgerBalance)
	}
	if summary.Data.TotalDeposits != "500" || summary.Data.TotalWithdrawals != "200" {
		t.Fatalf("unexpected totals: %+v", summary.Data)
	}
}

func TestDepositRequiresActiveStatus(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.January, 1))
	ctx := context.Background()

	created, err := fixture.accounts.CreateAccount(ctx, savingsRequest())
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	_, err = fixture.accounts.Deposit(ctx, TransactionRequest{
		AccountID: created.Data.AccountID,
		Amount:    decimal.NewFromInt(100),
		Date:      at(2023, time.January, 2),
	})

	var transition *domain.InvalidStateTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected invalid state transition error, got %v", err)
	}
}

func TestHoldAndReleaseFlow(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.January, 5))
	ctx := context.Background()
	accountID := createActiveSavings(t, fixture)
	mustDeposit(t, fixture, accountID, 500, at(2023, time.January, 2))

	hold, err := fixture.accounts.HoldFunds(ctx, HoldFundsRequest{
		AccountID: accountID,
		Amount:    decimal.NewFromInt(200),
		Date:      at(2023, time.January, 3),
	})
	if err != nil {
		t.Fatalf("hold funds: %v", err)
	}

	summary, err := fixture.accounts.GetAccountSummary(ctx, accountID)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if summary.Data.LedgerBalance != "500" || summary.Data.AvailableBalance != "300" {
		t.Fatalf("hold must reduce available only: %+v", summary.Data)
	}

	_, err = fixture.accounts.Withdraw(ctx, TransactionRequest{
		AccountID: accountID,
		Amount:    decimal.NewFromInt(400),
		Date:      at(2023, time.January, 4),
	})
	var insufficient *domain.InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected insufficient funds while funds are held, got %v", err)
	}

	if _, err := fixture.accounts.ReleaseHold(ctx, accountID, hold.Data.ID); err != nil {
		t.Fatalf("release hold: %v", err)
	}

	released, err := fixture.accounts.GetAccountSummary(ctx, accountID)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if released.Data.AvailableBalance != "500" || released.Data.HeldAmount != "0" {
		t.Fatalf("release must restore available balance: %+v", released.Data)
	}
}

func TestReverseAndAdjustTransaction(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.January, 10))
	ctx := context.Background()
	accountID := createActiveSavings(t, fixture)

	first := mustDeposit(t, fixture, accountID, 100, at(2023, time.January, 2))
	second := mustDeposit(t, fixture, accountID, 50, at(2023, time.January, 5))

	if _, err := fixture.accounts.ReverseTransaction(ctx, accountID, first.ID); err != nil {
		t.Fatalf("reverse transaction: %v", err)
	}
	summary, err := fixture.accounts.GetAccountSummary(ctx, accountID)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if summary.Data.LedgerBalance != "50" {
		t.Fatalf("expected balance 50 after reversal, got %s", summary.Data.LedgerBalance)
	}

	adjusted, err := fixture.accounts.AdjustTransaction(ctx, accountID, second.ID, decimal.NewFromInt(80))
	if err != nil {
		t.Fatalf("adjust transaction: %v", err)
	}
	if adjusted.Data.Amount != "80" || adjusted.Data.Date != "2023-01-05" {
		t.Fatalf("replacement must keep the original date: %+v", adjusted.Data)
	}
	summary, err = fixture.accounts.GetAccountSummary(ctx, accountID)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if summary.Data.LedgerBalance != "80" {
		t.Fatalf("expected balance 80 after adjustment, got %s", summary.Data.LedgerBalance)
	}
}

func TestCloseRequiresZeroBalance(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.January, 5))
	ctx := context.Background()
	accountID := createActiveSavings(t, fixture)
	mustDeposit(t, fixture, accountID, 100, at(2023, time.January, 2))

	if _, err := fixture.accounts.Close(ctx, accountID); err == nil {
		t.Fatal("expected error closing an account with a balance")
	}

	if _, err := fixture.accounts.Withdraw(ctx, TransactionRequest{
		AccountID: accountID,
		Amount:    decimal.NewFromInt(100),
		Date:      at(2023, time.January, 3),
	}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	closed, err := fixture.accounts.Close(ctx, accountID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Data.Status != string(domain.AccountStatusClosed) {
		t.Fatalf("expected CLOSED, got %s", closed.Data.Status)
	}

	if _, err := fixture.accounts.Deposit(ctx, TransactionRequest{
		AccountID: accountID,
		Amount:    decimal.NewFromInt(10),
		Date:      at(2023, time.January, 4),
	}); err == nil {
		t.Fatal("expected error depositing into a closed account")
	}
}

func TestTransferSubStatesKeepTransactionsFlowing(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.January, 1))
	ctx := context.Background()
	accountID := createActiveSavings(t, fixture)

	began, err := fixture.accounts.BeginTransfer(ctx, accountID)
	if err != nil {
		t.Fatalf("begin transfer: %v", err)
	}
	if began.Data.Status != string(domain.AccountStatusTransferInProgress) {
		t.Fatalf("expected TRANSFER_IN_PROGRESS, got %s", began.Data.Status)
	}

	// Deposits keep working while the transfer is in flight.
	mustDeposit(t, fixture, accountID, 100, at(2023, time.January, 2))

	if _, err := fixture.accounts.HoldTransfer(ctx, accountID); err != nil {
		t.Fatalf("hold transfer: %v", err)
	}
	resumed, err := fixture.accounts.ResumeTransfer(ctx, accountID)
	if err != nil {
		t.Fatalf("resume transfer: %v", err)
	}
	if resumed.Data.Status != string(domain.AccountStatusActive) {
		t.Fatalf("expected ACTIVE, got %s", resumed.Data.Status)
	}
}

func TestBalanceAsOf(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.February, 1))
	ctx := context.Background()
	accountID := createActiveSavings(t, fixture)
	mustDeposit(t, fixture, accountID, 100, at(2023, time.January, 2))
	mustDeposit(t, fixture, accountID, 50, at(2023, time.January, 20))

	balance, err := fixture.accounts.BalanceAsOf(ctx, accountID, at(2023, time.January, 10))
	if err != nil {
		t.Fatalf("balance as of: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected 100, got %s", balance)
	}
}
