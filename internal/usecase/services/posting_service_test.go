package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/api-sage/deposit-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

func seedActiveSavings(t *testing.T, fixture *serviceFixture, account domain.Account) string {
	t.Helper()
	created, err := fixture.repo.Create(context.Background(), account)
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return created.ID
}

func monthlyLockedAccount(lockedUntil time.Time) domain.Account {
	activated := at(2023, time.January, 1)
	return domain.Account{
		ID:                   "locked-1",
		AccountNumber:        "0000000001",
		CustomerID:           "cust-1",
		Currency:             domain.Currency{Code: "USD", Digits: 2},
		Kind:                 domain.AccountKindSavings,
		Status:               domain.AccountStatusActive,
		PostingFrequency:     domain.PostingFrequencyMonthly,
		FiscalYearStartMonth: time.January,
		Chart:                flatRateChart(5),
		LockedUntil:          &lockedUntil,
		ActivatedOn:          &activated,
		Transactions: []domain.Transaction{{
			ID:             "seed-tx-1",
			Type:           domain.TransactionTypeDeposit,
			Amount:         decimal.NewFromInt(1000),
			Date:           activated,
			CreatedAt:      activated,
			Seq:            1,
			RunningBalance: decimal.NewFromInt(1000),
		}},
	}
}

func TestPostInterestAnnualWithTax(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.January, 1))
	ctx := context.Background()

	req := savingsRequest()
	req.WithholdTaxPercent = decimal.NewFromInt(10)
	created, err := fixture.accounts.CreateAccount(ctx, req)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	accountID := created.Data.AccountID
	if _, err := fixture.accounts.Approve(ctx, accountID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := fixture.accounts.Activate(ctx, accountID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	mustDeposit(t, fixture, accountID, 1000, at(2023, time.January, 1))

	resp, err := fixture.posting.PostInterestUpTo(ctx, accountID, at(2023, time.December, 31))
	if err != nil {
		t.Fatalf("post interest: %v", err)
	}

	// A full year at 5% over a 365-day denominator, taxed at 10%.
	if resp.Data.TotalPosted != "50" {
		t.Fatalf("expected total posted 50, got %s", resp.Data.TotalPosted)
	}
	if resp.Data.TotalTax != "5" {
		t.Fatalf("expected total tax 5, got %s", resp.Data.TotalTax)
	}
	if len(resp.Data.Transactions) != 2 {
		t.Fatalf("expected posting and tax transactions, got %d", len(resp.Data.Transactions))
	}

	summary, err := fixture.accounts.GetAccountSummary(ctx, accountID)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if summary.Data.LedgerBalance != "1045" {
		t.Fatalf("expected balance 1045, got %s", summary.Data.LedgerBalance)
	}
	if summary.Data.TotalInterestPosted != "50" || summary.Data.TotalWithholdTax != "5" {
		t.Fatalf("unexpected totals: %+v", summary.Data)
	}
}

func TestPostInterestSecondRunPostsNothing(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.January, 1))
	ctx := context.Background()
	accountID := createActiveSavings(t, fixture)
	mustDeposit(t, fixture, accountID, 1000, at(2023, time.January, 1))

	first, err := fixture.posting.PostInterestUpTo(ctx, accountID, at(2023, time.December, 31))
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Data.TotalPosted != "50" {
		t.Fatalf("expected 50 posted on the first run, got %s", first.Data.TotalPosted)
	}

	second, err := fixture.posting.PostInterestUpTo(ctx, accountID, at(2023, time.December, 31))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Data.TotalPosted != "0" || len(second.Data.Transactions) != 0 {
		t.Fatalf("re-running over a posted window must post nothing, got %+v", second.Data)
	}
}

func TestPostInterestDeferredWhileLocked(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.February, 1))
	ctx := context.Background()
	accountID := seedActiveSavings(t, fixture, monthlyLockedAccount(at(2023, time.June, 1)))

	resp, err := fixture.posting.PostInterestUpTo(ctx, accountID, at(2023, time.April, 30))
	if err != nil {
		t.Fatalf("post interest: %v", err)
	}

	if len(resp.Data.Transactions) != 0 {
		t.Fatalf("locked periods must not post, got %d transactions", len(resp.Data.Transactions))
	}
	if resp.Data.TotalPosted != "0" {
		t.Fatalf("expected nothing posted, got %s", resp.Data.TotalPosted)
	}
}

func TestPostInterestAfterLockExpiry(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.July, 1))
	ctx := context.Background()
	accountID := seedActiveSavings(t, fixture, monthlyLockedAccount(at(2023, time.June, 1)))

	resp, err := fixture.posting.PostInterestUpTo(ctx, accountID, at(2023, time.June, 30))
	if err != nil {
		t.Fatalf("post interest: %v", err)
	}

	if len(resp.Data.Transactions) != 6 {
		t.Fatalf("expected six monthly postings, got %d", len(resp.Data.Transactions))
	}
	wantDates := []string{"2023-01-31", "2023-02-28", "2023-03-31", "2023-04-30", "2023-05-31", "2023-06-30"}
	for i, tx := range resp.Data.Transactions {
		if tx.Date != wantDates[i] {
			t.Errorf("posting %d: expected date %s, got %s", i, wantDates[i], tx.Date)
		}
		if tx.Type != string(domain.TransactionTypeInterestPosting) {
			t.Errorf("posting %d: unexpected type %s", i, tx.Type)
		}
	}
}

func TestPostInterestChargesOverdraft(t *testing.T) {
	fixture := newServiceFixture(at(2024, time.January, 1))
	ctx := context.Background()

	activated := at(2023, time.January, 1)
	accountID := seedActiveSavings(t, fixture, domain.Account{
		ID:                   "od-1",
		AccountNumber:        "0000000002",
		CustomerID:           "cust-2",
		Currency:             domain.Currency{Code: "USD", Digits: 2},
		Kind:                 domain.AccountKindSavings,
		Status:               domain.AccountStatusActive,
		OverdraftEnabled:     true,
		OverdraftLimit:       decimal.NewFromInt(500),
		OverdraftRate:        decimal.NewFromInt(18),
		PostingFrequency:     domain.PostingFrequencyAnnual,
		FiscalYearStartMonth: time.January,
		Chart:                flatRateChart(5),
		ActivatedOn:          &activated,
		Transactions: []domain.Transaction{
			{
				ID:             "seed-tx-1",
				Type:           domain.TransactionTypeDeposit,
				Amount:         decimal.NewFromInt(100),
				Date:           activated,
				CreatedAt:      activated,
				Seq:            1,
				RunningBalance: decimal.NewFromInt(100),
			},
			{
				ID:             "seed-tx-2",
				Type:           domain.TransactionTypeWithdrawal,
				Amount:         decimal.NewFromInt(200),
				Date:           at(2023, time.February, 1),
				CreatedAt:      at(2023, time.February, 1),
				Seq:            2,
				RunningBalance: decimal.NewFromInt(-100),
			},
		},
	})

	resp, err := fixture.posting.PostInterestUpTo(ctx, accountID, at(2023, time.December, 31))
	if err != nil {
		t.Fatalf("post interest: %v", err)
	}

	// Credit interest on the positive January stretch only: 100 * 5% * 31/365.
	if resp.Data.TotalPosted != "0.42" {
		t.Fatalf("expected total posted 0.42, got %s", resp.Data.TotalPosted)
	}
	// Overdraft interest on the negative stretch: 100 * 18% * 334/365.
	if resp.Data.TotalOverdraft != "16.47" {
		t.Fatalf("expected total overdraft 16.47, got %s", resp.Data.TotalOverdraft)
	}
}

func TestPostInterestRequiresTransactableStatus(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.January, 1))
	ctx := context.Background()

	created, err := fixture.accounts.CreateAccount(ctx, savingsRequest())
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	_, err = fixture.posting.PostInterestUpTo(ctx, created.Data.AccountID, at(2023, time.December, 31))

	var transition *domain.InvalidStateTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected invalid state transition error, got %v", err)
	}
}

func TestPostInterestBeforeStartPostsNothing(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.June, 1))
	ctx := context.Background()
	accountID := createActiveSavings(t, fixture)

	resp, err := fixture.posting.PostInterestUpTo(ctx, accountID, at(2023, time.January, 1))
	if err != nil {
		t.Fatalf("post interest: %v", err)
	}
	if len(resp.Data.Transactions) != 0 {
		t.Fatalf("expected nothing posted, got %d transactions", len(resp.Data.Transactions))
	}
}
