package services

import (
	"context"
	"testing"
	"time"

	"github.com/api-sage/deposit-ledger/internal/clock"
	"github.com/api-sage/deposit-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

func fixedDepositRequest() CreateAccountRequest {
	req := savingsRequest()
	req.Kind = domain.AccountKindFixedDeposit
	req.TermDetail = &domain.TermDetail{
		DepositAmount:     decimal.NewFromInt(1000),
		DepositPeriod:     1,
		DepositPeriodUnit: domain.PeriodUnitYears,
		OnMaturity:        domain.MaturityActionWithdraw,
	}
	return req
}

func createActiveFixedDeposit(t *testing.T, fixture *serviceFixture) string {
	t.Helper()
	ctx := context.Background()

	created, err := fixture.accounts.CreateAccount(ctx, fixedDepositRequest())
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
	return accountID
}

func TestComputeMaturityCachesProjection(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.January, 1))
	ctx := context.Background()
	accountID := createActiveFixedDeposit(t, fixture)

	resp, err := fixture.deposits.ComputeMaturity(ctx, accountID)
	if err != nil {
		t.Fatalf("compute maturity: %v", err)
	}

	if resp.Data.MaturityDate != "2024-01-01" {
		t.Fatalf("expected maturity 2024-01-01, got %s", resp.Data.MaturityDate)
	}
	if resp.Data.MaturityAmount != "1050" {
		t.Fatalf("expected maturity amount 1050, got %s", resp.Data.MaturityAmount)
	}
	if resp.Data.InterestPayable != "50" {
		t.Fatalf("expected interest payable 50, got %s", resp.Data.InterestPayable)
	}

	stored, err := fixture.repo.GetByID(ctx, accountID)
	if err != nil {
		t.Fatalf("get stored account: %v", err)
	}
	if !stored.TermDetail.MaturityAmount.Equal(decimal.NewFromInt(1050)) {
		t.Fatalf("projection must be cached on the term detail, got %s", stored.TermDetail.MaturityAmount)
	}
	if stored.TermDetail.MaturityDate == nil || !stored.TermDetail.MaturityDate.Equal(at(2024, time.January, 1)) {
		t.Fatalf("maturity date must be cached, got %v", stored.TermDetail.MaturityDate)
	}
}

func TestMatureRejectsEarlySettlement(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.January, 1))
	accountID := createActiveFixedDeposit(t, fixture)

	if _, err := fixture.deposits.Mature(context.Background(), accountID); err == nil {
		t.Fatal("expected error maturing before the maturity date")
	}
}

func TestMatureSettlesOutstandingInterest(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.January, 1))
	ctx := context.Background()
	accountID := createActiveFixedDeposit(t, fixture)

	// A separate service clocked past the maturity date settles the deposit.
	matured := NewDepositService(fixture.repo, clock.Fixed(at(2024, time.January, 1)), NewAccountLocks())

	resp, err := matured.Mature(ctx, accountID)
	if err != nil {
		t.Fatalf("mature: %v", err)
	}
	if resp.Data.MaturityAmount != "1050" {
		t.Fatalf("expected maturity amount 1050, got %s", resp.Data.MaturityAmount)
	}

	stored, err := fixture.repo.GetByID(ctx, accountID)
	if err != nil {
		t.Fatalf("get stored account: %v", err)
	}
	if stored.Status != domain.AccountStatusMatured {
		t.Fatalf("expected MATURED, got %s", stored.Status)
	}
	if !stored.Summary.TotalInterestPosted.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected 50 interest posted, got %s", stored.Summary.TotalInterestPosted)
	}
	if !stored.LedgerBalance().Equal(decimal.NewFromInt(1050)) {
		t.Fatalf("expected balance 1050, got %s", stored.LedgerBalance())
	}
}

func TestPreCloseSettlesWithFlatPenalty(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.July, 1))
	ctx := context.Background()

	req := fixedDepositRequest()
	req.TermDetail.PreClosurePenal = true
	req.TermDetail.PenaltyType = domain.PenaltyTypeFlat
	req.TermDetail.PenaltyFlatAmount = decimal.NewFromInt(10)
	req.TermDetail.AllowPrematureClose = true

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

	// Activation stamps July 1; interest accrues from there. Backdate the
	// funding to the activation date.
	mustDeposit(t, fixture, accountID, 1000, at(2023, time.July, 1))

	resp, err := fixture.deposits.PreClose(ctx, accountID, at(2024, time.January, 1))
	if err != nil {
		t.Fatalf("pre-close: %v", err)
	}

	// 184 accrual days July through December: 1000 * 5% * 184/365 = 25.21,
	// less the flat penalty of 10.
	if resp.Data.InterestPayable != "25.2054794520547945" {
		t.Fatalf("unexpected interest payable %s", resp.Data.InterestPayable)
	}
	if resp.Data.Penalty != "10" {
		t.Fatalf("expected penalty 10, got %s", resp.Data.Penalty)
	}
	if resp.Data.ClosureAmount != "1015.21" {
		t.Fatalf("expected closure amount 1015.21, got %s", resp.Data.ClosureAmount)
	}

	stored, err := fixture.repo.GetByID(ctx, accountID)
	if err != nil {
		t.Fatalf("get stored account: %v", err)
	}
	if stored.Status != domain.AccountStatusPreMatureClosure {
		t.Fatalf("expected PRE_MATURE_CLOSURE, got %s", stored.Status)
	}
	if !stored.LedgerBalance().IsZero() {
		t.Fatalf("proceeds must be withdrawn in full, got %s", stored.LedgerBalance())
	}
}

func TestPreCloseReportsWithdrawnProceeds(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.July, 1))
	ctx := context.Background()

	req := fixedDepositRequest()
	req.TermDetail.PreClosurePenal = true
	req.TermDetail.PenaltyType = domain.PenaltyTypeFlat
	req.TermDetail.PenaltyFlatAmount = decimal.NewFromInt(10)
	req.TermDetail.AllowPrematureClose = true

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

	// Fund the original 1000 at activation, then top up with 500 in October.
	mustDeposit(t, fixture, accountID, 1000, at(2023, time.July, 1))
	mustDeposit(t, fixture, accountID, 500, at(2023, time.October, 1))

	resp, err := fixture.deposits.PreClose(ctx, accountID, at(2024, time.January, 1))
	if err != nil {
		t.Fatalf("pre-close: %v", err)
	}

	// Interest runs 92 days on 1000 and 92 days on 1500, rounding to 31.51.
	// The reported closure amount is the full withdrawn balance, top-up
	// included: 1500 + 31.51 - 10.
	if resp.Data.ClosureAmount != "1521.51" {
		t.Fatalf("expected closure amount 1521.51, got %s", resp.Data.ClosureAmount)
	}

	stored, err := fixture.repo.GetByID(ctx, accountID)
	if err != nil {
		t.Fatalf("get stored account: %v", err)
	}
	if !stored.Summary.TotalInterestPosted.Equal(decimal.NewFromFloat(31.51)) {
		t.Fatalf("expected 31.51 interest posted, got %s", stored.Summary.TotalInterestPosted)
	}
	if !stored.LedgerBalance().IsZero() {
		t.Fatalf("proceeds must be withdrawn in full, got %s", stored.LedgerBalance())
	}
}

func TestPreCloseRejectsNonTermAccount(t *testing.T) {
	fixture := newServiceFixture(at(2023, time.January, 1))
	accountID := createActiveSavings(t, fixture)

	if _, err := fixture.deposits.PreClose(context.Background(), accountID, at(2023, time.June, 1)); err == nil {
		t.Fatal("expected error pre-closing a savings account")
	}
}
