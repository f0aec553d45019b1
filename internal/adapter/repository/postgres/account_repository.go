package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/api-sage/deposit-ledger/internal/commons"
	"github.com/api-sage/deposit-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// AccountRepository hydrates and persists whole accounts: the account row, its
// chart with slabs and incentives, the term detail and the full transaction list
// in stable ledger order. Save runs in one database transaction; the per-account
// service lock serializes callers, the row lock guards against anything else.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Account{}, fmt.Errorf("begin create account: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	chartID, err := insertChart(ctx, tx, account.Chart)
	if err != nil {
		return domain.Account{}, err
	}
	account.Chart.ID = chartID

	attrs, err := json.Marshal(account.ClientAttributes)
	if err != nil {
		return domain.Account{}, fmt.Errorf("encode client attributes: %w", err)
	}

	const query = `
INSERT INTO accounts (
	id, account_number, customer_id, currency_code, currency_digits, kind, status,
	min_required_balance, overdraft_enabled, overdraft_limit, overdraft_rate,
	withhold_tax_percent, locked_until, immediate_interest_withdrawal,
	posting_frequency, fiscal_year_start_month, held_amount, client_attributes,
	chart_id, activated_on
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
RETURNING created_at, updated_at`

	if err := tx.QueryRowContext(
		ctx,
		query,
		account.ID,
		account.AccountNumber,
		account.CustomerID,
		account.Currency.Code,
		account.Currency.Digits,
		account.Kind,
		account.Status,
		account.MinRequiredBalance,
		account.OverdraftEnabled,
		account.OverdraftLimit,
		account.OverdraftRate,
		account.WithholdTaxPercent,
		account.LockedUntil,
		account.ImmediateInterestWithdrawal,
		account.PostingFrequency,
		int(account.FiscalYearStartMonth),
		account.HeldAmount,
		string(attrs),
		chartID,
		account.ActivatedOn,
	).Scan(&account.CreatedAt, &account.UpdatedAt); err != nil {
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	if account.TermDetail != nil {
		if err := upsertTermDetail(ctx, tx, account.ID, *account.TermDetail); err != nil {
			return domain.Account{}, err
		}
	}
	if account.RecurringDetail != nil {
		if err := upsertRecurringDetail(ctx, tx, account.ID, *account.RecurringDetail); err != nil {
			return domain.Account{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Account{}, fmt.Errorf("commit create account: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return r.get(ctx, "id", id)
}

func (r *AccountRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (domain.Account, error) {
	return r.get(ctx, "account_number", accountNumber)
}

func (r *AccountRepository) get(ctx context.Context, column, value string) (domain.Account, error) {
	query := fmt.Sprintf(`
SELECT id, account_number, customer_id, currency_code, currency_digits, kind, status,
	min_required_balance, overdraft_enabled, overdraft_limit, overdraft_rate,
	withhold_tax_percent, locked_until, immediate_interest_withdrawal,
	posting_frequency, fiscal_year_start_month, held_amount, client_attributes,
	chart_id, activated_on, created_at, updated_at
FROM accounts WHERE %s = $1`, column)

	var account domain.Account
	var fiscalMonth int
	var attrs string
	var chartID int64
	var lockedUntil, activatedOn sql.NullTime

	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&account.ID,
		&account.AccountNumber,
		&account.CustomerID,
		&account.Currency.Code,
		&account.Currency.Digits,
		&account.Kind,
		&account.Status,
		&account.MinRequiredBalance,
		&account.OverdraftEnabled,
		&account.OverdraftLimit,
		&account.OverdraftRate,
		&account.WithholdTaxPercent,
		&lockedUntil,
		&account.ImmediateInterestWithdrawal,
		&account.PostingFrequency,
		&fiscalMonth,
		&account.HeldAmount,
		&attrs,
		&chartID,
		&activatedOn,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, commons.ErrRecordNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}

	account.FiscalYearStartMonth = time.Month(fiscalMonth)
	if lockedUntil.Valid {
		t := lockedUntil.Time
		account.LockedUntil = &t
	}
	if activatedOn.Valid {
		t := activatedOn.Time
		account.ActivatedOn = &t
	}
	if attrs != "" {
		if err := json.Unmarshal([]byte(attrs), &account.ClientAttributes); err != nil {
			return domain.Account{}, fmt.Errorf("decode client attributes: %w", err)
		}
	}

	if account.Chart, err = loadChart(ctx, r.db, chartID); err != nil {
		return domain.Account{}, err
	}
	if account.TermDetail, err = loadTermDetail(ctx, r.db, account.ID); err != nil {
		return domain.Account{}, err
	}
	if account.RecurringDetail, err = loadRecurringDetail(ctx, r.db, account.ID); err != nil {
		return domain.Account{}, err
	}
	if account.Transactions, err = loadTransactions(ctx, r.db, account.ID); err != nil {
		return domain.Account{}, err
	}

	return account, nil
}

func (r *AccountRepository) Save(ctx context.Context, account domain.Account) (domain.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Account{}, fmt.Errorf("begin save account: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, account.ID); err != nil {
		return domain.Account{}, fmt.Errorf("lock account row: %w", err)
	}

	const query = `
UPDATE accounts SET
	status = $2,
	held_amount = $3,
	locked_until = $4,
	activated_on = $5,
	updated_at = $6
WHERE id = $1`

	if _, err := tx.ExecContext(ctx, query,
		account.ID,
		account.Status,
		account.HeldAmount,
		account.LockedUntil,
		account.ActivatedOn,
		account.UpdatedAt,
	); err != nil {
		return domain.Account{}, fmt.Errorf("save account: %w", err)
	}

	for _, txn := range account.Transactions {
		if err := upsertTransaction(ctx, tx, account.ID, txn); err != nil {
			return domain.Account{}, err
		}
	}

	if account.TermDetail != nil {
		if err := upsertTermDetail(ctx, tx, account.ID, *account.TermDetail); err != nil {
			return domain.Account{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Account{}, fmt.Errorf("commit save account: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	const query = `
SELECT id FROM accounts
WHERE status IN ('ACTIVE', 'TRANSFER_IN_PROGRESS', 'TRANSFER_ON_HOLD')
ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active accounts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account ids: %w", err)
	}

	return ids, nil
}

func upsertTransaction(ctx context.Context, tx *sql.Tx, accountID string, txn domain.Transaction) error {
	const query = `
INSERT INTO account_transactions (
	id, account_id, type, amount, effective_date, created_at, seq, reversed,
	original_tx_id, transfer_id, running_balance,
	payment_reference, receipt_number, check_number, routing_code
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (id) DO UPDATE SET
	reversed = EXCLUDED.reversed,
	running_balance = EXCLUDED.running_balance`

	var ref, receipt, check, routing string
	if txn.PaymentDetails != nil {
		ref = txn.PaymentDetails.PaymentReference
		receipt = txn.PaymentDetails.ReceiptNumber
		check = txn.PaymentDetails.CheckNumber
		routing = txn.PaymentDetails.RoutingCode
	}

	if _, err := tx.ExecContext(ctx, query,
		txn.ID,
		accountID,
		txn.Type,
		txn.Amount,
		txn.Date,
		txn.CreatedAt,
		txn.Seq,
		txn.Reversed,
		nullString(txn.OriginalTxID),
		nullString(txn.TransferID),
		txn.RunningBalance,
		ref,
		receipt,
		check,
		routing,
	); err != nil {
		return fmt.Errorf("upsert transaction %s: %w", txn.ID, err)
	}
	return nil
}

func loadTransactions(ctx context.Context, db *sql.DB, accountID string) ([]domain.Transaction, error) {
	const query = `
SELECT id, type, amount, effective_date, created_at, seq, reversed,
	original_tx_id, transfer_id, running_balance,
	payment_reference, receipt_number, check_number, routing_code
FROM account_transactions
WHERE account_id = $1
ORDER BY effective_date, created_at, seq`

	rows, err := db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var txn domain.Transaction
		var originalTxID, transferID sql.NullString
		var ref, receipt, check, routing string

		if err := rows.Scan(
			&txn.ID,
			&txn.Type,
			&txn.Amount,
			&txn.Date,
			&txn.CreatedAt,
			&txn.Seq,
			&txn.Reversed,
			&originalTxID,
			&transferID,
			&txn.RunningBalance,
			&ref,
			&receipt,
			&check,
			&routing,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		txn.OriginalTxID = originalTxID.String
		txn.TransferID = transferID.String
		if ref != "" || receipt != "" || check != "" || routing != "" {
			txn.PaymentDetails = &domain.PaymentDetails{
				PaymentReference: ref,
				ReceiptNumber:    receipt,
				CheckNumber:      check,
				RoutingCode:      routing,
			}
		}
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return out, nil
}

func insertChart(ctx context.Context, tx *sql.Tx, chart domain.RateChart) (int64, error) {
	var chartID int64
	if err := tx.QueryRowContext(ctx, `
INSERT INTO rate_charts (name, from_date, end_date, day_count)
VALUES ($1, $2, $3, $4)
RETURNING id`,
		chart.Name, chart.FromDate, chart.EndDate, chart.DayCount,
	).Scan(&chartID); err != nil {
		return 0, fmt.Errorf("insert chart: %w", err)
	}

	for i, slab := range chart.Slabs {
		var slabID int64
		if err := tx.QueryRowContext(ctx, `
INSERT INTO chart_slabs (chart_id, position, amount_from, amount_to, from_date, end_date, annual_rate)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`,
			chartID, i, slab.AmountFrom, decimalPtr(slab.AmountTo), slab.FromDate, slab.EndDate, slab.AnnualRate,
		).Scan(&slabID); err != nil {
			return 0, fmt.Errorf("insert slab: %w", err)
		}

		for j, incentive := range slab.Incentives {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO slab_incentives (slab_id, position, attribute, condition, value, type, amount)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				slabID, j, incentive.Attribute, incentive.Condition, incentive.Value, incentive.Type, incentive.Amount,
			); err != nil {
				return 0, fmt.Errorf("insert incentive: %w", err)
			}
		}
	}

	return chartID, nil
}

func loadChart(ctx context.Context, db *sql.DB, chartID int64) (domain.RateChart, error) {
	var chart domain.RateChart
	var endDate sql.NullTime

	err := db.QueryRowContext(ctx, `
SELECT id, name, from_date, end_date, day_count FROM rate_charts WHERE id = $1`, chartID).
		Scan(&chart.ID, &chart.Name, &chart.FromDate, &endDate, &chart.DayCount)
	if err != nil {
		return domain.RateChart{}, fmt.Errorf("load chart: %w", err)
	}
	if endDate.Valid {
		t := endDate.Time
		chart.EndDate = &t
	}

	rows, err := db.QueryContext(ctx, `
SELECT id, amount_from, amount_to, from_date, end_date, annual_rate
FROM chart_slabs WHERE chart_id = $1 ORDER BY position`, chartID)
	if err != nil {
		return domain.RateChart{}, fmt.Errorf("load slabs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var slab domain.Slab
		var amountTo decimal.NullDecimal
		var slabEnd sql.NullTime

		if err := rows.Scan(&slab.ID, &slab.AmountFrom, &amountTo, &slab.FromDate, &slabEnd, &slab.AnnualRate); err != nil {
			return domain.RateChart{}, fmt.Errorf("scan slab: %w", err)
		}
		slab.ChartID = chartID
		if amountTo.Valid {
			v := amountTo.Decimal
			slab.AmountTo = &v
		}
		if slabEnd.Valid {
			t := slabEnd.Time
			slab.EndDate = &t
		}

		if slab.Incentives, err = loadIncentives(ctx, db, slab.ID); err != nil {
			return domain.RateChart{}, err
		}
		chart.Slabs = append(chart.Slabs, slab)
	}
	if err := rows.Err(); err != nil {
		return domain.RateChart{}, fmt.Errorf("iterate slabs: %w", err)
	}

	return chart, nil
}

func loadIncentives(ctx context.Context, db *sql.DB, slabID int64) ([]domain.Incentive, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, attribute, condition, value, type, amount
FROM slab_incentives WHERE slab_id = $1 ORDER BY position`, slabID)
	if err != nil {
		return nil, fmt.Errorf("load incentives: %w", err)
	}
	defer rows.Close()

	var out []domain.Incentive
	for rows.Next() {
		var incentive domain.Incentive
		if err := rows.Scan(&incentive.ID, &incentive.Attribute, &incentive.Condition,
			&incentive.Value, &incentive.Type, &incentive.Amount); err != nil {
			return nil, fmt.Errorf("scan incentive: %w", err)
		}
		incentive.SlabID = slabID
		out = append(out, incentive)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incentives: %w", err)
	}

	return out, nil
}

func upsertTermDetail(ctx context.Context, tx *sql.Tx, accountID string, detail domain.TermDetail) error {
	const query = `
INSERT INTO term_details (
	account_id, deposit_amount, deposit_period, deposit_period_unit,
	min_term, min_term_unit, max_term, max_term_unit,
	in_multiples_of, in_multiples_of_unit,
	maturity_amount, maturity_date, on_maturity,
	pre_closure_penal, penalty_type, penalty_rate, penalty_flat_amount,
	allow_premature_close
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
ON CONFLICT (account_id) DO UPDATE SET
	maturity_amount = EXCLUDED.maturity_amount,
	maturity_date = EXCLUDED.maturity_date`

	if _, err := tx.ExecContext(ctx, query,
		accountID,
		detail.DepositAmount,
		detail.DepositPeriod,
		detail.DepositPeriodUnit,
		detail.MinTerm,
		detail.MinTermUnit,
		detail.MaxTerm,
		detail.MaxTermUnit,
		detail.InMultiplesOf,
		detail.InMultiplesOfUnit,
		detail.MaturityAmount,
		detail.MaturityDate,
		detail.OnMaturity,
		detail.PreClosurePenal,
		detail.PenaltyType,
		detail.PenaltyRate,
		detail.PenaltyFlatAmount,
		detail.AllowPrematureClose,
	); err != nil {
		return fmt.Errorf("upsert term detail: %w", err)
	}
	return nil
}

func loadTermDetail(ctx context.Context, db *sql.DB, accountID string) (*domain.TermDetail, error) {
	const query = `
SELECT deposit_amount, deposit_period, deposit_period_unit,
	min_term, min_term_unit, max_term, max_term_unit,
	in_multiples_of, in_multiples_of_unit,
	maturity_amount, maturity_date, on_maturity,
	pre_closure_penal, penalty_type, penalty_rate, penalty_flat_amount,
	allow_premature_close
FROM term_details WHERE account_id = $1`

	var detail domain.TermDetail
	var maturityDate sql.NullTime

	err := db.QueryRowContext(ctx, query, accountID).Scan(
		&detail.DepositAmount,
		&detail.DepositPeriod,
		&detail.DepositPeriodUnit,
		&detail.MinTerm,
		&detail.MinTermUnit,
		&detail.MaxTerm,
		&detail.MaxTermUnit,
		&detail.InMultiplesOf,
		&detail.InMultiplesOfUnit,
		&detail.MaturityAmount,
		&maturityDate,
		&detail.OnMaturity,
		&detail.PreClosurePenal,
		&detail.PenaltyType,
		&detail.PenaltyRate,
		&detail.PenaltyFlatAmount,
		&detail.AllowPrematureClose,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load term detail: %w", err)
	}

	if maturityDate.Valid {
		t := maturityDate.Time
		detail.MaturityDate = &t
	}
	return &detail, nil
}

func upsertRecurringDetail(ctx context.Context, tx *sql.Tx, accountID string, detail domain.RecurringDetail) error {
	const query = `
INSERT INTO recurring_details (account_id, mandatory_deposit, recurring_frequency, recurring_unit)
VALUES ($1, $2, $3, $4)
ON CONFLICT (account_id) DO NOTHING`

	if _, err := tx.ExecContext(ctx, query,
		accountID, detail.MandatoryDeposit, detail.RecurringFrequency, detail.RecurringUnit,
	); err != nil {
		return fmt.Errorf("upsert recurring detail: %w", err)
	}
	return nil
}

func loadRecurringDetail(ctx context.Context, db *sql.DB, accountID string) (*domain.RecurringDetail, error) {
	const query = `
SELECT mandatory_deposit, recurring_frequency, recurring_unit
FROM recurring_details WHERE account_id = $1`

	var detail domain.RecurringDetail
	err := db.QueryRowContext(ctx, query, accountID).Scan(
		&detail.MandatoryDeposit, &detail.RecurringFrequency, &detail.RecurringUnit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load recurring detail: %w", err)
	}
	return &detail, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func decimalPtr(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
