// Package ledger maintains an account's ordered transaction sequence, running
// balances and held funds. Every mutation is prepared against a copy of the
// sequence, validated, and only then committed, so a failing operation leaves the
// account untouched.
package ledger

import (
	"time"

	"github.com/api-sage/deposit-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Append inserts a transaction at its sorted position, recomputes running balances
// from that point forward and refreshes the summary. Backdated transactions are
// permitted; ties on the ordering key land after existing entries. The append
// fails with InsufficientFundsError when any recomputed balance would fall below
// the account's floor (minimum required balance, or the negated overdraft limit
// when overdraft is enabled) or when held funds would exceed the new ledger
// balance.
func Append(account *domain.Account, tx domain.Transaction, allowClosure bool) error {
	if !account.Status.AllowsTransactions() && !allowClosure {
		return &domain.InvalidStateTransitionError{From: account.Status, Op: "append transaction"}
	}
	if tx.Amount.IsNegative() {
		return domain.NewValidationError("transaction amount must not be negative")
	}
	if !tx.AffectsLedgerBalance() {
		return domain.NewValidationError("transaction type %s cannot be appended directly", tx.Type)
	}

	candidate := cloneTransactions(account.Transactions)
	tx.Seq = nextSeq(candidate)
	candidate = insertSorted(candidate, tx)

	recomputeRunningBalances(candidate)

	if err := checkBalanceFloor(account, candidate, tx); err != nil {
		return err
	}
	if err := checkInvariants(account.HeldAmount, candidate); err != nil {
		return err
	}

	commit(account, candidate)
	return nil
}

// Reverse marks a transaction reversed, appends a reversal marker linked to it and
// recomputes every running balance. Reversing a hold releases the held funds;
// reversing a release re-holds them.
func Reverse(account *domain.Account, txID string, markerID string, createdAt time.Time) (domain.Transaction, error) {
	idx := indexOf(account.Transactions, txID)
	if idx < 0 {
		return domain.Transaction{}, domain.NewValidationError("transaction %s not found", txID)
	}
	original := account.Transactions[idx]
	if original.Reversed {
		return domain.Transaction{}, domain.NewValidationError("transaction %s is already reversed", txID)
	}
	if original.Type == domain.TransactionTypeReversal {
		return domain.Transaction{}, domain.NewValidationError("reversal markers cannot be reversed")
	}

	held := account.HeldAmount
	switch original.Type {
	case domain.TransactionTypeHold:
		held = held.Sub(original.Amount)
	case domain.TransactionTypeRelease:
		held = held.Add(original.Amount)
	}

	candidate := cloneTransactions(account.Transactions)
	candidate[idx].Reversed = true

	marker := domain.Transaction{
		ID:           markerID,
		Type:         domain.TransactionTypeReversal,
		Amount:       original.Amount,
		Date:         original.Date,
		CreatedAt:    createdAt,
		Seq:          nextSeq(candidate),
		OriginalTxID: original.ID,
	}
	candidate = insertSorted(candidate, marker)

	recomputeRunningBalances(candidate)

	if err := checkInvariants(held, candidate); err != nil {
		return domain.Transaction{}, err
	}

	account.HeldAmount = held
	commit(account, candidate)
	return marker, nil
}

// Adjust reverses a transaction and inserts a replacement with the corrected
// amount at the same effective date, linked to the original. The whole ledger is
// recomputed rather than patched.
func Adjust(account *domain.Account, txID string, newAmount decimal.Decimal, markerID, replacementID string, createdAt time.Time) (domain.Transaction, error) {
	if newAmount.LessThanOrEqual(decimal.Zero) {
		return domain.Transaction{}, domain.NewValidationError("adjusted amount must be positive")
	}

	idx := indexOf(account.Transactions, txID)
	if idx < 0 {
		return domain.Transaction{}, domain.NewValidationError("transaction %s not found", txID)
	}
	original := account.Transactions[idx]
	if original.Reversed {
		return domain.Transaction{}, domain.NewValidationError("transaction %s is already reversed", txID)
	}
	if !original.AffectsLedgerBalance() {
		return domain.Transaction{}, domain.NewValidationError("transaction type %s cannot be adjusted", original.Type)
	}

	candidate := cloneTransactions(account.Transactions)
	candidate[idx].Reversed = true

	marker := domain.Transaction{
		ID:           markerID,
		Type:         domain.TransactionTypeReversal,
		Amount:       original.Amount,
		Date:         original.Date,
		CreatedAt:    createdAt,
		Seq:          nextSeq(candidate),
		OriginalTxID: original.ID,
	}
	candidate = insertSorted(candidate, marker)

	replacement := domain.Transaction{
		ID:             replacementID,
		Type:           original.Type,
		Amount:         newAmount,
		Date:           original.Date,
		CreatedAt:      createdAt,
		Seq:            nextSeq(candidate),
		OriginalTxID:   original.ID,
		TransferID:     original.TransferID,
		PaymentDetails: original.PaymentDetails,
	}
	candidate = insertSorted(candidate, replacement)

	recomputeRunningBalances(candidate)

	if err := checkBalanceFloor(account, candidate, replacement); err != nil {
		return domain.Transaction{}, err
	}
	if err := checkInvariants(account.HeldAmount, candidate); err != nil {
		return domain.Transaction{}, err
	}

	commit(account, candidate)
	return replacement, nil
}

// Hold reserves funds against the account. Held funds reduce the available
// balance, never the ledger balance, and may never exceed it.
func Hold(account *domain.Account, id string, amount decimal.Decimal, date, createdAt time.Time) (domain.Transaction, error) {
	if !account.Status.AllowsTransactions() {
		return domain.Transaction{}, &domain.InvalidStateTransitionError{From: account.Status, Op: "hold funds"}
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.Transaction{}, domain.NewValidationError("hold amount must be positive")
	}

	available := account.LedgerBalance().Sub(account.HeldAmount)
	if amount.GreaterThan(available) {
		return domain.Transaction{}, &domain.InsufficientFundsError{Requested: amount, Available: available}
	}

	tx := domain.Transaction{
		ID:        id,
		Type:      domain.TransactionTypeHold,
		Amount:    amount,
		Date:      date,
		CreatedAt: createdAt,
		Seq:       nextSeq(account.Transactions),
	}
	candidate := insertSorted(cloneTransactions(account.Transactions), tx)
	recomputeRunningBalances(candidate)

	account.HeldAmount = account.HeldAmount.Add(amount)
	commit(account, candidate)
	return tx, nil
}

// Release releases a previously held amount. The release transaction links back
// to the hold it releases.
func Release(account *domain.Account, id, holdTxID string, date, createdAt time.Time) (domain.Transaction, error) {
	idx := indexOf(account.Transactions, holdTxID)
	if idx < 0 {
		return domain.Transaction{}, domain.NewValidationError("hold transaction %s not found", holdTxID)
	}
	hold := account.Transactions[idx]
	if hold.Type != domain.TransactionTypeHold {
		return domain.Transaction{}, domain.NewValidationError("transaction %s is not a hold", holdTxID)
	}
	if hold.Reversed {
		return domain.Transaction{}, domain.NewValidationError("hold %s is reversed", holdTxID)
	}
	for _, tx := range account.Transactions {
		if tx.Type == domain.TransactionTypeRelease && tx.OriginalTxID == holdTxID && !tx.Reversed {
			return domain.Transaction{}, domain.NewValidationError("hold %s is already released", holdTxID)
		}
	}

	held := account.HeldAmount.Sub(hold.Amount)
	if held.IsNegative() {
		return domain.Transaction{}, &domain.InconsistentLedgerError{Reason: "release would drive held funds negative"}
	}

	tx := domain.Transaction{
		ID:           id,
		Type:         domain.TransactionTypeRelease,
		Amount:       hold.Amount,
		Date:         date,
		CreatedAt:    createdAt,
		Seq:          nextSeq(account.Transactions),
		OriginalTxID: holdTxID,
	}
	candidate := insertSorted(cloneTransactions(account.Transactions), tx)
	recomputeRunningBalances(candidate)

	account.HeldAmount = held
	commit(account, candidate)
	return tx, nil
}

// RecomputeRunningBalances rebuilds every running balance and the cached summary
// in one ordered walk.
func RecomputeRunningBalances(account *domain.Account) {
	recomputeRunningBalances(account.Transactions)
	account.Summary = Summarize(account.Transactions)
}

// BalanceAsOf returns the ledger balance effective at end of day on the given
// date, by full scan of the ordered history.
func BalanceAsOf(account *domain.Account, date time.Time) decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range account.Transactions {
		if tx.Date.After(date) {
			break
		}
		if tx.Reversed || !tx.AffectsLedgerBalance() {
			continue
		}
		balance = tx.RunningBalance
	}
	return balance
}

func recomputeRunningBalances(transactions []domain.Transaction) {
	running := decimal.Zero
	for i := range transactions {
		if !transactions[i].Reversed && transactions[i].AffectsLedgerBalance() {
			running = running.Add(transactions[i].SignedAmount())
		}
		transactions[i].RunningBalance = running
	}
}

func checkBalanceFloor(account *domain.Account, candidate []domain.Transaction, inserted domain.Transaction) error {
	floor := account.MinRequiredBalance
	if account.OverdraftEnabled {
		floor = account.OverdraftLimit.Neg()
	}

	for _, tx := range candidate {
		if tx.Reversed || !tx.AffectsLedgerBalance() {
			continue
		}
		if tx.Date.Before(inserted.Date) {
			continue
		}
		if tx.RunningBalance.LessThan(floor) {
			available := account.LedgerBalance().Sub(account.HeldAmount).Sub(floor)
			return &domain.InsufficientFundsError{Requested: inserted.Amount, Available: available}
		}
	}
	return nil
}

func checkInvariants(held decimal.Decimal, candidate []domain.Transaction) error {
	if held.IsNegative() {
		return &domain.InconsistentLedgerError{Reason: "held funds are negative"}
	}

	final := decimal.Zero
	for _, tx := range candidate {
		if tx.Reversed || !tx.AffectsLedgerBalance() {
			continue
		}
		final = tx.RunningBalance
	}
	if held.GreaterThan(final) {
		return &domain.InsufficientFundsError{Requested: held, Available: final}
	}
	return nil
}

func commit(account *domain.Account, transactions []domain.Transaction) {
	account.Transactions = transactions
	account.Summary = Summarize(transactions)
}

func cloneTransactions(transactions []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(transactions))
	copy(out, transactions)
	return out
}

func insertSorted(transactions []domain.Transaction, tx domain.Transaction) []domain.Transaction {
	pos := len(transactions)
	for i, existing := range transactions {
		if tx.OrderedBefore(existing) {
			pos = i
			break
		}
	}

	transactions = append(transactions, domain.Transaction{})
	copy(transactions[pos+1:], transactions[pos:])
	transactions[pos] = tx
	return transactions
}

func indexOf(transactions []domain.Transaction, id string) int {
	for i := range transactions {
		if transactions[i].ID == id {
			return i
		}
	}
	return -1
}

func nextSeq(transactions []domain.Transaction) int64 {
	var max int64
	for _, tx := range transactions {
		if tx.Seq > max {
			max = tx.Seq
		}
	}
	return max + 1
}
