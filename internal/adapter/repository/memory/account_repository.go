package memory

import (
	"context"
	"sync"

	"github.com/api-sage/deposit-ledger/internal/commons"
	"github.com/api-sage/deposit-ledger/internal/domain"
)

// AccountRepository is the in-memory implementation used by tests and by the
// posting runner's dry-run mode. Accounts are deep-copied on the way in and out
// so callers never share transaction slices with the store.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[string]domain.Account)}
}

func (r *AccountRepository) Create(_ context.Context, account domain.Account) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accounts[account.ID] = copyAccount(account)
	return account, nil
}

func (r *AccountRepository) GetByID(_ context.Context, id string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, commons.ErrRecordNotFound
	}
	return copyAccount(account), nil
}

func (r *AccountRepository) GetByAccountNumber(_ context.Context, accountNumber string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.accounts {
		if account.AccountNumber == accountNumber {
			return copyAccount(account), nil
		}
	}
	return domain.Account{}, commons.ErrRecordNotFound
}

func (r *AccountRepository) Save(_ context.Context, account domain.Account) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.ID]; !ok {
		return domain.Account{}, commons.ErrRecordNotFound
	}
	r.accounts[account.ID] = copyAccount(account)
	return account, nil
}

func (r *AccountRepository) ListActiveIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, account := range r.accounts {
		if account.Status.AllowsTransactions() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func copyAccount(account domain.Account) domain.Account {
	out := account

	out.Transactions = make([]domain.Transaction, len(account.Transactions))
	copy(out.Transactions, account.Transactions)

	out.Chart.Slabs = make([]domain.Slab, len(account.Chart.Slabs))
	copy(out.Chart.Slabs, account.Chart.Slabs)
	for i := range out.Chart.Slabs {
		if len(account.Chart.Slabs[i].Incentives) == 0 {
			continue
		}
		out.Chart.Slabs[i].Incentives = make([]domain.Incentive, len(account.Chart.Slabs[i].Incentives))
		copy(out.Chart.Slabs[i].Incentives, account.Chart.Slabs[i].Incentives)
	}

	if account.ClientAttributes != nil {
		out.ClientAttributes = make(map[domain.IncentiveAttribute]string, len(account.ClientAttributes))
		for k, v := range account.ClientAttributes {
			out.ClientAttributes[k] = v
		}
	}
	if account.TermDetail != nil {
		detail := *account.TermDetail
		out.TermDetail = &detail
	}
	if account.RecurringDetail != nil {
		detail := *account.RecurringDetail
		out.RecurringDetail = &detail
	}
	if account.LockedUntil != nil {
		t := *account.LockedUntil
		out.LockedUntil = &t
	}
	if account.ActivatedOn != nil {
		t := *account.ActivatedOn
		out.ActivatedOn = &t
	}

	return out
}
