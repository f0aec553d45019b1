package repo_interfaces

import (
	"context"

	"github.com/api-sage/deposit-ledger/internal/domain"
)

// AccountRepository supplies fully hydrated accounts (transactions in stable
// ledger order, chart, term detail) and persists them back atomically. A re-fetch
// after Save must produce the identical transaction order.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) (domain.Account, error)
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByAccountNumber(ctx context.Context, accountNumber string) (domain.Account, error)
	Save(ctx context.Context, account domain.Account) (domain.Account, error)
	ListActiveIDs(ctx context.Context) ([]string, error)
}
