package main

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/api-sage/deposit-ledger/internal/adapter/repository/postgres"
	"github.com/api-sage/deposit-ledger/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/deposit-ledger/internal/clock"
	"github.com/api-sage/deposit-ledger/internal/config"
	"github.com/api-sage/deposit-ledger/internal/domain"
	"github.com/api-sage/deposit-ledger/internal/usecase/services"
	"golang.org/x/sync/errgroup"
)

// postingd posts accrued interest for every active account up to the current
// date. Accounts run in parallel up to the configured limit; the shared lock
// registry guarantees no two posting operations touch the same account at once.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := postgres.RunMigrations(ctx, cfg.DatabaseDSN, cfg.MigrationsDir); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	db, err := postgres.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	var accountRepo repo_interfaces.AccountRepository = postgres.NewAccountRepository(db)
	if cfg.DryRun {
		log.Println("dry run: postings will be computed but not persisted")
		accountRepo = dryRunRepository{accountRepo}
	}

	clk := clock.System()
	posting := services.NewPostingService(accountRepo, clk, services.NewAccountLocks())

	ids, err := accountRepo.ListActiveIDs(ctx)
	if err != nil {
		log.Fatalf("list active accounts: %v", err)
	}

	today := clk.Today()
	var posted, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.PostingParallelism)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			if _, err := posting.PostInterestUpTo(gctx, id, today); err != nil {
				failed.Add(1)
				log.Printf("post interest for account %s: %v", id, err)
				return nil
			}
			posted.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("posting run aborted: %v", err)
	}

	log.Printf("posting run complete: %d accounts posted, %d failed, up to %s",
		posted.Load(), failed.Load(), today.Format(time.DateOnly))
}

// dryRunRepository swallows writes so a run can be rehearsed against live data.
type dryRunRepository struct {
	repo_interfaces.AccountRepository
}

func (r dryRunRepository) Save(_ context.Context, account domain.Account) (domain.Account, error) {
	return account, nil
}
