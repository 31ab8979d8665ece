// Package bootstrap seeds the cache authority from the persistent
// ledger and runs the admin full-reset flow.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/brunomdev/crebito/internal/interfaces"
)

// Coordinator knows every account id (1..accounts) and how to move
// state between the ledger and the cache authority.
type Coordinator struct {
	cache    interfaces.AccountCache
	store    interfaces.LedgerStore
	accounts int
	log      zerolog.Logger
}

func NewCoordinator(cache interfaces.AccountCache, store interfaces.LedgerStore, accounts int, log zerolog.Logger) *Coordinator {
	return &Coordinator{cache: cache, store: store, accounts: accounts, log: log}
}

// Seed loads every known account from the ledger into the authority.
// Runs at process start and after a reset.
func (c *Coordinator) Seed(ctx context.Context) error {
	for id := 1; id <= c.accounts; id++ {
		snapshot, err := c.store.FetchStatement(ctx, id)
		if err != nil {
			return fmt.Errorf("seed account %d: %w", id, err)
		}
		if _, err := c.cache.Put(ctx, id, snapshot); err != nil {
			return fmt.Errorf("seed account %d: %w", id, err)
		}
	}
	c.log.Info().Int("accounts", c.accounts).Msg("cache seeded from ledger")
	return nil
}

// Reset clears the authority, wipes the ledger and reseeds. Atomic from
// the caller's point of view: the authority serializes the clear and
// the subsequent puts with any concurrent traffic.
func (c *Coordinator) Reset(ctx context.Context) error {
	if err := c.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	if err := c.store.ResetAll(ctx); err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}
	return c.Seed(ctx)
}
