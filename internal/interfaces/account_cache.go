package interfaces

import (
	"context"

	"github.com/brunomdev/crebito/internal/models"
)

// AccountCache exposes the cache authority's operations. All
// implementations route through the authority's single dispatch loop, so
// calls are processed strictly one at a time in arrival order across
// every caller process. The returned snapshots are the authority's
// replies; callers never compute balances locally.
type AccountCache interface {
	Get(ctx context.Context, accountID int) (models.AccountSnapshot, bool, error)
	Put(ctx context.Context, accountID int, snapshot models.AccountSnapshot) (models.AccountSnapshot, error)
	Transaction(ctx context.Context, accountID int, tx models.TransactionInput) (models.AccountSnapshot, error)
	Clear(ctx context.Context) error
}
