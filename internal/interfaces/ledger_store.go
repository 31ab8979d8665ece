package interfaces

import (
	"context"

	"github.com/brunomdev/crebito/internal/models"
	"github.com/brunomdev/crebito/internal/models/events"
)

// LedgerStore is the persistent ledger consumed as an external
// collaborator: a statement read, a bulk apply and a full reset.
type LedgerStore interface {
	FetchStatement(ctx context.Context, accountID int) (models.AccountSnapshot, error)
	ApplyBatch(ctx context.Context, batch []events.DurableWrite) error
	ResetAll(ctx context.Context) error
}
