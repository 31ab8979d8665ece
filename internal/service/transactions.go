package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/brunomdev/crebito/internal/interfaces"
	"github.com/brunomdev/crebito/internal/models"
	"github.com/brunomdev/crebito/internal/models/events"
)

// TransactionResult is the success body for a transaction submission.
type TransactionResult struct {
	Total int64 `json:"saldo"`
	Limit int64 `json:"limite"`
}

// TransactionService validates submissions and orchestrates their
// application: cache transaction first, durable-write event second.
// The serving path never waits on durable persistence.
type TransactionService struct {
	cache  interfaces.AccountCache
	events interfaces.EventPublisher
	log    zerolog.Logger
}

func NewTransactionService(cache interfaces.AccountCache, events interfaces.EventPublisher, log zerolog.Logger) *TransactionService {
	return &TransactionService{cache: cache, events: events, log: log}
}

// Submit applies one transaction to an account. On a limit-exceeded
// rejection no event is emitted and no state changes.
func (s *TransactionService) Submit(ctx context.Context, accountID int, body []byte) (TransactionResult, *Rejection) {
	input, rej := ParseTransaction(body)
	if rej != nil {
		return TransactionResult{}, rej
	}

	snap, err := s.cache.Transaction(ctx, accountID, input)
	switch {
	case errors.Is(err, models.ErrLimitExceeded):
		return TransactionResult{}, reject(422, MsgLimitExceeded)
	case errors.Is(err, models.ErrAccountNotFound):
		return TransactionResult{}, reject(404, MsgUnknownAccount)
	case err != nil:
		s.log.Error().Err(err).Int("account_id", accountID).Msg("cache transaction failed")
		return TransactionResult{}, reject(500, MsgInternal)
	}

	event := events.DurableWrite{
		AccountID:   accountID,
		Amount:      input.Amount,
		Kind:        input.Kind,
		Description: input.Description,
	}
	go func() {
		if err := s.events.Publish(context.WithoutCancel(ctx), event); err != nil {
			s.log.Error().Err(err).Int("account_id", accountID).Msg("durable-write publish failed")
		}
	}()

	return TransactionResult{Total: snap.Balance.Total, Limit: snap.Balance.Limit}, nil
}
