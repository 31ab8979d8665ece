package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/brunomdev/crebito/internal/interfaces"
	"github.com/brunomdev/crebito/internal/models"
)

// StatementService serves account statements from the cache, falling
// back to the persistent ledger on a cold cache. The populate-on-miss
// Put goes through the authority, so it cannot race with concurrent
// transactions on the same account.
type StatementService struct {
	cache interfaces.AccountCache
	store interfaces.LedgerStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewStatementService(cache interfaces.AccountCache, store interfaces.LedgerStore, log zerolog.Logger) *StatementService {
	return &StatementService{cache: cache, store: store, log: log, now: time.Now}
}

// Statement returns the account snapshot stamped with a fresh
// statement-generated-at timestamp.
func (s *StatementService) Statement(ctx context.Context, accountID int) (models.AccountSnapshot, *Rejection) {
	snap, found, err := s.cache.Get(ctx, accountID)
	if err != nil {
		s.log.Error().Err(err).Int("account_id", accountID).Msg("cache get failed")
		return models.AccountSnapshot{}, reject(500, MsgInternal)
	}

	if !found {
		fresh, err := s.store.FetchStatement(ctx, accountID)
		if errors.Is(err, models.ErrAccountNotFound) {
			return models.AccountSnapshot{}, reject(404, MsgUnknownAccount)
		}
		if err != nil {
			s.log.Error().Err(err).Int("account_id", accountID).Msg("ledger statement read failed")
			return models.AccountSnapshot{}, reject(500, MsgInternal)
		}
		snap, err = s.cache.Put(ctx, accountID, fresh)
		if err != nil {
			s.log.Error().Err(err).Int("account_id", accountID).Msg("cache populate failed")
			return models.AccountSnapshot{}, reject(500, MsgInternal)
		}
	}

	stamp := s.now().UTC()
	snap.Balance.StatementAt = &stamp
	return snap, nil
}
