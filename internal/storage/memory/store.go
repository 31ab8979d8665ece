// Package memory is an in-memory implementation of the persistent
// ledger, used by the standalone wiring and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brunomdev/crebito/internal/interfaces"
	"github.com/brunomdev/crebito/internal/models"
	"github.com/brunomdev/crebito/internal/models/events"
)

type account struct {
	limit   int64
	balance int64
	entries []models.LedgerEntry // newest first
}

// Store keeps the full ledger in memory. Thread-safe.
type Store struct {
	mu       sync.Mutex
	limits   map[int]int64
	accounts map[int]*account
}

// NewStore seeds one zero-balance account per configured limit.
func NewStore(limits map[int]int64) *Store {
	s := &Store{
		limits:   make(map[int]int64, len(limits)),
		accounts: make(map[int]*account, len(limits)),
	}
	for id, limit := range limits {
		s.limits[id] = limit
		s.accounts[id] = &account{limit: limit}
	}
	return s
}

func (s *Store) FetchStatement(_ context.Context, accountID int) (models.AccountSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[accountID]
	if !ok {
		return models.AccountSnapshot{}, models.ErrAccountNotFound
	}

	recent := acct.entries
	if len(recent) > models.MaxRecentEntries {
		recent = recent[:models.MaxRecentEntries]
	}
	snap := models.AccountSnapshot{
		Balance: models.Balance{Total: acct.balance, Limit: acct.limit},
		Recent:  make([]models.LedgerEntry, len(recent)),
	}
	copy(snap.Recent, recent)
	return snap, nil
}

func (s *Store) ApplyBatch(_ context.Context, batch []events.DurableWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, event := range batch {
		acct, ok := s.accounts[event.AccountID]
		if !ok {
			return fmt.Errorf("apply batch: %w: account %d", models.ErrAccountNotFound, event.AccountID)
		}
		if event.Kind == models.KindDebit {
			acct.balance -= event.Amount
		} else {
			acct.balance += event.Amount
		}
		acct.entries = append([]models.LedgerEntry{{
			Amount:      event.Amount,
			Kind:        event.Kind,
			Description: event.Description,
			OccurredAt:  now,
		}}, acct.entries...)
	}
	return nil
}

func (s *Store) ResetAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, limit := range s.limits {
		s.accounts[id] = &account{limit: limit}
	}
	return nil
}

var _ interfaces.LedgerStore = (*Store)(nil)
