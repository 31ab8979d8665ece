// Package authority implements the single owner of canonical account
// state. A State instance is only ever touched by one Dispatcher
// goroutine; the balance invariant (total >= -limit) is enforced here
// and nowhere else.
package authority

import (
	"fmt"
	"time"

	"github.com/brunomdev/crebito/internal/models"
)

// State holds the canonical per-account snapshots. It is not safe for
// concurrent use; all access goes through a Dispatcher.
type State struct {
	accounts map[int]models.AccountSnapshot
}

func NewState() *State {
	return &State{accounts: make(map[int]models.AccountSnapshot)}
}

// Get returns the current snapshot for an account, if present.
func (s *State) Get(accountID int) (models.AccountSnapshot, bool) {
	snap, ok := s.accounts[accountID]
	return snap, ok
}

// Put unconditionally overwrites the stored snapshot and returns it.
// Used only by seeding and the admin reset flow.
func (s *State) Put(accountID int, snapshot models.AccountSnapshot) models.AccountSnapshot {
	snapshot.Balance.StatementAt = nil
	s.accounts[accountID] = snapshot
	return snapshot
}

// Transaction applies a debit or credit. A debit that would push the
// balance below -limit is rejected with models.ErrLimitExceeded and
// leaves the stored snapshot untouched. On success the entry is
// prepended to the recent list, which is truncated to
// models.MaxRecentEntries.
func (s *State) Transaction(accountID int, tx models.TransactionInput, occurredAt time.Time) (models.AccountSnapshot, error) {
	snap, ok := s.accounts[accountID]
	if !ok {
		return models.AccountSnapshot{}, models.ErrAccountNotFound
	}

	total := snap.Balance.Total
	switch tx.Kind {
	case models.KindDebit:
		if total-tx.Amount < -snap.Balance.Limit {
			return models.AccountSnapshot{}, models.ErrLimitExceeded
		}
		total -= tx.Amount
	case models.KindCredit:
		total += tx.Amount
	default:
		return models.AccountSnapshot{}, fmt.Errorf("unknown transaction kind %q", tx.Kind)
	}

	prev := snap.Recent
	if len(prev) > models.MaxRecentEntries-1 {
		prev = prev[:models.MaxRecentEntries-1]
	}
	recent := make([]models.LedgerEntry, 0, len(prev)+1)
	recent = append(recent, models.LedgerEntry{
		Amount:      tx.Amount,
		Kind:        tx.Kind,
		Description: tx.Description,
		OccurredAt:  occurredAt,
	})
	recent = append(recent, prev...)

	snap.Balance.Total = total
	snap.Recent = recent
	s.accounts[accountID] = snap
	return snap, nil
}

// Clear wipes all account state. Reseeding is the bootstrap
// coordinator's job, invoked right after.
func (s *State) Clear() {
	s.accounts = make(map[int]models.AccountSnapshot)
}
