// Package postgres implements the persistent ledger on PostgreSQL.
// Expected schema:
//
//	clientes   (id int primary key, limite bigint, saldo bigint)
//	transacoes (id bigserial, cliente_id int, valor bigint, tipo char(1),
//	            descricao varchar(10), realizada_em timestamptz)
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/brunomdev/crebito/internal/interfaces"
	"github.com/brunomdev/crebito/internal/models"
	"github.com/brunomdev/crebito/internal/models/events"
)

const connectRetryInterval = 2 * time.Second

// Open connects to the database, retrying until it answers a ping or
// ctx is cancelled. The database is typically still starting when the
// workers come up.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	for {
		if err := db.PingContext(ctx); err == nil {
			return db, nil
		}
		select {
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("database unreachable: %w", ctx.Err())
		case <-time.After(connectRetryInterval):
		}
	}
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FetchStatement(ctx context.Context, accountID int) (models.AccountSnapshot, error) {
	const balanceQuery = `SELECT saldo, limite FROM clientes WHERE id = $1`

	var snap models.AccountSnapshot
	err := s.db.QueryRowContext(ctx, balanceQuery, accountID).
		Scan(&snap.Balance.Total, &snap.Balance.Limit)
	if err == sql.ErrNoRows {
		return models.AccountSnapshot{}, models.ErrAccountNotFound
	}
	if err != nil {
		return models.AccountSnapshot{}, fmt.Errorf("fetch balance %d: %w", accountID, err)
	}

	const recentQuery = `SELECT valor, tipo, descricao, realizada_em
		FROM transacoes WHERE cliente_id = $1
		ORDER BY id DESC LIMIT 10`

	rows, err := s.db.QueryContext(ctx, recentQuery, accountID)
	if err != nil {
		return models.AccountSnapshot{}, fmt.Errorf("fetch recent %d: %w", accountID, err)
	}
	defer rows.Close()

	snap.Recent = []models.LedgerEntry{}
	for rows.Next() {
		var entry models.LedgerEntry
		if err := rows.Scan(&entry.Amount, &entry.Kind, &entry.Description, &entry.OccurredAt); err != nil {
			return models.AccountSnapshot{}, err
		}
		snap.Recent = append(snap.Recent, entry)
	}
	if err := rows.Err(); err != nil {
		return models.AccountSnapshot{}, err
	}
	return snap, nil
}

// ApplyBatch persists a batch of committed events in one transaction.
// The events already passed the authority's invariant check, so they
// are applied without revalidation.
func (s *Store) ApplyBatch(ctx context.Context, batch []events.DurableWrite) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO transacoes (cliente_id, valor, tipo, descricao, realizada_em)
		VALUES ($1, $2, $3, $4, now())`
	const updateQuery = `UPDATE clientes SET saldo = saldo + $1 WHERE id = $2`

	insert, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return err
	}
	defer insert.Close()
	update, err := tx.PrepareContext(ctx, updateQuery)
	if err != nil {
		return err
	}
	defer update.Close()

	for _, event := range batch {
		if _, err = insert.ExecContext(ctx, event.AccountID, event.Amount, event.Kind, event.Description); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		delta := event.Amount
		if event.Kind == models.KindDebit {
			delta = -delta
		}
		if _, err = update.ExecContext(ctx, delta, event.AccountID); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) ResetAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM transacoes`); err != nil {
		return fmt.Errorf("reset transacoes: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE clientes SET saldo = 0`); err != nil {
		return fmt.Errorf("reset saldos: %w", err)
	}
	return tx.Commit()
}

var _ interfaces.LedgerStore = (*Store)(nil)
