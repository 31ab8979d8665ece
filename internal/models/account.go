package models

import "time"

// Balance is the monetary position of an account. Total may go negative,
// but never below -Limit. Limit is set at seed time and immutable.
type Balance struct {
	Total       int64      `json:"total" msgpack:"total"`
	Limit       int64      `json:"limite" msgpack:"limite"`
	StatementAt *time.Time `json:"data_extrato,omitempty" msgpack:"data_extrato,omitempty"`
}

// AccountSnapshot is the full per-account value held by the cache
// authority: the balance plus the recent movements, most recent first,
// capped at MaxRecentEntries. Copies handed to callers are read-only
// mirrors and never authoritative.
type AccountSnapshot struct {
	Balance Balance       `json:"saldo" msgpack:"saldo"`
	Recent  []LedgerEntry `json:"ultimas_transacoes" msgpack:"ultimas_transacoes"`
}
