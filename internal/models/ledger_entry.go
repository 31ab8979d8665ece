package models

import "time"

// Transaction kinds as they appear on the wire and in storage.
const (
	KindCredit = "c"
	KindDebit  = "d"
)

// MaxRecentEntries caps the per-account recent movement list kept in cache.
const MaxRecentEntries = 10

// LedgerEntry represents a single applied movement on an account.
// The timestamp is assigned by the cache authority at apply time, never
// by the caller. Entries are immutable once created.
type LedgerEntry struct {
	Amount      int64     `json:"valor" msgpack:"valor"`
	Kind        string    `json:"tipo" msgpack:"tipo"`
	Description string    `json:"descricao" msgpack:"descricao"`
	OccurredAt  time.Time `json:"realizada_em" msgpack:"realizada_em"`
}
