// Package cachewire defines the message shapes exchanged between cache
// clients and the cache authority. Envelopes are msgpack-encoded and
// correlated by request id; a reply carries either a snapshot or an
// error code, never both.
package cachewire

import "github.com/brunomdev/crebito/internal/models"

// Queue names carried in requests.
const (
	QueueAdd   = "addToQueue"
	QueueClear = "clear"
)

// Operation types within an addToQueue request.
const (
	OpGet         = "get"
	OpPut         = "put"
	OpTransaction = "transaction"
)

// Error codes carried in replies.
const (
	ErrCodeNoLimit    = "no-limit"
	ErrCodeNotFound   = "not-found"
	ErrCodeBadRequest = "bad-request"
)

// Request is the client-to-authority envelope. Data is nil for clear.
type Request struct {
	Queue string     `msgpack:"queue"`
	ID    string     `msgpack:"id"`
	Data  *Operation `msgpack:"data,omitempty"`
}

// Operation describes one cache operation on a single account key.
// Snapshot is set for put, Tx for transaction.
type Operation struct {
	Type     string                   `msgpack:"type"`
	Key      int                      `msgpack:"key"`
	Snapshot *models.AccountSnapshot  `msgpack:"snapshot,omitempty"`
	Tx       *models.TransactionInput `msgpack:"tx,omitempty"`
}

// Reply is the authority-to-client envelope, matched to the request by
// ID. Found is false for a get on a cold key.
type Reply struct {
	ID       string                  `msgpack:"id"`
	Found    bool                    `msgpack:"found"`
	Snapshot *models.AccountSnapshot `msgpack:"snapshot,omitempty"`
	Error    string                  `msgpack:"error,omitempty"`
}
