package events

// TypeDurableWrite tags the envelope of durable-write messages exchanged
// between workers and the coordinator.
const TypeDurableWrite = "db"

// DurableWrite is emitted once per accepted transaction and consumed by
// the write-behind aggregator. Delivery is at-least-once; the ledger
// apply is best-effort about the rare duplicate.
type DurableWrite struct {
	AccountID   int    `json:"account_id"`
	Amount      int64  `json:"valor"`
	Kind        string `json:"tipo"`
	Description string `json:"descricao"`
}

// Message is the wire envelope for durable-write events.
type Message struct {
	Type string       `json:"type"`
	Data DurableWrite `json:"data"`
}
