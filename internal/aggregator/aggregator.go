// Package aggregator decouples client-visible latency from persistent
// store latency: committed writes are queued and drained into the
// ledger in bounded batches.
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/brunomdev/crebito/internal/interfaces"
	"github.com/brunomdev/crebito/internal/models/events"
)

// DefaultBatchSize is the maximum number of events applied to the
// ledger in one round trip.
const DefaultBatchSize = 200

const applyTimeout = 10 * time.Second

// Aggregator runs the idle -> draining -> idle state machine. An event
// arriving while idle starts exactly one drain; arrivals during a drain
// only enqueue. A batch-apply failure is logged and the batch dropped:
// an accepted data-loss boundary, surfaced to operators, never to the
// originating request (which already completed).
type Aggregator struct {
	store     interfaces.LedgerStore
	log       zerolog.Logger
	batchSize int

	mu       sync.Mutex
	queue    []events.DurableWrite
	draining bool
}

func New(store interfaces.LedgerStore, batchSize int, log zerolog.Logger) *Aggregator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Aggregator{store: store, batchSize: batchSize, log: log}
}

// Enqueue adds one event and starts a drain if the aggregator is idle.
// Never blocks on storage.
func (a *Aggregator) Enqueue(event events.DurableWrite) {
	a.mu.Lock()
	a.queue = append(a.queue, event)
	if a.draining {
		a.mu.Unlock()
		return
	}
	a.draining = true
	a.mu.Unlock()

	go a.drain()
}

func (a *Aggregator) drain() {
	for {
		a.mu.Lock()
		if len(a.queue) == 0 {
			a.draining = false
			a.mu.Unlock()
			return
		}
		n := len(a.queue)
		if n > a.batchSize {
			n = a.batchSize
		}
		batch := make([]events.DurableWrite, n)
		copy(batch, a.queue[:n])
		a.queue = a.queue[n:]
		a.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
		err := a.store.ApplyBatch(ctx, batch)
		cancel()
		if err != nil {
			a.log.Error().Err(err).Int("batch_size", n).Msg("ledger batch apply failed, batch dropped")
		}
	}
}

// Idle reports whether the queue is empty and no drain is running.
func (a *Aggregator) Idle() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.draining && len(a.queue) == 0
}

// LocalPublisher is an in-process EventPublisher feeding the aggregator
// directly. Used by the standalone wiring, where worker and coordinator
// share a process.
type LocalPublisher struct {
	agg *Aggregator
}

func NewLocalPublisher(agg *Aggregator) LocalPublisher {
	return LocalPublisher{agg: agg}
}

func (p LocalPublisher) Publish(_ context.Context, event events.DurableWrite) error {
	p.agg.Enqueue(event)
	return nil
}

var _ interfaces.EventPublisher = LocalPublisher{}
