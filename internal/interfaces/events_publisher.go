package interfaces

import (
	"context"

	"github.com/brunomdev/crebito/internal/models/events"
)

// EventPublisher delivers durable-write events to the write-behind
// aggregator. Publishing is fire-and-forget from the serving path's
// point of view: failures are logged, never surfaced to the client.
type EventPublisher interface {
	Publish(ctx context.Context, event events.DurableWrite) error
}
