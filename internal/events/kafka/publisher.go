// Package kafka carries durable-write events from the workers to the
// coordinator over a topic: an ordered point-to-multipoint channel.
// Delivery is at-least-once; the ledger apply tolerates the rare
// duplicate as best-effort.
package kafka

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/brunomdev/crebito/internal/interfaces"
	"github.com/brunomdev/crebito/internal/models/events"
)

// Publisher writes durable-write envelopes, keyed by account id so one
// account's events land on a single partition. Workers publish off the
// request path, so ordering across requests is best effort; ledger
// applies commute either way.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, event events.DurableWrite) error {
	data, err := json.Marshal(events.Message{Type: events.TypeDurableWrite, Data: event})
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.Itoa(event.AccountID)),
		Value: data,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
