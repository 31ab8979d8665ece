package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/brunomdev/crebito/internal/models/events"
)

// Sink receives decoded durable-write events. Satisfied by the
// aggregator.
type Sink interface {
	Enqueue(event events.DurableWrite)
}

// Consumer feeds the coordinator's aggregator from the durable-write
// topic. A consumer group of one keeps the coordinator the single
// serialized execution context.
type Consumer struct {
	reader *kafka.Reader
	sink   Sink
	log    zerolog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, sink Sink, log zerolog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 1 << 20,
			MaxWait:  250 * time.Millisecond,
		}),
		sink: sink,
		log:  log,
	}
}

// Run consumes until ctx is cancelled. Undecodable or foreign messages
// are logged and skipped, never retried.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		var envelope events.Message
		if err := json.Unmarshal(msg.Value, &envelope); err != nil {
			c.log.Warn().Err(err).Msg("skipping undecodable durable-write message")
			continue
		}
		if envelope.Type != events.TypeDurableWrite {
			c.log.Warn().Str("type", envelope.Type).Msg("skipping unexpected message type")
			continue
		}
		c.sink.Enqueue(envelope.Data)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
