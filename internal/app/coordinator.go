package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/brunomdev/crebito/internal/aggregator"
	"github.com/brunomdev/crebito/internal/config"
	"github.com/brunomdev/crebito/internal/events/kafka"
)

// RunCoordinator runs the write-behind aggregator: durable-write events
// consumed from the topic, batched, and drained into the ledger.
func RunCoordinator(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	agg := aggregator.New(store, cfg.BatchSize, log)
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, agg, log)
	defer consumer.Close()

	log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("coordinator consuming")
	return consumer.Run(ctx)
}
