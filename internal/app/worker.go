// Package app composes the process roles: worker, cache authority and
// coordinator.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/brunomdev/crebito/internal/aggregator"
	"github.com/brunomdev/crebito/internal/bootstrap"
	"github.com/brunomdev/crebito/internal/cache/authority"
	"github.com/brunomdev/crebito/internal/cache/client"
	"github.com/brunomdev/crebito/internal/config"
	"github.com/brunomdev/crebito/internal/events/kafka"
	"github.com/brunomdev/crebito/internal/ingress"
	"github.com/brunomdev/crebito/internal/interfaces"
	"github.com/brunomdev/crebito/internal/service"
	"github.com/brunomdev/crebito/internal/storage/memory"
	"github.com/brunomdev/crebito/internal/storage/postgres"
)

// RunWorker serves the request pipeline: ingress, services, cache
// client and durable-write publisher. In standalone mode the authority
// and the aggregator run in-process over the memory store.
func RunWorker(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var cache interfaces.AccountCache
	var publisher interfaces.EventPublisher

	if cfg.Standalone {
		state := authority.NewState()
		dispatcher := authority.NewDispatcher(state)
		go dispatcher.Run(ctx)
		cache = dispatcher

		agg := aggregator.New(store, cfg.BatchSize, log)
		publisher = aggregator.NewLocalPublisher(agg)
		log.Info().Msg("standalone mode: in-process authority and aggregator")
	} else {
		cl, err := client.Dial(cfg.CacheEndpoint,
			client.WithTimeout(cfg.CacheTimeout),
			client.WithLogger(log))
		if err != nil {
			return err
		}
		defer cl.Close()
		cache = cl

		pub := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer pub.Close()
		publisher = pub
	}

	boot := bootstrap.NewCoordinator(cache, store, cfg.Accounts, log)
	if err := boot.Seed(ctx); err != nil {
		return fmt.Errorf("seed cache: %w", err)
	}

	transactions := service.NewTransactionService(cache, publisher, log)
	statements := service.NewStatementService(cache, store, log)
	router := ingress.NewRouter(cfg.Accounts, transactions, statements, boot, log)

	server := ingress.NewServer(router.Handle, log)
	if err := server.Listen(cfg.ListenAddr); err != nil {
		return err
	}
	log.Info().Str("addr", server.Addr().String()).Msg("worker listening")
	return server.Serve(ctx)
}

func openStore(ctx context.Context, cfg config.Config) (interfaces.LedgerStore, func(), error) {
	driver := cfg.StorageDriver
	if cfg.Standalone {
		driver = config.DriverMemory
	}
	switch driver {
	case config.DriverMemory:
		return memory.NewStore(cfg.AccountLimits()), func() {}, nil
	case config.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("database URL is required for the postgres driver")
		}
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewStore(db), func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
