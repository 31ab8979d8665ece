package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/brunomdev/crebito/internal/cache/authority"
	"github.com/brunomdev/crebito/internal/config"
)

// RunAuthority serves the cache authority: one dispatch goroutine
// owning all account state behind a ZeroMQ ROUTER endpoint.
func RunAuthority(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	state := authority.NewState()
	dispatcher := authority.NewDispatcher(state)
	go dispatcher.Run(ctx)

	server := authority.NewServer(cfg.CacheBind, dispatcher, log)
	return server.Run(ctx)
}
