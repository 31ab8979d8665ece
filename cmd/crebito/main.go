package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/brunomdev/crebito/internal/app"
	"github.com/brunomdev/crebito/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "crebito",
		Short:        "Write-behind account balance service",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "path to TOML config file")
	root.PersistentFlags().String("env-file", "", "path to .env file")

	root.AddCommand(newServeCmd(), newCacheCmd(), newCoordinatorCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a worker: request ingress, services and cache client",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			return app.RunWorker(ctx, cfg, newLogger("worker"))
		},
	}
	cmd.Flags().String("listen", "", "ingress listen address")
	cmd.Flags().String("cache-endpoint", "", "cache authority endpoint to dial")
	cmd.Flags().Bool("standalone", false, "run authority and aggregator in-process over the memory store")
	return cmd
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Run the cache authority",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			return app.RunAuthority(ctx, cfg, newLogger("cache"))
		},
	}
	cmd.Flags().String("cache-bind", "", "endpoint to bind the authority socket on")
	return cmd
}

func newCoordinatorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "coordinator",
		Short: "Run the write-behind aggregator",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			return app.RunCoordinator(ctx, cfg, newLogger("coordinator"))
		},
	}
}

// loadConfig assembles the effective configuration: defaults, then the
// TOML file, then environment, then explicitly set flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if path, _ := cmd.Flags().GetString("env-file"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return config.Config{}, fmt.Errorf("load env file: %w", err)
		}
	} else {
		// A .env alongside the binary is optional.
		_ = godotenv.Load()
	}

	cfg := config.DefaultConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := config.LoadFile(path, &cfg); err != nil {
			return config.Config{}, err
		}
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return config.Config{}, err
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
	if changed["listen"] {
		cfg.ListenAddr, _ = cmd.Flags().GetString("listen")
	}
	if changed["cache-endpoint"] {
		cfg.CacheEndpoint, _ = cmd.Flags().GetString("cache-endpoint")
	}
	if changed["cache-bind"] {
		cfg.CacheBind, _ = cmd.Flags().GetString("cache-bind")
	}
	if changed["standalone"] {
		cfg.Standalone, _ = cmd.Flags().GetBool("standalone")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(role string) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("role", role).Logger()
}
