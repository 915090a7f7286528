package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/defistate/pool-factory-go/config"
	"github.com/defistate/pool-factory-go/internal/logging"
	"github.com/defistate/pool-factory-go/pool"
	poolfactory "github.com/defistate/pool-factory-go/protocols/poolfactory"
	"github.com/defistate/pool-factory-go/storage/sqlite"
	"github.com/defistate/pool-factory-go/streams/jsonrpc/server"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the registry and serve it over JSON-RPC (HTTP and WebSocket)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	rootLogger, err := logging.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	// Create a context that cancels when the OS sends an interrupt (Ctrl+C) or termination signal.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prometheusRegistry := prometheus.NewRegistry()
	prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	backend, err := pool.NewBackend(&pool.Config{
		Factory:      cfg.Pool.Deployer,
		InitCodeHash: cfg.Pool.InitCodeHash,
		Logger:       rootLogger.With("component", "pool-backend"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize pool backend: %w", err)
	}

	factoryCfg := &poolfactory.Config{
		Owner:             cfg.Factory.Owner,
		FeeTo:             cfg.Factory.FeeTo,
		Sweeper:           cfg.Factory.Sweeper,
		OwnerOnlyCreation: cfg.Factory.OwnerOnlyCreation,
		Backend:           backend,
		Logger:            rootLogger.With("component", "factory"),
		Registry:          prometheusRegistry,
	}

	var factory *poolfactory.Factory
	if cfg.Storage.Path == "" {
		rootLogger.Warn("No storage path configured, registry is not persisted")
		factory, err = poolfactory.NewFactory(factoryCfg)
	} else {
		var store *sqlite.Store
		store, err = sqlite.Open(ctx, cfg.Storage.Path, rootLogger.With("component", "storage"))
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer store.Close()
		factoryCfg.Journal = store
		factory, err = restoreFactory(ctx, store, backend, factoryCfg, rootLogger)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize factory: %w", err)
	}

	rpcServer, err := server.NewServer(server.Config{
		Registry:       factory,
		Logger:         rootLogger.With("component", "jsonrpc-server"),
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize rpc server: %w", err)
	}
	defer rpcServer.Stop()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(prometheusRegistry, promhttp.HandlerOpts{}))

	servers := []*http.Server{
		{Addr: cfg.Listen, Handler: rpcServer.Handler(), ReadHeaderTimeout: 10 * time.Second},
		{Addr: cfg.MetricsListen, Handler: metricsMux, ReadHeaderTimeout: 10 * time.Second},
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		if srv.Addr == "" {
			continue
		}
		go func(srv *http.Server) {
			rootLogger.Info("Listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		rootLogger.Info("Shutting down")
	case err = <-errCh:
		rootLogger.Error("Server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		_ = srv.Shutdown(shutdownCtx)
	}
	return err
}

// restoreFactory rebuilds the registry from the journal, or seeds the journal for a fresh start.
// Pools of a restored registry are redeployed into the in-memory backend with empty reserves.
func restoreFactory(ctx context.Context, store *sqlite.Store, backend *pool.Backend, cfg *poolfactory.Config, logger *slog.Logger) (*poolfactory.Factory, error) {
	view, err := store.Load(ctx)
	if errors.Is(err, sqlite.ErrEmpty) {
		if err := store.Init(ctx, poolfactory.Admin{Owner: cfg.Owner, FeeTo: cfg.FeeTo, Sweeper: cfg.Sweeper}); err != nil {
			return nil, err
		}
		return poolfactory.NewFactory(cfg)
	}
	if err != nil {
		return nil, err
	}

	for _, entry := range view.Pools {
		addr, err := backend.Deploy(ctx, entry.TokenX, entry.TokenY, new(uint256.Int))
		if err != nil {
			return nil, fmt.Errorf("redeploy pool %s: %w", entry.Pool, err)
		}
		if addr != entry.Pool {
			logger.Warn("Restored pool address differs from backend address", "pool", entry.Pool, "backend", addr)
		}
	}

	logger.Info("Registry restored", "pools", len(view.Pools), "sequence", view.Sequence)
	return poolfactory.NewFactoryFromView(&view, cfg)
}
