package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MJE43/entropy-casino-engine/internal/api"
	"github.com/MJE43/entropy-casino-engine/internal/logger"
	"github.com/MJE43/entropy-casino-engine/internal/scan"
	"github.com/MJE43/entropy-casino-engine/internal/store"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var db store.DB
			if cfg.Store.Path != "" {
				sqlite, err := openStore(ctx, cfg.Store.Path)
				if err != nil {
					return err
				}
				defer sqlite.Close()
				db = sqlite
				logger.Info("audit log opened", "path", cfg.Store.Path)
			} else {
				logger.Warn("audit log disabled, verifications will not be recorded")
			}

			scanner := scan.NewScanner(
				scan.WithWorkers(cfg.Scan.Workers),
				scan.WithMaxCount(cfg.Scan.MaxCount),
				scan.WithHitLimit(cfg.Scan.HitLimit),
				scan.WithTimeout(cfg.Scan.Timeout),
				scan.WithVersion(api.EngineVersion),
			)
			srv := api.NewServer(db,
				api.WithScanner(scanner),
				api.WithLogger(logger.L()),
				api.WithRequestTimeout(cfg.Server.RequestTimeout),
			)

			httpServer := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      srv.Routes(),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("http server listening", "addr", cfg.Server.Addr, "engine_version", api.EngineVersion)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err, ok := <-errCh:
				if ok {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down http server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown", logger.Err(err))
				return err
			}
			logger.Info("http server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
