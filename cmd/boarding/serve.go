package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-boarding/pkg/httpapi"
	"github.com/goliatone/go-boarding/pkg/persistence"
	"github.com/goliatone/go-boarding/pkg/schema"
)

func serveCmd(a *app) *cobra.Command {
	var grace time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the wizard and its API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, grace)
		},
	}
	cmd.Flags().String("listen", "", "listen address (default :8080)")
	cmd.Flags().DurationVar(&grace, "shutdown-grace", 10*time.Second, "time allowed for in-flight requests on shutdown")
	_ = a.v.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	return cmd
}

func (a *app) serve(ctx context.Context, grace time.Duration) error {
	client, err := a.gateway()
	if err != nil {
		return err
	}
	sch, err := schema.Default()
	if err != nil {
		return err
	}
	store, closeStore, err := persistence.Open(ctx, a.cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			a.logger.Warn().Err(err).Msg("close storage")
		}
	}()

	srv, err := httpapi.New(ctx, a.cfg, sch,
		httpapi.WithGateway(client),
		httpapi.WithStore(store),
		httpapi.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	a.logger.Info().
		Str("addr", a.cfg.Listen).
		Str("environment", a.cfg.Environment).
		Str("storage", a.cfg.Storage.Backend).
		Str("identity", a.cfg.Identity.Mode).
		Msg("listening")

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.logger.Info().Msg("stopped")
	return nil
}
