// ABOUTME: CLI command that runs the JSON HTTP API.
// ABOUTME: Serves until SIGINT/SIGTERM, then drains in-flight requests.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/painlog/internal/httpapi"
	"github.com/harperreed/painlog/internal/logging"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Run the HTTP API",
	Annotations: localOnly,
	Long: `Run the pain diary JSON API.

ENDPOINTS:

  GET  /healthz
  GET  /api/vocabulary
  POST /api/auth/register             {"name", "phone"}
  POST /api/auth/login                {"phone"}
  GET  /api/user/{id}
  POST /api/pain-entry                {"userId", "bodyPart", "painLevel", "formData"}
  GET  /api/pain-entries/{userId}     ?limit=N
  GET  /api/pain-entries/{userId}/summary   ?tz=America/Sao_Paulo

Send an Idempotency-Key header with POST /api/pain-entry so retries are
stored once. When jwt_secret is configured, register and login return a
bearer token; set require_session to reject requests without one.

EXAMPLES:

  painlog serve
  painlog serve --addr 127.0.0.1:9000
  PAINLOG_BACKEND=postgres painlog serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logging.New(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		sessions, err := cfg.Sessions()
		if err != nil {
			return err
		}
		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		addr := cfg.GetHTTPAddr()
		if serveAddr != "" {
			addr = serveAddr
		}

		srv, err := httpapi.New(httpapi.Options{
			Addr:           addr,
			Service:        service,
			Sessions:       sessions,
			RequireSession: cfg.RequireSession,
			Location:       loc,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Listening on %s (%s backend)\n", addr, cfg.GetBackend())
		log.Info("server starting",
			zap.String("addr", addr),
			zap.String("backend", cfg.GetBackend()),
			zap.Bool("sessions", sessions != nil),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Run()
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			log.Info("server shutting down")
			return srv.Shutdown(shutdownCtx)
		})

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}
