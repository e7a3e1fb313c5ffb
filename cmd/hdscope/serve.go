package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ul-gh/hdscope/infrastructure/api"
	"github.com/ul-gh/hdscope/internal/config"
)

const shutdownTimeout = 15 * time.Second

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                   Server host to bind to (default: 0.0.0.0)
  PORT                   Server port to listen on (default: 8080)
  DATA_DIR               Data directory (default: ~/.hdscope)
  DB_URL                 Database URL (default: sqlite:///{data_dir}/hdscope.db)
  LOG_LEVEL              Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT             Log format: pretty, json (default: pretty)
  API_KEYS               Comma-separated keys required for POST, PUT and DELETE

  SCOPE_RESOURCE         Instrument resource, e.g. TCPIP::192.168.1.20::5555::SOCKET
  SCOPE_MODEL            Driver: auto, rigol, rth, sim (default: auto)
  SCOPE_TIMEOUT          I/O timeout in seconds (default: 10)
  SCOPE_MAX_CHUNK        Per-request sample limit override (default: driver limit)
  SCOPE_HALT_THRESHOLD   Records longer than this are read with the scope stopped (default: 1200)
  SCOPE_CHANNELS         Analog channels (default: 4)`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags, host, port)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(ctx context.Context, flags *globalFlags, host string, port int) error {
	client, cfg, logger, err := openClient(ctx, flags)
	if err != nil {
		return err
	}
	defer closeClient(client, logger)

	cfg = applyServeOverrides(cfg, host, port)
	logger.LogAttrs(ctx, slog.LevelInfo, "starting hdscope",
		append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)...)
	if !client.Connected() {
		logger.Warn("no instrument configured, serving stored captures only")
	}

	apiServer := api.NewAPIServer(client, cfg.APIKeys(), version)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return apiServer.ListenAndServe(cfg.Addr())
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return apiServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return cfg.Apply(opts...)
}
