package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ul-gh/hdscope"
	"github.com/ul-gh/hdscope/internal/config"
	"github.com/ul-gh/hdscope/internal/log"
)

// errNoInstrument is returned by commands that talk to the scope when no
// resource is configured.
var errNoInstrument = errors.New("no instrument configured: set SCOPE_RESOURCE or --resource")

// clientOptions returns the hdscope.Option slice derived from AppConfig:
// storage, data directory, logger and instrument.
func clientOptions(cfg config.AppConfig, logger *slog.Logger) []hdscope.Option {
	opts := []hdscope.Option{
		hdscope.WithDataDir(cfg.DataDir()),
		hdscope.WithLogger(logger),
	}
	opts = append(opts, storageOptions(cfg)...)
	if cfg.Scope().IsConfigured() {
		opts = append(opts, hdscope.WithScopeConfig(cfg.Scope()))
	}
	return opts
}

// storageOptions returns the hdscope.Option for the configured database backend.
func storageOptions(cfg config.AppConfig) []hdscope.Option {
	dbURL := cfg.DBURL()
	if dbURL == "" {
		return nil
	}
	if !isSQLite(dbURL) {
		return []hdscope.Option{hdscope.WithPostgres(dbURL)}
	}

	dbPath := strings.TrimPrefix(dbURL, "sqlite:///")
	if dbPath == dbURL {
		dbPath = strings.TrimPrefix(dbURL, "sqlite:")
	}
	return []hdscope.Option{hdscope.WithSQLite(dbPath)}
}

// isSQLite checks if the database URL is for SQLite.
func isSQLite(url string) bool {
	return strings.HasPrefix(url, "sqlite:")
}

// openClient loads configuration, builds the logger and opens a client.
// The caller must close the client.
func openClient(ctx context.Context, flags *globalFlags) (*hdscope.Client, config.AppConfig, *slog.Logger, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, config.AppConfig{}, nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, config.AppConfig{}, nil, fmt.Errorf("create data directory: %w", err)
	}

	logger := log.FromConfig(cfg)
	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	logger.LogAttrs(ctx, slog.LevelDebug, "configuration loaded", attrs...)

	client, err := hdscope.New(clientOptions(cfg, logger)...)
	if err != nil {
		return nil, config.AppConfig{}, nil, fmt.Errorf("create hdscope client: %w", err)
	}
	return client, cfg, logger, nil
}

// withInstrument opens a client that must have a connected scope and runs fn.
func withInstrument(ctx context.Context, flags *globalFlags, fn func(*hdscope.Client) error) error {
	client, _, logger, err := openClient(ctx, flags)
	if err != nil {
		return err
	}
	defer closeClient(client, logger)

	if !client.Connected() {
		return errNoInstrument
	}
	return fn(client)
}

func closeClient(client *hdscope.Client, logger *slog.Logger) {
	if err := client.Close(); err != nil {
		logger.Error("failed to close hdscope client", slog.Any("error", err))
	}
}
