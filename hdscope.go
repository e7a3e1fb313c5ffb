// Package hdscope provides a library for remote waveform acquisition from
// Rigol and Rohde & Schwarz oscilloscopes.
//
// hdscope reads full memory-depth records over SCPI in bounded chunks,
// halting a free-running scope for the transfer and restoring it after,
// and stores every acquisition as a capture with calibrated sample data.
//
// Basic usage:
//
//	client, err := hdscope.New(
//	    hdscope.WithSQLite(".hdscope/hdscope.db"),
//	    hdscope.WithResource("TCPIP::192.168.1.20::5555::SOCKET", "auto"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	c, err := client.Acquisition.Capture(ctx, service.CaptureParams{Channel: 1})
//
//	window, err := client.Captures.Samples(ctx, c.ID(), service.SampleParams{Volts: true})
package hdscope

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ul-gh/hdscope/application/service"
	"github.com/ul-gh/hdscope/domain/capture"
	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/infrastructure/persistence"
	"github.com/ul-gh/hdscope/infrastructure/scope"
	infratracking "github.com/ul-gh/hdscope/infrastructure/tracking"
	"github.com/ul-gh/hdscope/internal/config"
	"github.com/ul-gh/hdscope/internal/database"
	"github.com/ul-gh/hdscope/internal/metrics"
)

// instrumentLockFile in the data directory keeps processes sharing it
// from talking to the instrument at the same time.
const instrumentLockFile = "instrument.lock"

// Client is the main entry point for the hdscope library.
//
// Access resources via struct fields:
//
//	client.Captures.Find(ctx, capture.WithNewestFirst())
//	client.Acquisition.Capture(ctx, service.CaptureParams{Channel: 2})
//	client.Instrument.Status(ctx)
type Client struct {
	Captures    *service.Captures
	Acquisition *service.Acquisition
	Instrument  *service.Instrument

	db       database.Database
	scope    instrument.Scope
	lock     *service.InstrumentLock
	samples  persistence.SampleFiles
	registry *prometheus.Registry
	progress *infratracking.Throttle

	logger  *slog.Logger
	dataDir string
	closed  atomic.Bool
	mu      sync.Mutex
}

// New creates a new Client with the given options. Without WithScope or
// WithResource no instrument is connected and only stored captures are
// served.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.scope != nil && cfg.resource != "" {
		return nil, ErrScopeConflict
	}

	logger := cfg.logger
	if logger == nil {
		logger = config.DefaultLogger()
	}

	dataDir, err := config.PrepareDataDir(cfg.dataDir)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	dbURL, err := buildDatabaseURL(cfg, dataDir)
	if err != nil {
		return nil, fmt.Errorf("build database url: %w", err)
	}

	db, err := database.Open(ctx, dbURL, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := persistence.AutoMigrate(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("auto migrate: %w", err), errClose)
	}

	registry := cfg.registry
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	transfer, err := metrics.NewTransfer(registry)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("register metrics: %w", err), errClose)
	}

	scp, err := openScope(ctx, cfg, logger)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("open instrument: %w", err), errClose)
	}

	captureStore := persistence.NewCaptureStore(db)
	sampleFiles := persistence.NewSampleFiles(dataDir)
	lock := service.NewInstrumentLock(service.WithLockFile(filepath.Join(dataDir, instrumentLockFile)))

	progress := cfg.progress
	if progress == nil {
		progress = infratracking.NewLoggingReporter(logger)
	}
	throttle := infratracking.NewThrottle(progress, cfg.progressInterval)

	client := &Client{
		db:       db,
		scope:    scp,
		lock:     lock,
		samples:  sampleFiles,
		registry: registry,
		progress: throttle,
		logger:   logger,
		dataDir:  dataDir,
	}

	readerOpts := []service.ReaderOption{
		service.WithHaltThreshold(cfg.haltThreshold),
		service.WithReaderMetrics(transfer),
		service.WithReaderProgress(throttle),
		service.WithReaderLogger(logger),
	}
	if cfg.maxChunkSet {
		readerOpts = append(readerOpts, service.WithMaxChunk(cfg.maxChunk))
	}

	client.Captures = service.NewCaptures(captureStore, sampleFiles, &client.closed, logger)
	client.Acquisition = service.NewAcquisition(scp, lock, captureStore, sampleFiles, logger, readerOpts...)
	client.Instrument = service.NewInstrument(scp, lock, logger)

	client.Acquisition.Hooks().Add(func(context.Context, capture.Capture) {
		transfer.CaptureStored()
	})

	logger.Info("hdscope client ready",
		slog.String("data_dir", dataDir),
		slog.Bool("instrument", scp != nil),
	)
	return client, nil
}

// Close waits for a running acquisition, then closes the instrument and
// the database. A second call returns ErrClientClosed.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.lock.Close(context.Background()); err != nil {
		c.logger.Error("failed to wait for instrument", slog.Any("error", err))
	}

	var errs []error
	if err := c.progress.Close(); err != nil {
		errs = append(errs, fmt.Errorf("flush progress: %w", err))
	}
	if c.scope != nil {
		if err := c.scope.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close instrument: %w", err))
		}
	}
	if err := c.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	c.logger.Info("hdscope client closed")
	return nil
}

// Connected reports whether an instrument is attached.
func (c *Client) Connected() bool {
	return c.scope != nil
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// DataDir returns the directory holding sample files.
func (c *Client) DataDir() string {
	return c.dataDir
}

// Gatherer returns the registry holding the client's metrics.
func (c *Client) Gatherer() prometheus.Gatherer {
	return c.registry
}

// buildDatabaseURL constructs the database URL from configuration.
func buildDatabaseURL(cfg *clientConfig, dataDir string) (string, error) {
	switch cfg.database {
	case databaseSQLite:
		return database.SQLiteURL(cfg.dbPath)
	case databasePostgres:
		return cfg.dbDSN, nil
	default:
		return database.SQLiteURL(filepath.Join(dataDir, config.DefaultDBName))
	}
}

func openScope(ctx context.Context, cfg *clientConfig, logger *slog.Logger) (instrument.Scope, error) {
	if cfg.scope != nil {
		return cfg.scope, nil
	}
	model, err := scope.ParseModel(cfg.model)
	if err != nil {
		return nil, err
	}
	if cfg.resource == "" && model != scope.ModelSim {
		return nil, nil
	}
	return scope.Open(ctx, cfg.resource, model, scope.Options{
		Timeout:  cfg.timeout,
		Channels: cfg.channels,
		Logger:   logger,
	})
}
