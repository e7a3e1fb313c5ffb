package hdscope

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/domain/tracking"
	"github.com/ul-gh/hdscope/internal/config"
)

// databaseType identifies the database.
type databaseType int

const (
	databaseDefault databaseType = iota
	databaseSQLite
	databasePostgres
)

// clientConfig holds configuration for Client construction.
// Use newClientConfig() to create with defaults from internal/config.
type clientConfig struct {
	database      databaseType
	dbPath        string
	dbDSN         string
	dataDir       string
	logger        *slog.Logger
	scope         instrument.Scope
	resource      string
	model         string
	timeout       time.Duration
	channels      int
	maxChunk      int
	maxChunkSet   bool
	haltThreshold int
	registry      *prometheus.Registry

	progress         tracking.Reporter
	progressInterval time.Duration
}

// newClientConfig creates a clientConfig with defaults from internal/config.
func newClientConfig() *clientConfig {
	return &clientConfig{
		dataDir:       config.DefaultDataDir(),
		model:         config.DefaultScopeModel,
		timeout:       config.DefaultScopeTimeout,
		channels:      config.DefaultScopeChannels,
		haltThreshold: config.DefaultHaltThreshold,

		progressInterval: config.DefaultProgressInterval,
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithSQLite stores captures in the SQLite database at path.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		c.database = databaseSQLite
		c.dbPath = path
	}
}

// WithPostgres stores captures in PostgreSQL.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) {
		c.database = databasePostgres
		c.dbDSN = dsn
	}
}

// WithDataDir sets the directory holding sample files and the default database.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) {
		c.dataDir = dir
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithScope uses an already connected instrument. The Client closes it.
func WithScope(s instrument.Scope) Option {
	return func(c *clientConfig) {
		c.scope = s
	}
}

// WithResource connects to the instrument at resource, e.g.
// "TCPIP::192.168.1.20::5555::SOCKET". model is "auto", "rigol", "rth"
// or "sim"; "sim" needs no resource.
func WithResource(resource, model string) Option {
	return func(c *clientConfig) {
		c.resource = resource
		if model != "" {
			c.model = model
		}
	}
}

// WithScopeConfig applies the instrument section of an AppConfig.
func WithScopeConfig(s config.ScopeConfig) Option {
	return func(c *clientConfig) {
		c.resource = s.Resource()
		c.model = s.Model()
		c.timeout = s.Timeout()
		c.channels = s.Channels()
		c.haltThreshold = s.HaltThreshold()
		if s.MaxChunk() > 0 {
			c.maxChunk = s.MaxChunk()
			c.maxChunkSet = true
		}
	}
}

// WithMaxChunk overrides the driver's per-request sample limit.
// Zero reads the whole record in one request.
func WithMaxChunk(n int) Option {
	return func(c *clientConfig) {
		if n >= 0 {
			c.maxChunk = n
			c.maxChunkSet = true
		}
	}
}

// WithHaltThreshold sets the record length above which a running scope
// is stopped for the transfer. Values <= 0 are ignored.
func WithHaltThreshold(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.haltThreshold = n
		}
	}
}

// WithTimeout sets the per-operation instrument I/O deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithChannels sets the number of analog inputs of the scope.
func WithChannels(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.channels = n
		}
	}
}

// WithMetrics registers transfer metrics on reg instead of a private registry.
func WithMetrics(reg *prometheus.Registry) Option {
	return func(c *clientConfig) {
		c.registry = reg
	}
}

// WithProgress delivers transfer progress to r instead of the log.
// Updates of one transfer reach r at most once per interval; the start,
// completion and failure of a transfer are always delivered.
func WithProgress(r tracking.Reporter, interval time.Duration) Option {
	return func(c *clientConfig) {
		c.progress = r
		if interval >= 0 {
			c.progressInterval = interval
		}
	}
}
