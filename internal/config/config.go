// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost          = "0.0.0.0"
	DefaultPort          = 8080
	DefaultLogLevel      = "INFO"
	DefaultScopeModel    = "auto"
	DefaultScopeTimeout  = 10 * time.Second
	DefaultScopeChannels = 4
	DefaultHaltThreshold = 1200
	DefaultDBName        = "hdscope.db"
	DefaultCapturesLimit = 50

	DefaultProgressInterval = 2 * time.Second
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// ScopeConfig configures the instrument connection.
type ScopeConfig struct {
	resource      string
	model         string
	timeout       time.Duration
	maxChunk      int
	haltThreshold int
	channels      int
}

// NewScopeConfig creates a new ScopeConfig with defaults.
func NewScopeConfig() ScopeConfig {
	return ScopeConfig{
		model:         DefaultScopeModel,
		timeout:       DefaultScopeTimeout,
		haltThreshold: DefaultHaltThreshold,
		channels:      DefaultScopeChannels,
	}
}

// Resource returns the VISA-style resource string or host[:port].
func (s ScopeConfig) Resource() string { return s.resource }

// Model returns the driver name (auto, rigol, rth or sim).
func (s ScopeConfig) Model() string { return s.model }

// Timeout returns the per-operation I/O timeout.
func (s ScopeConfig) Timeout() time.Duration { return s.timeout }

// MaxChunk returns the chunk size override, 0 for the driver default.
func (s ScopeConfig) MaxChunk() int { return s.maxChunk }

// HaltThreshold returns the sample count above which acquisition is halted.
func (s ScopeConfig) HaltThreshold() int { return s.haltThreshold }

// Channels returns the number of analog channels of the instrument.
func (s ScopeConfig) Channels() int { return s.channels }

// IsConfigured returns true when an instrument should be opened.
func (s ScopeConfig) IsConfigured() bool {
	return s.resource != "" || strings.EqualFold(s.model, "sim")
}

// ScopeOption is a functional option for ScopeConfig.
type ScopeOption func(*ScopeConfig)

// WithResource sets the resource string.
func WithResource(resource string) ScopeOption {
	return func(s *ScopeConfig) { s.resource = resource }
}

// WithModel sets the driver name.
func WithModel(model string) ScopeOption {
	return func(s *ScopeConfig) {
		if model != "" {
			s.model = model
		}
	}
}

// WithTimeout sets the I/O timeout.
func WithTimeout(d time.Duration) ScopeOption {
	return func(s *ScopeConfig) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxChunk sets the chunk size override.
func WithMaxChunk(n int) ScopeOption {
	return func(s *ScopeConfig) { s.maxChunk = n }
}

// WithHaltThreshold sets the halt threshold.
func WithHaltThreshold(n int) ScopeOption {
	return func(s *ScopeConfig) {
		if n > 0 {
			s.haltThreshold = n
		}
	}
}

// WithChannels sets the analog channel count.
func WithChannels(n int) ScopeOption {
	return func(s *ScopeConfig) {
		if n > 0 {
			s.channels = n
		}
	}
}

// NewScopeConfigWithOptions creates a ScopeConfig with functional options.
func NewScopeConfigWithOptions(opts ...ScopeOption) ScopeConfig {
	s := NewScopeConfig()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	host      string
	port      int
	dataDir   string
	dbURL     string
	logLevel  string
	logFormat LogFormat
	apiKeys   []string
	scope     ScopeConfig
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hdscope"
	}
	return filepath.Join(home, ".hdscope")
}

// DefaultDBURL returns the sqlite URL inside dataDir.
func DefaultDBURL(dataDir string) string {
	return "sqlite:///" + filepath.Join(dataDir, DefaultDBName)
}

// DefaultLogger returns the default slog logger for library consumers.
func DefaultLogger() *slog.Logger {
	return slog.Default()
}

// PrepareDataDir creates the data directory if it does not exist and returns it.
func PrepareDataDir(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dataDir, nil
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:      DefaultHost,
		port:      DefaultPort,
		dataDir:   dataDir,
		dbURL:     DefaultDBURL(dataDir),
		logLevel:  DefaultLogLevel,
		logFormat: LogFormatPretty,
		apiKeys:   []string{},
		scope:     NewScopeConfig(),
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// APIKeys returns the configured API keys.
func (c AppConfig) APIKeys() []string {
	keys := make([]string, len(c.apiKeys))
	copy(keys, c.apiKeys)
	return keys
}

// Scope returns the instrument config.
func (c AppConfig) Scope() ScopeConfig { return c.scope }

// CapturesDir returns where sample files are stored.
func (c AppConfig) CapturesDir() string {
	return filepath.Join(c.dataDir, "captures")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		// Keep the default database next to the data.
		if c.dbURL == "" || c.dbURL == DefaultDBURL(c.dataDir) {
			c.dbURL = DefaultDBURL(dir)
		}
		c.dataDir = dir
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithAPIKeys sets the API keys.
func WithAPIKeys(keys []string) AppConfigOption {
	return func(c *AppConfig) {
		c.apiKeys = make([]string, len(keys))
		copy(c.apiKeys, keys)
	}
}

// WithScopeConfig sets the instrument config.
func WithScopeConfig(s ScopeConfig) AppConfigOption {
	return func(c *AppConfig) { c.scope = s }
}

// WithScopeOptions applies options to the current instrument config.
func WithScopeOptions(opts ...ScopeOption) AppConfigOption {
	return func(c *AppConfig) {
		for _, opt := range opts {
			opt(&c.scope)
		}
	}
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	c.apiKeys = c.APIKeys()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// Sensitive values like API keys are masked or shown as counts.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("log_level", c.logLevel),
		slog.String("db_url", c.maskedDBURL()),
		slog.Int("api_keys_count", len(c.apiKeys)),
		slog.String("scope_resource", c.scopeResource()),
		slog.String("scope_model", c.scope.model),
		slog.Duration("scope_timeout", c.scope.timeout),
		slog.Int("halt_threshold", c.scope.haltThreshold),
	}
}

func (c AppConfig) maskedDBURL() string {
	if c.dbURL == "" {
		return "(default)"
	}
	if strings.HasPrefix(c.dbURL, "sqlite:") {
		return c.dbURL
	}
	return "postgres://***@***"
}

func (c AppConfig) scopeResource() string {
	if c.scope.resource == "" {
		return "(not configured)"
	}
	return c.scope.resource
}

// ParseAPIKeys parses a comma-separated string of API keys.
func ParseAPIKeys(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	return keys
}
