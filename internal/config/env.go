package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Nested structs use underscore delimiter (e.g., SCOPE_RESOURCE).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.hdscope
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the database connection URL.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/hdscope.db
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// APIKeys is a comma-separated list of valid API keys.
	// Env: API_KEYS
	APIKeys string `envconfig:"API_KEYS"`

	// Scope configures the instrument connection.
	Scope ScopeEnv `envconfig:"SCOPE"`
}

// ScopeEnv holds environment configuration for the instrument.
type ScopeEnv struct {
	// Resource is the instrument address, e.g. TCPIP0::10.0.0.5::5555::SOCKET.
	// Env: SCOPE_RESOURCE
	Resource string `envconfig:"RESOURCE"`

	// Model selects the driver: auto, rigol, rth or sim.
	// Env: SCOPE_MODEL (default: auto)
	Model string `envconfig:"MODEL" default:"auto"`

	// Timeout is the per-operation I/O timeout in seconds.
	// Env: SCOPE_TIMEOUT (default: 10)
	Timeout float64 `envconfig:"TIMEOUT" default:"10"`

	// MaxChunk overrides the driver's maximum samples per read.
	// Env: SCOPE_MAX_CHUNK
	MaxChunk int `envconfig:"MAX_CHUNK"`

	// HaltThreshold is the sample count above which acquisition is stopped
	// during a transfer.
	// Env: SCOPE_HALT_THRESHOLD (default: 1200)
	HaltThreshold int `envconfig:"HALT_THRESHOLD" default:"1200"`

	// Channels is the number of analog channels.
	// Env: SCOPE_CHANNELS (default: 4)
	Channels int `envconfig:"CHANNELS" default:"4"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	return LoadFromEnvWithPrefix("")
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "HDSCOPE" would require HDSCOPE_DATA_DIR instead of DATA_DIR.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// Normalize trims whitespace from string settings.
func (e EnvConfig) Normalize() EnvConfig {
	e.Host = strings.TrimSpace(e.Host)
	e.DataDir = strings.TrimSpace(e.DataDir)
	e.DBURL = strings.TrimSpace(e.DBURL)
	e.LogLevel = strings.TrimSpace(e.LogLevel)
	e.LogFormat = strings.TrimSpace(e.LogFormat)
	e.Scope.Resource = strings.TrimSpace(e.Scope.Resource)
	e.Scope.Model = strings.ToLower(strings.TrimSpace(e.Scope.Model))
	return e
}

// ToAppConfig converts EnvConfig to AppConfig. Empty settings keep the
// AppConfig defaults.
func (e EnvConfig) ToAppConfig() AppConfig {
	var opts []AppConfigOption
	set := func(ok bool, opt AppConfigOption) {
		if ok {
			opts = append(opts, opt)
		}
	}
	set(e.Host != "", WithHost(e.Host))
	set(e.Port != 0, WithPort(e.Port))
	set(e.DataDir != "", WithDataDir(e.DataDir))
	set(e.DBURL != "", WithDBURL(e.DBURL))
	set(e.LogLevel != "", WithLogLevel(e.LogLevel))
	set(e.LogFormat != "", WithLogFormat(parseLogFormat(e.LogFormat)))
	set(e.APIKeys != "", WithAPIKeys(ParseAPIKeys(e.APIKeys)))
	opts = append(opts, WithScopeConfig(e.Scope.ToScopeConfig()))
	return NewAppConfigWithOptions(opts...)
}

// ToScopeConfig converts ScopeEnv to ScopeConfig. Timeout is in seconds.
func (s ScopeEnv) ToScopeConfig() ScopeConfig {
	return NewScopeConfigWithOptions(
		WithResource(s.Resource),
		WithModel(s.Model),
		WithTimeout(time.Duration(s.Timeout*float64(time.Second))),
		WithMaxChunk(s.MaxChunk),
		WithHaltThreshold(s.HaltThreshold),
		WithChannels(s.Channels),
	)
}

func parseLogFormat(s string) LogFormat {
	if strings.EqualFold(s, "json") {
		return LogFormatJSON
	}
	return LogFormatPretty
}
