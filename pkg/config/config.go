package config

import "time"

// Config is the root configuration structure for Beacon. It contains all
// configuration sections for the HTTP server, visit storage, admission
// limits, telemetry, and export settings.
type Config struct {
	// Server contains HTTP server configuration including listen address
	// and timeouts.
	Server ServerConfig `yaml:"server"`

	// Storage contains configuration for the visit store including
	// backend selection and SQLite tuning.
	Storage StorageConfig `yaml:"storage"`

	// Limits contains configuration for the sliding-window admission
	// limiter and its state persistence.
	Limits LimitsConfig `yaml:"limits"`

	// Query contains configuration for the query surface.
	Query QueryConfig `yaml:"query"`

	// Export contains configuration for the export endpoints.
	Export ExportConfig `yaml:"export"`

	// Telemetry contains configuration for observability including
	// logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port". Default: "127.0.0.1:8090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response. Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next
	// request when keep-alives are enabled. Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown. Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes limits the size of accepted request bodies.
	// Default: 65536 (64KB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// TrustProxyHeaders controls whether X-Forwarded-For is consulted for
	// the client address. Enable only behind a trusted reverse proxy.
	// Default: false
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

// StorageConfig contains configuration for the visit store.
type StorageConfig struct {
	// Backend selects the storage backend: "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific settings, used when Backend is
	// "sqlite".
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig contains SQLite backend settings.
type SQLiteConfig struct {
	// Path is the database file path. Default: "data/visits.db"
	Path string `yaml:"path"`

	// MaxOpenConns limits open connections to the database. Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns limits idle connections. Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging. Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a connection waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// LimitsConfig contains configuration for admission limiting.
type LimitsConfig struct {
	// Window is the trailing admission window. Default: 60s
	Window time.Duration `yaml:"window"`

	// MaxPerWindow is the number of admitted writes per client within the
	// window. Default: 100
	MaxPerWindow int `yaml:"max_per_window"`

	// SweepSchedule is the cron schedule for pruning idle limiter keys.
	// Default: "*/5 * * * *"
	SweepSchedule string `yaml:"sweep_schedule"`

	// Persistence contains limiter state persistence settings.
	Persistence PersistenceConfig `yaml:"persistence"`
}

// PersistenceConfig contains limiter state persistence settings. When
// enabled, admission windows survive a restart instead of resetting.
type PersistenceConfig struct {
	// Enabled controls whether limiter state is persisted.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the state database file path. Default: "data/limits.db"
	Path string `yaml:"path"`
}

// QueryConfig contains configuration for the query surface.
type QueryConfig struct {
	// DefaultPerPage is the page size used when the caller specifies
	// none. Default: 20
	DefaultPerPage int `yaml:"default_per_page"`

	// Timeout bounds the execution of a single query. Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// ExportConfig contains configuration for the export endpoints.
type ExportConfig struct {
	// JSONPretty enables indented JSON export output. Default: true
	JSONPretty bool `yaml:"json_pretty"`

	// CSVHeader includes a header row in CSV exports. Default: true
	CSVHeader bool `yaml:"csv_header"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text". Default: "json"
	Format string `yaml:"format"`

	// RedactIPs masks client addresses in log output. Default: true
	RedactIPs bool `yaml:"redact_ips"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path. Default: "/metrics"
	Path string `yaml:"path"`
}
