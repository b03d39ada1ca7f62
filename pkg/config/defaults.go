package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8090"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = int64(65536) // 64KB

	// Storage defaults
	DefaultStorageBackend     = "sqlite"
	DefaultSQLitePath         = "data/visits.db"
	DefaultSQLiteMaxOpenConns = 10
	DefaultSQLiteMaxIdleConns = 5
	DefaultSQLiteWALMode      = true
	DefaultSQLiteBusyTimeout  = 5 * time.Second

	// Limits defaults
	DefaultLimitsWindow       = 60 * time.Second
	DefaultLimitsMaxPerWindow = 100
	DefaultSweepSchedule      = "*/5 * * * *"
	DefaultPersistencePath    = "data/limits.db"

	// Query defaults
	DefaultQueryPerPage = 20
	DefaultQueryTimeout = 30 * time.Second

	// Export defaults
	DefaultExportJSONPretty = true
	DefaultExportCSVHeader  = true

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultLoggingRedactIPs = true
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
)

// DefaultConfig returns a configuration populated entirely with defaults.
// Boolean fields whose default is true are set here; the loader
// unmarshals YAML over this struct so an omitted field keeps its default
// while an explicit "false" sticks.
func DefaultConfig() *Config {
	cfg := &Config{
		Storage: StorageConfig{
			SQLite: SQLiteConfig{WALMode: DefaultSQLiteWALMode},
		},
		Export: ExportConfig{
			JSONPretty: DefaultExportJSONPretty,
			CSVHeader:  DefaultExportCSVHeader,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{RedactIPs: DefaultLoggingRedactIPs},
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in default values for any unset non-boolean
// configuration fields. A zero value is indistinguishable from an
// explicit one for booleans, so those are defaulted in DefaultConfig
// instead.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Storage.SQLite.MaxOpenConns == 0 {
		cfg.Storage.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.Storage.SQLite.MaxIdleConns == 0 {
		cfg.Storage.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if cfg.Storage.SQLite.BusyTimeout == 0 {
		cfg.Storage.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}

	if cfg.Limits.Window == 0 {
		cfg.Limits.Window = DefaultLimitsWindow
	}
	if cfg.Limits.MaxPerWindow == 0 {
		cfg.Limits.MaxPerWindow = DefaultLimitsMaxPerWindow
	}
	if cfg.Limits.SweepSchedule == "" {
		cfg.Limits.SweepSchedule = DefaultSweepSchedule
	}
	if cfg.Limits.Persistence.Path == "" {
		cfg.Limits.Persistence.Path = DefaultPersistencePath
	}

	if cfg.Query.DefaultPerPage == 0 {
		cfg.Query.DefaultPerPage = DefaultQueryPerPage
	}
	if cfg.Query.Timeout == 0 {
		cfg.Query.Timeout = DefaultQueryTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
