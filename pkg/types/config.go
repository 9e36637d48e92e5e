package types

import (
	"errors"
	"log/slog"
	"path/filepath"
	"time"
)

// Config holds backend selection and connection pool parameters.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// DSN overrides the database location derived from DataDir.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`

	// PoolSize bounds the number of connections in use at once.
	// Zero selects DefaultPoolSize.
	PoolSize int `json:"pool_size,omitempty" yaml:"pool_size,omitempty"`

	// AcquireTimeout is how long a caller waits for a free connection.
	// Zero waits until the caller's context ends.
	AcquireTimeout time.Duration `json:"acquire_timeout,omitempty" yaml:"acquire_timeout,omitempty"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Defaults applied by DefaultConfig and the getters below.
const (
	DefaultPoolSize       = 4
	DefaultAcquireTimeout = 5 * time.Second
	DefaultDatabaseFile   = "records.db"
)

// Config validation errors.
var (
	ErrBackendEmpty    = errors.New("backend must not be empty")
	ErrBackendUnknown  = errors.New("unknown backend")
	ErrPoolSizeInvalid = errors.New("pool size must not be negative")
	ErrTimeoutInvalid  = errors.New("acquire timeout must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// DefaultConfig returns a SQLite configuration rooted at dataDir.
func DefaultConfig(dataDir string) Config {
	return Config{
		Backend:        BackendSQLite,
		DataDir:        dataDir,
		PoolSize:       DefaultPoolSize,
		AcquireTimeout: DefaultAcquireTimeout,
	}
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.PoolSize < 0 {
		return ErrPoolSizeInvalid
	}
	if c.AcquireTimeout < 0 {
		return ErrTimeoutInvalid
	}
	return nil
}

// GetPoolSize returns the pool size, applying the default for zero.
func (c Config) GetPoolSize() int {
	if c.PoolSize <= 0 {
		return DefaultPoolSize
	}
	return c.PoolSize
}

// DataSource returns the DSN handed to the driver. An explicit DSN wins;
// otherwise the database file lives in DataDir (current directory if empty).
func (c Config) DataSource() string {
	if c.DSN != "" {
		return c.DSN
	}
	dataDir := c.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	return filepath.Join(dataDir, DefaultDatabaseFile)
}

// GetLogger returns the configured logger or one that discards everything.
func (c Config) GetLogger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}
