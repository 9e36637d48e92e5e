package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/records/internal/paths"
	"github.com/mesh-intelligence/records/pkg/record"
	"github.com/mesh-intelligence/records/pkg/sqlite"
	"github.com/mesh-intelligence/records/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "RECORDS"

	// Config keys.
	cfgKeyBackend        = "backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeyDSN            = "dsn"
	cfgKeyPoolSize       = "pool_size"
	cfgKeyAcquireTimeout = "acquire_timeout"
)

// loadSettings reads .env files and config.yaml from configDir. A missing
// config.yaml is not an error. RECORDS_BACKEND, RECORDS_DSN,
// RECORDS_POOL_SIZE and RECORDS_ACQUIRE_TIMEOUT override the file; the data
// directory follows its own precedence in package paths.
func loadSettings(configDir string) (*viper.Viper, error) {
	if files := paths.DotenvFiles(configDir); len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyPoolSize, types.DefaultPoolSize)
	v.SetDefault(cfgKeyAcquireTimeout, types.DefaultAcquireTimeout)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	for _, key := range []string{cfgKeyBackend, cfgKeyDSN, cfgKeyPoolSize, cfgKeyAcquireTimeout} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// resolveConfig turns flags, environment and config.yaml into a pool
// configuration.
func resolveConfig(cmd *cobra.Command) (types.Config, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadSettings(configDir)
	if err != nil {
		return types.Config{}, err
	}

	dataDir, err := paths.ResolveDataDir(flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	dsn := flags.dsn
	if dsn == "" {
		dsn = v.GetString(cfgKeyDSN)
	}

	return types.Config{
		Backend:        v.GetString(cfgKeyBackend),
		DataDir:        dataDir,
		DSN:            dsn,
		PoolSize:       v.GetInt(cfgKeyPoolSize),
		AcquireTimeout: v.GetDuration(cfgKeyAcquireTimeout),
		Logger:         newLogger(cmd.ErrOrStderr()),
	}, nil
}

// openPool resolves the configuration and attaches a pool. The caller must
// defer pool.Detach().
func openPool(cmd *cobra.Command) (sqlite.Pool, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	pool, err := sqlite.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return pool, nil
}

// entityFlags are shared by every command that maps a table.
type entityFlags struct {
	table string
}

func (f *entityFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.table, "table", "", "table to map (default: derived from the entity name)")
}

// defineEntity maps the named entity on pool, honoring --table.
func (f *entityFlags) defineEntity(ctx context.Context, cmd *cobra.Command, pool sqlite.Pool, name string) (*record.EntityType, error) {
	opts := []record.Option{record.WithLogger(newLogger(cmd.ErrOrStderr()))}
	if f.table != "" {
		opts = append(opts, record.WithTable(f.table))
	}
	return record.Define(ctx, pool, name, opts...)
}
