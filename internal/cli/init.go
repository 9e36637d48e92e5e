package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/records/internal/paths"
	"github.com/mesh-intelligence/records/pkg/types"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	Backend        string `yaml:"backend"`
	DataDir        string `yaml:"data_dir,omitempty"`
	PoolSize       int    `yaml:"pool_size"`
	AcquireTimeout string `yaml:"acquire_timeout"`
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and database",
		Long: "Create the configuration directory with a default config.yaml, create the\n" +
			"data directory and open the database once to make sure it is usable.",
		Args: cobra.NoArgs,
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	configPath := paths.ConfigFile(configDir)
	if err := writeConfigIfMissing(configPath, cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	pool, err := openPool(cmd)
	if err != nil {
		return err
	}
	if err := pool.Detach(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "config:   %s\ndatabase: %s\n", configPath, cfg.DataSource())
	return nil
}

// writeConfigIfMissing creates config.yaml from cfg if the file does not
// exist. An existing file is left alone.
func writeConfigIfMissing(path string, cfg types.Config) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	data, err := yaml.Marshal(&configFile{
		Backend:        cfg.Backend,
		DataDir:        cfg.DataDir,
		PoolSize:       cfg.GetPoolSize(),
		AcquireTimeout: cfg.AcquireTimeout.String(),
	})
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
