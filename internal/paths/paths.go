// Package paths resolves where the records CLI keeps its configuration and
// its database.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// appDir is the directory name used under platform config and data roots.
const appDir = "records"

// CWD-relative directory names used when nothing else is configured.
const (
	DefaultConfigDirName = ".records"
	DefaultDataDirName   = ".records-db"
)

// File names inside the config directory.
const (
	ConfigFileName = "config.yaml"
	DotenvFileName = ".env"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "RECORDS_CONFIG_DIR"
	EnvDataDir   = "RECORDS_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// userDir returns $xdgVar/records on Linux, falling back to
// ~/<fallback...>/records. Other platforms use os.UserConfigDir for both
// configuration and data.
func userDir(xdgVar string, fallback ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appDir), nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, appDir), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, fallback...)
	return filepath.Join(append(parts, appDir)...), nil
}

// DefaultConfigDir returns the platform-specific configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/records (fallback ~/.config/records)
// macOS:   ~/Library/Application Support/records
// Windows: %APPDATA%/records
func DefaultConfigDir() (string, error) {
	return userDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific data directory.
//
// Linux:   $XDG_DATA_HOME/records (fallback ~/.local/share/records)
// macOS and Windows: same as DefaultConfigDir.
func DefaultDataDir() (string, error) {
	return userDir("XDG_DATA_HOME", ".local", "share")
}

// ResolveConfigDir picks the configuration directory:
// flag > RECORDS_CONFIG_DIR > ./.records when it exists > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	local := filepath.Join(cwd, DefaultConfigDirName)
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local, nil
	}
	return DefaultConfigDir()
}

// ResolveDataDir picks the data directory:
// flag > data_dir from config.yaml > RECORDS_DATA_DIR > ./.records-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, dir := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if dir != "" {
			return filepath.Abs(dir)
		}
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ConfigFile returns the path of config.yaml inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

// DotenvFiles lists the .env files that exist, working directory first,
// then the configuration directory. Earlier files win when both set a key.
func DotenvFiles(configDir string) []string {
	var candidates []string
	if cwd, err := platformDir.getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DotenvFileName))
	}
	candidates = append(candidates, filepath.Join(configDir, DotenvFileName))

	var found []string
	seen := make(map[string]bool, len(candidates))
	for _, path := range candidates {
		if seen[path] {
			continue
		}
		seen[path] = true
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			found = append(found, path)
		}
	}
	return found
}
