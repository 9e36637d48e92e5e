// Package cli implements the records command-line interface: inspect mapped
// tables and find, list, create and destroy their rows.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/records/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	dsn       string
	output    string
	verbose   bool
}

var flags rootFlags

// NewRootCmd creates the top-level "records" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "records",
		Short: "Inspect and edit table-backed records",
		Long: "Records maps SQLite tables to typed records. It reads each table's\n" +
			"columns from the catalog and lets you find, list, create and destroy rows.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch flags.output {
			case outputTable, outputJSON, outputYAML:
			default:
				return usageError("unknown output format %q (valid: table, json, yaml)", flags.output)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: ./.records or the platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: ./.records-db)")
	root.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "database DSN, overrides --data-dir")
	root.PersistentFlags().StringVarP(&flags.output, "output", "o", outputTable, "output format: table, json or yaml")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log database activity to stderr")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newFindCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newCreateCmd())
	root.AddCommand(newDestroyCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newImportCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "records:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// errUsage marks mistakes in the command line itself.
var errUsage = errors.New("usage error")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// exitCode maps an error to a process exit code: problems the user can fix
// by changing the input exit 1, everything else exits 2.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, errUsage),
		errors.Is(err, types.ErrSchema),
		errors.Is(err, types.ErrUnknownAttribute),
		errors.Is(err, types.ErrTypeMismatch),
		errors.Is(err, types.ErrInvalid),
		errors.Is(err, types.ErrInvalidQuery),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrNoPrimaryKey),
		errors.Is(err, types.ErrKeyRequired):
		return exitUserError
	default:
		return exitSysError
	}
}

// newLogger returns a debug logger on w when --verbose is set.
func newLogger(w io.Writer) *slog.Logger {
	if !flags.verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
