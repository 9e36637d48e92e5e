package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the records release, overridable at link time with
// -ldflags "-X github.com/mesh-intelligence/records/internal/cli.Version=...".
var Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/records"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the records version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "records v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
