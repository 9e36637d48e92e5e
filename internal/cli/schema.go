package cli

import (
	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	var ef entityFlags
	cmd := &cobra.Command{
		Use:   "schema <entity>",
		Short: "Show the attributes read from an entity's table",
		Long: `Schema maps the entity to its table and prints every attribute with its
type, nullability, primary key and default.

Examples:
  records schema Person
  records schema Person --table staff -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := openPool(cmd)
			if err != nil {
				return err
			}
			defer pool.Detach()

			entity, err := ef.defineEntity(cmd.Context(), cmd, pool, args[0])
			if err != nil {
				return err
			}
			return printAttributes(cmd.OutOrStdout(), entity)
		},
	}
	ef.register(cmd)
	return cmd
}
