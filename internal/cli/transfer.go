package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/records/internal/jsonl"
)

func newExportCmd() *cobra.Command {
	var lf listFlags
	cmd := &cobra.Command{
		Use:   "export <entity> <file.jsonl>",
		Short: "Write records to a JSON Lines file",
		Long: `Export writes one JSON object per record. It accepts the same --where and
--order conditions as list; the file is replaced atomically.

Example:
  records export Person people.jsonl --order id`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := openPool(cmd)
			if err != nil {
				return err
			}
			defer pool.Detach()

			ctx := cmd.Context()
			entity, err := lf.defineEntity(ctx, cmd, pool, args[0])
			if err != nil {
				return err
			}
			q, err := lf.query(entity)
			if err != nil {
				return err
			}
			n, err := jsonl.Export(ctx, q, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d %s records to %s\n", n, entity.Name(), args[1])
			return nil
		},
	}
	lf.register(cmd)
	cmd.Flags().StringArrayVarP(&lf.where, "where", "w", nil, "condition <attr><op><value>, repeatable")
	cmd.Flags().StringArrayVar(&lf.order, "order", nil, "sort key attr[:asc|:desc], repeatable")
	lf.limit = -1
	return cmd
}

func newImportCmd() *cobra.Command {
	var ef entityFlags
	cmd := &cobra.Command{
		Use:   "import <entity> <file.jsonl>",
		Short: "Create records from a JSON Lines file",
		Long: `Import creates one record per line. Blank and malformed lines are skipped;
the first record that fails stops the import, keeping those already created.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := openPool(cmd)
			if err != nil {
				return err
			}
			defer pool.Detach()

			ctx := cmd.Context()
			entity, err := ef.defineEntity(ctx, cmd, pool, args[0])
			if err != nil {
				return err
			}
			res, err := jsonl.Import(ctx, entity, args[1])
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "imported %d records before the failure\n", res.Created)
				return err
			}
			if flags.output != outputTable {
				return writeStructured(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d %s records (%d lines skipped)\n", res.Created, entity.Name(), res.Skipped)
			return nil
		},
	}
	ef.register(cmd)
	return cmd
}
