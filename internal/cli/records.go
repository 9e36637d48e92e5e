package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/records/pkg/record"
	"github.com/mesh-intelligence/records/pkg/types"
)

func newFindCmd() *cobra.Command {
	var ef entityFlags
	cmd := &cobra.Command{
		Use:   "find <entity> <id>",
		Short: "Show one record by primary key",
		Args:  cobra.ExactArgs(2),
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
			id, err := parseID(entity, args[1])
			if err != nil {
				return err
			}
			r, err := entity.FindByID(ctx, id)
			if err != nil {
				return err
			}
			return printRecord(cmd.OutOrStdout(), r)
		},
	}
	ef.register(cmd)
	return cmd
}

type listFlags struct {
	entityFlags
	where  []string
	order  []string
	limit  int
	offset int
	count  bool
}

func newListCmd() *cobra.Command {
	var lf listFlags
	cmd := &cobra.Command{
		Use:   "list <entity>",
		Short: "List records with optional conditions",
		Long: `List queries the entity's table. Conditions are ANDed together.

A condition is <attr><op><value> where op is one of = != <> < <= > >= or ~
(LIKE). Values are converted to the attribute's declared type.

Examples:
  records list Person
  records list Person --where active=true --where 'age>=18' --order name
  records list Person --where 'email~%@example.com' --order age:desc --limit 10
  records list Person --where name=Ada --count`,
		Args: cobra.ExactArgs(1),
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

			if lf.count {
				n, err := q.Count(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			}
			records, err := q.All(ctx)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), entity, records)
		},
	}
	lf.register(cmd)
	cmd.Flags().StringArrayVarP(&lf.where, "where", "w", nil, "condition <attr><op><value>, repeatable")
	cmd.Flags().StringArrayVar(&lf.order, "order", nil, "sort key attr[:asc|:desc], repeatable")
	cmd.Flags().IntVar(&lf.limit, "limit", -1, "maximum number of records")
	cmd.Flags().IntVar(&lf.offset, "offset", 0, "number of records to skip")
	cmd.Flags().BoolVar(&lf.count, "count", false, "print the number of matching records only")
	return cmd
}

// query builds the record query described by the list flags.
func (lf *listFlags) query(e *record.EntityType) (record.Query, error) {
	q := e.Query()
	for _, cond := range lf.where {
		attr, op, raw, err := parseCondition(cond)
		if err != nil {
			return q, err
		}
		value, err := parseAttr(e, attr, raw, op == record.OpLike)
		if err != nil {
			return q, err
		}
		q = q.WhereOp(attr, op, value)
	}
	for _, key := range lf.order {
		attr, dirName, _ := strings.Cut(key, ":")
		dir := record.Asc
		switch strings.ToLower(dirName) {
		case "", "asc":
		case "desc":
			dir = record.Desc
		default:
			return q, usageError("invalid sort direction in %q (use asc or desc)", key)
		}
		q = q.Order(attr, dir)
	}
	if lf.limit >= 0 {
		q = q.Limit(lf.limit)
	}
	if lf.offset > 0 {
		q = q.Offset(lf.offset)
	}
	return q, q.Err()
}

func newCreateCmd() *cobra.Command {
	var ef entityFlags
	cmd := &cobra.Command{
		Use:   "create <entity> <attr=value>...",
		Short: "Validate and insert a new record",
		Long: `Create builds a record from attr=value pairs, validates it and inserts it.
Attributes left out keep their database defaults.

Example:
  records create Person name=Ada email=ada@example.com age=36`,
		Args: cobra.MinimumNArgs(1),
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
			attrs, err := parseAssignments(entity, args[1:])
			if err != nil {
				return err
			}

			r, err := entity.Create(ctx, attrs)
			if err != nil {
				var verr *types.ValidationError
				if errors.As(err, &verr) {
					for _, msg := range verr.Messages {
						fmt.Fprintln(cmd.ErrOrStderr(), msg)
					}
				}
				return err
			}
			return printRecord(cmd.OutOrStdout(), r)
		},
	}
	ef.register(cmd)
	return cmd
}

func newDestroyCmd() *cobra.Command {
	var ef entityFlags
	cmd := &cobra.Command{
		Use:   "destroy <entity> <id>",
		Short: "Delete one record by primary key",
		Args:  cobra.ExactArgs(2),
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
			id, err := parseID(entity, args[1])
			if err != nil {
				return err
			}
			r, err := entity.FindByID(ctx, id)
			if err != nil {
				return err
			}
			if err := r.Destroy(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "destroyed %s %s\n", entity.Name(), args[1])
			return nil
		},
	}
	ef.register(cmd)
	return cmd
}

// conditionOps lists the accepted condition operators, longest first so
// that ">=" is not read as ">".
var conditionOps = []struct {
	token string
	op    record.Op
}{
	{">=", record.OpGe},
	{"<=", record.OpLe},
	{"<>", record.OpNe},
	{"!=", record.OpNe},
	{"=", record.OpEq},
	{">", record.OpGt},
	{"<", record.OpLt},
	{"~", record.OpLike},
}

// parseCondition splits "age>=18" into its attribute, operator and value.
func parseCondition(s string) (string, record.Op, string, error) {
	i := strings.IndexAny(s, "<>=!~")
	if i <= 0 {
		return "", "", "", usageError("invalid condition %q (expected <attr><op><value>)", s)
	}
	rest := s[i:]
	for _, c := range conditionOps {
		if strings.HasPrefix(rest, c.token) {
			return s[:i], c.op, rest[len(c.token):], nil
		}
	}
	return "", "", "", usageError("invalid operator in condition %q", s)
}

// parseAssignments converts attr=value arguments to typed attribute values.
func parseAssignments(e *record.EntityType, args []string) (map[string]any, error) {
	attrs := make(map[string]any, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, usageError("invalid assignment %q (expected attr=value)", arg)
		}
		v, err := parseAttr(e, name, raw, false)
		if err != nil {
			return nil, err
		}
		attrs[name] = v
	}
	return attrs, nil
}

// parseAttr converts raw to the declared type of the named attribute. LIKE
// patterns stay text.
func parseAttr(e *record.EntityType, name, raw string, pattern bool) (any, error) {
	attr, ok := e.Attribute(name)
	if !ok {
		return nil, &types.UnknownAttributeError{Entity: e.Name(), Attribute: name}
	}
	if pattern {
		return raw, nil
	}
	v, err := record.ParseValue(attr.Type, raw)
	if err != nil {
		return nil, usageError("value %q for %s: %v", raw, name, err)
	}
	return v, nil
}

// parseID converts a primary key argument to the key's declared type.
func parseID(e *record.EntityType, raw string) (any, error) {
	pk, ok := e.PrimaryKey()
	if !ok {
		return raw, nil
	}
	return parseAttr(e, pk.Name, raw, false)
}
