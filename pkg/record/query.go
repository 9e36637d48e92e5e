package record

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mesh-intelligence/records/pkg/types"
)

// Op is a comparison operator usable in WhereOp.
type Op string

// Comparison operators.
const (
	OpEq   Op = "="
	OpNe   Op = "<>"
	OpLt   Op = "<"
	OpLe   Op = "<="
	OpGt   Op = ">"
	OpGe   Op = ">="
	OpLike Op = "LIKE"
)

var validOps = map[Op]bool{
	OpEq: true, OpNe: true, OpLt: true, OpLe: true, OpGt: true, OpGe: true, OpLike: true,
}

// Direction is a sort direction.
type Direction int

// Sort directions.
const (
	Asc Direction = iota
	Desc
)

type predicate struct {
	attr   int
	op     Op
	values []any
	in     bool
}

type ordering struct {
	attr int
	dir  Direction
}

// Query is an immutable description of a read against one entity type.
// Every chain method returns a new Query and leaves its receiver untouched,
// so a base query can be shared and extended from several goroutines.
//
// Argument errors (unknown attributes, bad operators, negative limits) are
// kept on the derived query and returned by the terminal call.
//
// Rows come back in no particular order unless Order is chained.
type Query struct {
	entity *EntityType
	preds  []predicate
	orders []ordering
	limit  int // -1 when unset.
	offset int
	err    error
}

// Query returns an unfiltered query over every row of the entity's table.
func (e *EntityType) Query() Query {
	return Query{entity: e, limit: -1}
}

// Err returns the first argument error recorded while building the query.
func (q Query) Err() error { return q.err }

// fail returns a copy of q carrying err unless an earlier error is recorded.
func (q Query) fail(err error) Query {
	if q.err == nil {
		q.err = err
	}
	return q
}

// with returns a copy of q with predicate p appended. slices.Clip forces the
// append onto a fresh array so sibling queries never share storage.
func (q Query) with(p predicate) Query {
	q.preds = append(slices.Clip(q.preds), p)
	return q
}

// Where filters on equality. A nil value matches NULL.
func (q Query) Where(attr string, value any) Query {
	return q.WhereOp(attr, OpEq, value)
}

// WhereOp filters with a comparison operator. nil is accepted only with
// OpEq and OpNe, where it renders as IS NULL / IS NOT NULL.
func (q Query) WhereOp(attr string, op Op, value any) Query {
	if q.err != nil {
		return q
	}
	i, err := q.entity.lookup(attr)
	if err != nil {
		return q.fail(err)
	}
	if !validOps[op] {
		return q.fail(fmt.Errorf("%w: unknown operator %q", types.ErrInvalidQuery, op))
	}
	if value == nil {
		if op != OpEq && op != OpNe {
			return q.fail(fmt.Errorf("%w: nil cannot be compared with %s", types.ErrInvalidQuery, op))
		}
		return q.with(predicate{attr: i, op: op, values: []any{nil}})
	}

	def := q.entity.attrs[i]
	if op == OpLike {
		// LIKE patterns are text regardless of the column type.
		def.Type = types.ValueTypeText
	}
	v, err := conform(def, value)
	if err != nil {
		return q.fail(err)
	}
	return q.with(predicate{attr: i, op: op, values: []any{v}})
}

// WhereIn filters on membership. An empty list matches no rows.
func (q Query) WhereIn(attr string, values ...any) Query {
	if q.err != nil {
		return q
	}
	i, err := q.entity.lookup(attr)
	if err != nil {
		return q.fail(err)
	}
	def := q.entity.attrs[i]
	def.Nullable = false
	def.PrimaryKey = false
	def.HasDefault = false
	conformed := make([]any, len(values))
	for j, value := range values {
		v, err := conform(def, value)
		if err != nil {
			return q.fail(err)
		}
		conformed[j] = v
	}
	return q.with(predicate{attr: i, in: true, values: conformed})
}

// Order appends a sort key.
func (q Query) Order(attr string, dir Direction) Query {
	if q.err != nil {
		return q
	}
	i, err := q.entity.lookup(attr)
	if err != nil {
		return q.fail(err)
	}
	if dir != Asc && dir != Desc {
		return q.fail(fmt.Errorf("%w: unknown direction %d", types.ErrInvalidQuery, dir))
	}
	q.orders = append(slices.Clip(q.orders), ordering{attr: i, dir: dir})
	return q
}

// Limit caps the number of rows returned.
func (q Query) Limit(n int) Query {
	if n < 0 {
		return q.fail(fmt.Errorf("%w: negative limit %d", types.ErrInvalidQuery, n))
	}
	q.limit = n
	return q
}

// Offset skips the first n rows.
func (q Query) Offset(n int) Query {
	if n < 0 {
		return q.fail(fmt.Errorf("%w: negative offset %d", types.ErrInvalidQuery, n))
	}
	q.offset = n
	return q
}

// SQL renders the SELECT statement and its arguments.
func (q Query) SQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(q.entity.columnList())
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(q.entity.table))
	args := q.writeWhere(&b)
	q.writeOrder(&b)
	args = q.writeLimit(&b, args)
	return b.String(), args, nil
}

func (q Query) writeWhere(b *strings.Builder) []any {
	var args []any
	for n, p := range q.preds {
		if n == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		col := quoteIdent(q.entity.attrs[p.attr].Name)
		switch {
		case p.in && len(p.values) == 0:
			b.WriteString("1 = 0")
		case p.in:
			b.WriteString(col)
			b.WriteString(" IN (")
			b.WriteString(placeholders(len(p.values)))
			b.WriteString(")")
			args = append(args, p.values...)
		case p.values[0] == nil && p.op == OpEq:
			b.WriteString(col + " IS NULL")
		case p.values[0] == nil:
			b.WriteString(col + " IS NOT NULL")
		default:
			b.WriteString(col + " " + string(p.op) + " ?")
			args = append(args, p.values[0])
		}
	}
	return args
}

func (q Query) writeOrder(b *strings.Builder) {
	for n, o := range q.orders {
		if n == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(q.entity.attrs[o.attr].Name))
		if o.dir == Desc {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}
}

func (q Query) writeLimit(b *strings.Builder, args []any) []any {
	switch {
	case q.limit >= 0:
		b.WriteString(" LIMIT ?")
		args = append(args, q.limit)
	case q.offset > 0:
		// SQLite needs a LIMIT clause before OFFSET; -1 means no limit.
		b.WriteString(" LIMIT -1")
	}
	if q.offset > 0 {
		b.WriteString(" OFFSET ?")
		args = append(args, q.offset)
	}
	return args
}

// All runs the query and returns every matching record, each marked persisted.
func (q Query) All(ctx context.Context) ([]*Record, error) {
	query, args, err := q.SQL()
	if err != nil {
		return nil, err
	}

	conn, err := q.entity.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", q.entity.name, err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", q.entity.name, err)
	}
	return q.entity.materialize(rows)
}

// First returns the first matching record or a *types.NotFoundError.
func (q Query) First(ctx context.Context) (*Record, error) {
	records, err := q.Limit(1).All(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &types.NotFoundError{Entity: q.entity.name}
	}
	return records[0], nil
}

// Count returns the number of matching rows, honoring limit and offset.
func (q Query) Count(ctx context.Context) (int64, error) {
	inner, args, err := q.SQL()
	if err != nil {
		return 0, err
	}
	query := "SELECT COUNT(*) FROM (" + inner + ")"

	conn, err := q.entity.db.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", q.entity.name, err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", q.entity.name, err)
	}
	if rows.Len() != 1 || len(rows.Values[0]) != 1 {
		return 0, fmt.Errorf("counting %s: unexpected result shape", q.entity.name)
	}
	n, ok := rows.Values[0][0].(int64)
	if !ok {
		return 0, fmt.Errorf("counting %s: unexpected count %T", q.entity.name, rows.Values[0][0])
	}
	return n, nil
}

// Exists reports whether any row matches.
func (q Query) Exists(ctx context.Context) (bool, error) {
	n, err := q.Limit(1).Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// All returns every record of the entity type.
func (e *EntityType) All(ctx context.Context) ([]*Record, error) {
	return e.Query().All(ctx)
}

// FindBy returns the first record whose attribute equals value.
func (e *EntityType) FindBy(ctx context.Context, attr string, value any) (*Record, error) {
	return e.Query().Where(attr, value).First(ctx)
}

// FindByID returns the record with the given primary key or a
// *types.NotFoundError naming the key.
func (e *EntityType) FindByID(ctx context.Context, id any) (*Record, error) {
	if e.pk < 0 {
		return nil, e.errNoPrimaryKey("find")
	}
	if id == nil {
		return nil, &types.NotFoundError{Entity: e.name}
	}
	r, err := e.Query().Where(e.attrs[e.pk].Name, id).First(ctx)
	if err != nil {
		if nf, ok := err.(*types.NotFoundError); ok {
			nf.Key = formatValue(id)
		}
		return nil, err
	}
	return r, nil
}

// materialize turns result rows into persisted records.
func (e *EntityType) materialize(rows *types.Rows) ([]*Record, error) {
	records := make([]*Record, 0, rows.Len())
	for _, row := range rows.Values {
		r := e.New()
		if err := r.load(row); err != nil {
			return nil, err
		}
		r.persisted = true
		records = append(records, r)
	}
	return records, nil
}
