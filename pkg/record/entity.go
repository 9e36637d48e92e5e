package record

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/mesh-intelligence/records/pkg/types"
)

// Attribute describes one column of an entity type's table.
type Attribute struct {
	Name       string          `json:"name" yaml:"name"`
	Type       types.ValueType `json:"type" yaml:"type"`
	Nullable   bool            `json:"nullable" yaml:"nullable"`
	PrimaryKey bool            `json:"primary_key" yaml:"primary_key"`
	HasDefault bool            `json:"has_default" yaml:"has_default"`
}

// acceptsNil reports whether nil may be stored in the attribute. Keys and
// columns with a database default accept nil so the database can fill them
// in on insert.
func (a Attribute) acceptsNil() bool {
	return a.Nullable || a.PrimaryKey || a.HasDefault
}

// EntityType maps one table to a fixed, ordered set of attributes. It is
// built once by Define and never changes afterwards, so a single *EntityType
// may be shared by any number of goroutines.
type EntityType struct {
	name   string
	table  string
	attrs  []Attribute
	index  map[string]int
	pk     int // Index into attrs, -1 when the entity has no primary key.
	rules  []Rule
	db     types.Connector
	logger *slog.Logger

	// rowidKey is set when the key is declared exactly INTEGER and is the
	// whole catalog key, making it SQLite's rowid alias. In a WITHOUT ROWID
	// table the omitted key then fails its NOT NULL constraint on insert.
	rowidKey bool
}

// Option configures Define.
type Option func(*options)

type options struct {
	table        string
	primaryKey   string
	noPrimaryKey bool
	rules        []Rule
	logger       *slog.Logger
}

// WithTable maps the entity to table instead of the derived table name.
func WithTable(table string) Option {
	return func(o *options) { o.table = table }
}

// WithPrimaryKey designates the named column as the primary key, overriding
// what the catalog reports.
func WithPrimaryKey(name string) Option {
	return func(o *options) {
		o.primaryKey = name
		o.noPrimaryKey = false
	}
}

// WithoutPrimaryKey defines the entity with no primary key even if the table
// has one. Key-dependent operations then fail with types.ErrNoPrimaryKey.
func WithoutPrimaryKey() Option {
	return func(o *options) {
		o.noPrimaryKey = true
		o.primaryKey = ""
	}
}

// WithRules registers validation rules. Rules run in registration order.
func WithRules(rules ...Rule) Option {
	return func(o *options) { o.rules = append(o.rules, rules...) }
}

// WithLogger sets the logger used for persistence events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// TableName derives the table name for an entity name: lower-cased and
// pluralized ("Person" maps to "people").
func TableName(entity string) string {
	return inflection.Plural(strings.ToLower(entity))
}

// Define reads the table's columns from the catalog once and returns the
// entity type. Every failure is a *types.SchemaError: the caller is expected
// to treat it as fatal at startup.
func Define(ctx context.Context, db types.Database, name string, opts ...Option) (*EntityType, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if name == "" {
		return nil, &types.SchemaError{Table: o.table, Reason: "entity name must not be empty"}
	}
	table := o.table
	if table == "" {
		table = TableName(name)
	}

	columns, err := db.TableInfo(ctx, table)
	if err != nil {
		return nil, &types.SchemaError{Table: table, Reason: "reading catalog", Err: err}
	}
	if len(columns) == 0 {
		return nil, &types.SchemaError{Table: table, Reason: "table does not exist"}
	}

	e := &EntityType{
		name:   name,
		table:  table,
		attrs:  make([]Attribute, 0, len(columns)),
		index:  make(map[string]int, len(columns)),
		pk:     -1,
		rules:  o.rules,
		db:     db,
		logger: o.logger,
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}

	var keyColumns []int
	for i, col := range columns {
		if col.Type == "" || !col.Type.Valid() {
			return nil, &types.SchemaError{
				Table:  table,
				Reason: fmt.Sprintf("column %q has unresolvable type %q", col.Name, col.DeclType),
			}
		}
		if _, dup := e.index[col.Name]; dup {
			return nil, &types.SchemaError{Table: table, Reason: fmt.Sprintf("duplicate column %q", col.Name)}
		}
		e.index[col.Name] = i
		e.attrs = append(e.attrs, Attribute{
			Name:       col.Name,
			Type:       col.Type,
			Nullable:   !col.NotNull && col.PrimaryKey == 0,
			HasDefault: col.HasDefault,
		})
		if col.PrimaryKey > 0 {
			keyColumns = append(keyColumns, i)
		}
	}

	switch {
	case o.noPrimaryKey:
		// Keyless by configuration.
	case o.primaryKey != "":
		i, ok := e.index[o.primaryKey]
		if !ok {
			return nil, &types.SchemaError{
				Table:  table,
				Reason: fmt.Sprintf("primary key column %q does not exist", o.primaryKey),
			}
		}
		e.pk = i
	case len(keyColumns) == 1:
		e.pk = keyColumns[0]
	case len(keyColumns) > 1:
		return nil, &types.SchemaError{Table: table, Reason: "composite primary keys are not supported"}
	}

	if e.pk >= 0 && len(keyColumns) == 1 && keyColumns[0] == e.pk {
		e.rowidKey = strings.EqualFold(strings.TrimSpace(columns[e.pk].DeclType), "INTEGER")
	}

	// Only the designated key is flagged; columns that are part of a
	// catalog key but not designated keep their declared nullability.
	for i := range e.attrs {
		e.attrs[i].PrimaryKey = i == e.pk
		if i == e.pk {
			e.attrs[i].Nullable = false
		}
	}

	e.logger.Debug("entity type defined", "entity", name, "table", table, "attributes", len(e.attrs))
	return e, nil
}

// MustDefine is like Define but panics on error. It is intended for
// program startup, where a table that cannot be mapped is fatal.
func MustDefine(ctx context.Context, db types.Database, name string, opts ...Option) *EntityType {
	e, err := Define(ctx, db, name, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Name returns the entity name.
func (e *EntityType) Name() string { return e.name }

// Table returns the mapped table name.
func (e *EntityType) Table() string { return e.table }

// Attributes returns a copy of the attribute definitions in column order.
func (e *EntityType) Attributes() []Attribute {
	out := make([]Attribute, len(e.attrs))
	copy(out, e.attrs)
	return out
}

// Attribute returns the definition of the named attribute.
func (e *EntityType) Attribute(name string) (Attribute, bool) {
	i, ok := e.index[name]
	if !ok {
		return Attribute{}, false
	}
	return e.attrs[i], true
}

// PrimaryKey returns the primary key attribute, if the entity has one.
func (e *EntityType) PrimaryKey() (Attribute, bool) {
	if e.pk < 0 {
		return Attribute{}, false
	}
	return e.attrs[e.pk], true
}

// lookup resolves an attribute name to its index.
func (e *EntityType) lookup(name string) (int, error) {
	i, ok := e.index[name]
	if !ok {
		return -1, &types.UnknownAttributeError{Entity: e.name, Attribute: name}
	}
	return i, nil
}

// errNoPrimaryKey reports a key-dependent operation on a keyless entity.
func (e *EntityType) errNoPrimaryKey(op string) error {
	return fmt.Errorf("%s %s: %w", op, e.name, types.ErrNoPrimaryKey)
}
