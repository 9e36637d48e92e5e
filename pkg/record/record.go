package record

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/mesh-intelligence/records/pkg/types"
)

// Record is one row of an entity type held in memory: a value for every
// declared attribute plus whether a stored row backs it. A Record is not safe
// for concurrent use; confine it to one goroutine at a time.
type Record struct {
	entity    *EntityType
	values    []any
	assigned  []bool // Set since New; unassigned nil columns take their database default on insert.
	persisted bool
	destroyed bool
	errors    Errors
}

// New returns a record with every attribute unset (nil).
func (e *EntityType) New() *Record {
	return &Record{
		entity:   e,
		values:   make([]any, len(e.attrs)),
		assigned: make([]bool, len(e.attrs)),
	}
}

// Build returns a new record with attrs assigned. Unknown names and values of
// the wrong type fail the whole build.
func (e *EntityType) Build(attrs map[string]any) (*Record, error) {
	r := e.New()
	if err := r.Assign(attrs); err != nil {
		return nil, err
	}
	return r, nil
}

// Entity returns the record's entity type.
func (r *Record) Entity() *EntityType { return r.entity }

// IsPersisted reports whether a stored row backs the record.
func (r *Record) IsPersisted() bool { return r.persisted }

// IsNewRecord reports whether the record has never been saved.
func (r *Record) IsNewRecord() bool { return !r.persisted && !r.destroyed }

// IsDestroyed reports whether the record's row was deleted by Destroy.
func (r *Record) IsDestroyed() bool { return r.destroyed }

// Get returns the value of the named attribute, nil when unset or NULL.
// Blobs are returned as copies.
func (r *Record) Get(name string) (any, error) {
	i, err := r.entity.lookup(name)
	if err != nil {
		return nil, err
	}
	return cloneValue(r.values[i]), nil
}

// Get returns the named attribute as T. A NULL value yields the zero T;
// use IsNull to tell the two apart. T must match the attribute's Go
// representation (int64, float64, string, []byte, bool or time.Time).
func Get[T any](r *Record, name string) (T, error) {
	var zero T
	i, err := r.entity.lookup(name)
	if err != nil {
		return zero, err
	}
	v := r.values[i]
	if v == nil {
		return zero, nil
	}
	t, ok := cloneValue(v).(T)
	if !ok {
		return zero, &types.TypeMismatchError{
			Attribute: name,
			Want:      r.entity.attrs[i].Type,
			Got:       fmt.Sprintf("%T", zero),
		}
	}
	return t, nil
}

// Int returns an integer attribute.
func (r *Record) Int(name string) (int64, error) { return Get[int64](r, name) }

// Float returns a real attribute.
func (r *Record) Float(name string) (float64, error) { return Get[float64](r, name) }

// String returns a text attribute.
func (r *Record) String(name string) (string, error) { return Get[string](r, name) }

// Bytes returns a blob attribute.
func (r *Record) Bytes(name string) ([]byte, error) { return Get[[]byte](r, name) }

// Bool returns a boolean attribute.
func (r *Record) Bool(name string) (bool, error) { return Get[bool](r, name) }

// Time returns a time attribute.
func (r *Record) Time(name string) (time.Time, error) { return Get[time.Time](r, name) }

// IsNull reports whether the named attribute holds no value.
func (r *Record) IsNull(name string) (bool, error) {
	v, err := r.Get(name)
	if err != nil {
		return false, err
	}
	return v == nil, nil
}

// Set stores value in the named attribute after checking it against the
// declared type.
func (r *Record) Set(name string, value any) error {
	i, err := r.entity.lookup(name)
	if err != nil {
		return err
	}
	v, err := conform(r.entity.attrs[i], value)
	if err != nil {
		return err
	}
	r.values[i] = v
	r.assigned[i] = true
	return nil
}

// Assign sets several attributes at once. Every name and value is checked
// before anything is stored, so a failed Assign leaves the record unchanged.
// Keys are checked in sorted order, making the reported error deterministic.
func (r *Record) Assign(attrs map[string]any) error {
	type staged struct {
		index int
		value any
	}
	pending := make([]staged, 0, len(attrs))
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		i, err := r.entity.lookup(name)
		if err != nil {
			return err
		}
		v, err := conform(r.entity.attrs[i], attrs[name])
		if err != nil {
			return err
		}
		pending = append(pending, staged{index: i, value: v})
	}
	for _, s := range pending {
		r.values[s.index] = s.value
		r.assigned[s.index] = true
	}
	return nil
}

// Attributes returns a copy of every attribute value keyed by name.
func (r *Record) Attributes() map[string]any {
	out := make(map[string]any, len(r.values))
	for i, attr := range r.entity.attrs {
		out[attr.Name] = cloneValue(r.values[i])
	}
	return out
}

// markAssigned flags every attribute as assigned, as after loading a stored
// row.
func (r *Record) markAssigned() {
	for i := range r.assigned {
		r.assigned[i] = true
	}
}

// cloneValue copies blobs so callers never share the stored slice.
func cloneValue(v any) any {
	if b, ok := v.([]byte); ok {
		return bytes.Clone(b)
	}
	return v
}

// ID returns the primary key value, nil when unset.
func (r *Record) ID() (any, error) {
	if r.entity.pk < 0 {
		return nil, r.entity.errNoPrimaryKey("id of")
	}
	return r.values[r.entity.pk], nil
}

// ToParam returns the primary key as a string, "" while the key is unset.
func (r *Record) ToParam() (string, error) {
	id, err := r.ID()
	if err != nil {
		return "", err
	}
	return formatValue(id), nil
}

// Inspect renders the record for logs and debugging, e.g.
// Person{id: 1, name: "Ada"}.
func (r *Record) Inspect() string {
	var b strings.Builder
	b.WriteString(r.entity.name)
	b.WriteByte('{')
	for i, attr := range r.entity.attrs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(attr.Name)
		b.WriteString(": ")
		switch v := r.values[i].(type) {
		case nil:
			b.WriteString("nil")
		case string:
			fmt.Fprintf(&b, "%q", v)
		default:
			b.WriteString(formatValue(v))
		}
	}
	b.WriteByte('}')
	return b.String()
}

// load replaces every value from a result row laid out in attribute order.
func (r *Record) load(row []any) error {
	if len(row) != len(r.entity.attrs) {
		return fmt.Errorf("loading %s: row has %d columns, want %d", r.entity.name, len(row), len(r.entity.attrs))
	}
	values := make([]any, len(row))
	for i, raw := range row {
		v, err := decode(r.entity.attrs[i], raw)
		if err != nil {
			return fmt.Errorf("loading %s: %w", r.entity.name, err)
		}
		values[i] = v
	}
	r.values = values
	r.markAssigned()
	return nil
}
