package record

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/records/pkg/types"
)

// Save validates the record and writes it: INSERT for a record with no
// stored row, UPDATE of every non-key attribute otherwise.
//
// A failed validation returns false with a nil error; the reasons are in
// Errors and no connection is touched. Database failures return false and
// the error. Save never retries, and a failed INSERT must not be repeated
// blindly: check IsPersisted first.
func (r *Record) Save(ctx context.Context) (bool, error) {
	if !r.Valid() {
		r.entity.logger.Debug("save skipped: record invalid",
			"entity", r.entity.name, "errors", r.errors.Len())
		return false, nil
	}
	if r.persisted {
		if err := r.update(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
	if err := r.insert(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Create builds a record from attrs and saves it. A validation failure is
// returned as *types.ValidationError alongside the unsaved record.
func (e *EntityType) Create(ctx context.Context, attrs map[string]any) (*Record, error) {
	r, err := e.Build(attrs)
	if err != nil {
		return nil, err
	}
	ok, err := r.Save(ctx)
	if err != nil {
		return r, err
	}
	if !ok {
		return r, &types.ValidationError{Entity: e.name, Messages: r.errors.FullMessages()}
	}
	return r, nil
}

// insert writes a new row and reconciles the primary key. A nil text key is
// filled with a UUID v7 before the INSERT; a nil integer key is left to SQLite
// only when it aliases the rowid. Any other nil key fails before a connection
// is acquired. Columns the database supplies (the rowid key, defaults of
// nil attributes not explicitly set to NULL) are read back by key on the
// same connection.
func (r *Record) insert(ctx context.Context) error {
	e := r.entity
	values := make([]any, len(r.values))
	copy(values, r.values)

	generated := false
	if e.pk >= 0 && values[e.pk] == nil {
		switch {
		case e.attrs[e.pk].Type == types.ValueTypeText:
			id, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("generating UUID v7: %w", err)
			}
			values[e.pk] = id.String()
		case e.rowidKey:
			generated = true
		default:
			return fmt.Errorf("inserting %s: %w: %s is not generated by the database",
				e.name, types.ErrKeyRequired, e.attrs[e.pk].Name)
		}
	}

	var (
		cols    []string
		args    []any
		omitted = generated
	)
	for i, attr := range e.attrs {
		if i == e.pk && generated {
			continue
		}
		// An assigned nil on a nullable column is a NULL the caller asked
		// for; a NOT NULL column can only mean its default.
		if values[i] == nil && attr.HasDefault && (!r.assigned[i] || !attr.Nullable) {
			omitted = true
			continue
		}
		cols = append(cols, quoteIdent(attr.Name))
		args = append(args, values[i])
	}

	var query string
	if len(cols) == 0 {
		query = "INSERT INTO " + quoteIdent(e.table) + " DEFAULT VALUES"
	} else {
		query = "INSERT INTO " + quoteIdent(e.table) +
			" (" + strings.Join(cols, ", ") + ") VALUES (" + placeholders(len(cols)) + ")"
	}

	conn, err := e.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("inserting %s: %w", e.name, err)
	}
	defer conn.Release()

	res, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("inserting %s: %w", e.name, err)
	}
	if generated {
		values[e.pk] = res.LastInsertID
	}

	if omitted {
		// Keyed tables are read back by key: WITHOUT ROWID tables have no rowid,
		// and keyless ones can only be found by it.
		where, key := "rowid", any(res.LastInsertID)
		if e.pk >= 0 {
			where, key = quoteIdent(e.attrs[e.pk].Name), values[e.pk]
		}
		rows, err := conn.Query(ctx,
			"SELECT "+e.columnList()+" FROM "+quoteIdent(e.table)+" WHERE "+where+" = ?", key)
		if err != nil {
			return fmt.Errorf("reading back %s: %w", e.name, err)
		}
		if rows.Len() == 1 {
			fresh := e.New()
			if err := fresh.load(rows.Values[0]); err != nil {
				return err
			}
			values = fresh.values
		}
	}

	r.values = values
	r.markAssigned()
	r.persisted = true
	r.destroyed = false
	e.logger.Debug("record inserted", "entity", e.name, "id", r.idString())
	return nil
}

// update writes every non-key attribute keyed by the primary key. Repeating
// an update with unchanged values is harmless.
func (r *Record) update(ctx context.Context) error {
	e := r.entity
	if e.pk < 0 {
		return e.errNoPrimaryKey("update")
	}

	var (
		sets []string
		args []any
	)
	for i, attr := range e.attrs {
		if i == e.pk {
			continue
		}
		sets = append(sets, quoteIdent(attr.Name)+" = ?")
		args = append(args, r.values[i])
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, r.values[e.pk])
	query := "UPDATE " + quoteIdent(e.table) + " SET " + strings.Join(sets, ", ") +
		" WHERE " + quoteIdent(e.attrs[e.pk].Name) + " = ?"

	conn, err := e.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("updating %s: %w", e.name, err)
	}
	defer conn.Release()

	res, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating %s: %w", e.name, err)
	}
	if res.RowsAffected == 0 {
		return &types.NotFoundError{Entity: e.name, Key: r.idString()}
	}
	e.logger.Debug("record updated", "entity", e.name, "id", r.idString())
	return nil
}

// Destroy deletes the record's row. The record keeps its values, including
// the key, but is no longer persisted. Destroy on a record that was never
// saved returns *types.NotPersistedError.
func (r *Record) Destroy(ctx context.Context) error {
	e := r.entity
	if !r.persisted {
		return &types.NotPersistedError{Entity: e.name, Operation: "destroy"}
	}
	if e.pk < 0 {
		return e.errNoPrimaryKey("destroy")
	}

	conn, err := e.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", e.name, err)
	}
	defer conn.Release()

	query := "DELETE FROM " + quoteIdent(e.table) + " WHERE " + quoteIdent(e.attrs[e.pk].Name) + " = ?"
	res, err := conn.Exec(ctx, query, r.values[e.pk])
	if err != nil {
		return fmt.Errorf("deleting %s: %w", e.name, err)
	}
	if res.RowsAffected == 0 {
		return &types.NotFoundError{Entity: e.name, Key: r.idString()}
	}

	r.persisted = false
	r.destroyed = true
	e.logger.Debug("record destroyed", "entity", e.name, "id", r.idString())
	return nil
}

// Reload replaces the record's values with its stored row.
func (r *Record) Reload(ctx context.Context) error {
	e := r.entity
	if !r.persisted {
		return &types.NotPersistedError{Entity: e.name, Operation: "reload"}
	}
	if e.pk < 0 {
		return e.errNoPrimaryKey("reload")
	}
	fresh, err := e.FindByID(ctx, r.values[e.pk])
	if err != nil {
		return err
	}
	r.values = fresh.values
	r.markAssigned()
	return nil
}

// idString renders the key for logs and errors, "" for keyless entities.
func (r *Record) idString() string {
	if r.entity.pk < 0 {
		return ""
	}
	return formatValue(r.values[r.entity.pk])
}
