package record

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/records/pkg/types"
)

func TestTableName(t *testing.T) {
	tests := map[string]string{
		"Person":   "people",
		"Post":     "posts",
		"Category": "categories",
		"Status":   "statuses",
		"person":   "people",
	}
	for entity, want := range tests {
		assert.Equal(t, want, TableName(entity), entity)
	}
}

func TestDefine_IntrospectsTable(t *testing.T) {
	people, _ := setupPeople(t)

	assert.Equal(t, "Person", people.Name())
	assert.Equal(t, "people", people.Table())

	attrs := people.Attributes()
	require.Len(t, attrs, 8)
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = a.Name
	}
	assert.Equal(t, []string{"id", "name", "email", "age", "score", "active", "avatar", "born_at"}, names)

	pk, ok := people.PrimaryKey()
	require.True(t, ok)
	assert.Equal(t, Attribute{Name: "id", Type: types.ValueTypeInteger, PrimaryKey: true}, pk)

	name, ok := people.Attribute("name")
	require.True(t, ok)
	assert.Equal(t, Attribute{Name: "name", Type: types.ValueTypeText}, name)

	email, _ := people.Attribute("email")
	assert.True(t, email.Nullable)

	active, _ := people.Attribute("active")
	assert.Equal(t, types.ValueTypeBoolean, active.Type)
	assert.True(t, active.HasDefault)
	assert.False(t, active.Nullable)

	_, ok = people.Attribute("missing")
	assert.False(t, ok)
}

func TestDefine_AttributesReturnsCopy(t *testing.T) {
	people, _ := setupPeople(t)

	attrs := people.Attributes()
	attrs[0].Name = "mutated"

	assert.Equal(t, "id", people.Attributes()[0].Name)
}

func TestDefine_WithTable(t *testing.T) {
	p := setupPool(t, 1, time.Second, `CREATE TABLE staff (id INTEGER PRIMARY KEY, name TEXT)`)

	e, err := Define(context.Background(), p, "Person", WithTable("staff"))
	require.NoError(t, err)
	assert.Equal(t, "staff", e.Table())
}

func TestDefine_SchemaErrors(t *testing.T) {
	tests := []struct {
		name   string
		ddl    []string
		entity string
		opts   []Option
		reason string
	}{
		{
			name:   "missing table",
			entity: "Ghost",
			reason: "table does not exist",
		},
		{
			name:   "column without a type",
			ddl:    []string{`CREATE TABLE loose_rows (id INTEGER PRIMARY KEY, payload)`},
			entity: "LooseRow",
			reason: `column "payload" has unresolvable type ""`,
		},
		{
			name:   "column with an unknown type",
			ddl:    []string{`CREATE TABLE documents (id INTEGER PRIMARY KEY, body JSONB)`},
			entity: "Document",
			reason: `column "body" has unresolvable type "JSONB"`,
		},
		{
			name:   "composite primary key",
			ddl:    []string{`CREATE TABLE memberships (group_id INTEGER, user_id INTEGER, PRIMARY KEY (group_id, user_id))`},
			entity: "Membership",
			reason: "composite primary keys are not supported",
		},
		{
			name:   "designated key does not exist",
			ddl:    []string{`CREATE TABLE tags (name TEXT)`},
			entity: "Tag",
			opts:   []Option{WithPrimaryKey("slug")},
			reason: `primary key column "slug" does not exist`,
		},
		{
			name:   "empty entity name",
			entity: "",
			reason: "entity name must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := setupPool(t, 1, time.Second, tt.ddl...)

			_, err := Define(context.Background(), p, tt.entity, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrSchema)

			var schemaErr *types.SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, tt.reason, schemaErr.Reason)
		})
	}
}

func TestDefine_CatalogFailure(t *testing.T) {
	p := setupPool(t, 1, time.Second)
	require.NoError(t, p.Detach())

	_, err := Define(context.Background(), p, "Person")
	assert.ErrorIs(t, err, types.ErrSchema)
	assert.ErrorIs(t, err, types.ErrDetached)
}

func TestDefine_PrimaryKeyOptions(t *testing.T) {
	ddl := `CREATE TABLE memberships (group_id INTEGER, user_id INTEGER, role TEXT, PRIMARY KEY (group_id, user_id))`

	t.Run("without primary key", func(t *testing.T) {
		p := setupPool(t, 1, time.Second, ddl)
		e, err := Define(context.Background(), p, "Membership", WithoutPrimaryKey())
		require.NoError(t, err)
		_, ok := e.PrimaryKey()
		assert.False(t, ok)
	})

	t.Run("designated primary key", func(t *testing.T) {
		p := setupPool(t, 1, time.Second, ddl)
		e, err := Define(context.Background(), p, "Membership", WithPrimaryKey("group_id"))
		require.NoError(t, err)
		pk, ok := e.PrimaryKey()
		require.True(t, ok)
		assert.Equal(t, "group_id", pk.Name)

		other, _ := e.Attribute("user_id")
		assert.False(t, other.PrimaryKey)
	})
}

func TestDefine_KeylessTable(t *testing.T) {
	p := setupPool(t, 1, time.Second, `CREATE TABLE events (name TEXT NOT NULL, at DATETIME)`)
	ctx := context.Background()

	events, err := Define(ctx, p, "Event")
	require.NoError(t, err)
	_, ok := events.PrimaryKey()
	assert.False(t, ok)

	ev, err := events.Build(map[string]any{"name": "boot"})
	require.NoError(t, err)

	_, err = ev.ToParam()
	assert.ErrorIs(t, err, types.ErrNoPrimaryKey)

	// Inserts work without a key.
	saved, err := ev.Save(ctx)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.True(t, ev.IsPersisted())

	// Key-dependent operations fail explicitly.
	_, err = ev.Save(ctx)
	assert.ErrorIs(t, err, types.ErrNoPrimaryKey)
	assert.ErrorIs(t, ev.Destroy(ctx), types.ErrNoPrimaryKey)
	assert.ErrorIs(t, ev.Reload(ctx), types.ErrNoPrimaryKey)
	_, err = events.FindByID(ctx, 1)
	assert.ErrorIs(t, err, types.ErrNoPrimaryKey)

	n, err := events.Query().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMustDefine(t *testing.T) {
	p := setupPool(t, 1, time.Second, peopleDDL)

	assert.NotPanics(t, func() {
		MustDefine(context.Background(), p, "Person")
	})
	assert.Panics(t, func() {
		MustDefine(context.Background(), p, "Ghost")
	})
}

func TestDefine_AgainstSpyCatalog(t *testing.T) {
	spy := newSpyDB()

	people, err := Define(context.Background(), spy, "Person")
	require.NoError(t, err)
	assert.Len(t, people.Attributes(), len(peopleColumns))
	assert.Zero(t, spy.Acquires(), "Define reads only the catalog")
}
