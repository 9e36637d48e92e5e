package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/records/pkg/types"
)

func TestResolveType(t *testing.T) {
	tests := []struct {
		declType string
		want     types.ValueType
	}{
		{"INTEGER", types.ValueTypeInteger},
		{"int", types.ValueTypeInteger},
		{"BIGINT", types.ValueTypeInteger},
		{"VARCHAR(255)", types.ValueTypeText},
		{"TEXT", types.ValueTypeText},
		{"CLOB", types.ValueTypeText},
		{"BLOB", types.ValueTypeBlob},
		{"REAL", types.ValueTypeReal},
		{"DOUBLE PRECISION", types.ValueTypeReal},
		{"FLOAT", types.ValueTypeReal},
		{"NUMERIC(10,2)", types.ValueTypeReal},
		{"BOOLEAN", types.ValueTypeBoolean},
		{"DATETIME", types.ValueTypeTime},
		{"TIMESTAMP", types.ValueTypeTime},
		{"DATE", types.ValueTypeTime},
		{"", ""},
		{"JSONB", ""},
	}
	for _, tt := range tests {
		t.Run(tt.declType, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveType(tt.declType))
		})
	}
}

func TestPool_TableInfo(t *testing.T) {
	p := setupPool(t, 2, time.Second)
	ctx := context.Background()

	_, err := p.Exec(ctx, `CREATE TABLE people (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    email VARCHAR(255),
    active BOOLEAN NOT NULL DEFAULT 1,
    born_at DATETIME
)`)
	require.NoError(t, err)

	cols, err := p.TableInfo(ctx, "people")
	require.NoError(t, err)
	require.Len(t, cols, 5)

	assert.Equal(t, types.Column{Name: "id", DeclType: "INTEGER", Type: types.ValueTypeInteger, PrimaryKey: 1}, cols[0])
	assert.Equal(t, types.Column{Name: "name", DeclType: "TEXT", Type: types.ValueTypeText, NotNull: true}, cols[1])
	assert.Equal(t, types.ValueTypeText, cols[2].Type)
	assert.False(t, cols[2].NotNull)
	assert.Equal(t, types.Column{Name: "active", DeclType: "BOOLEAN", Type: types.ValueTypeBoolean, NotNull: true, HasDefault: true}, cols[3])
	assert.Equal(t, types.ValueTypeTime, cols[4].Type)
}

func TestPool_TableInfoMissingTable(t *testing.T) {
	p := setupPool(t, 1, time.Second)

	cols, err := p.TableInfo(context.Background(), "nothing_here")
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestPool_TableInfoCompositeKey(t *testing.T) {
	p := setupPool(t, 1, time.Second)
	ctx := context.Background()

	_, err := p.Exec(ctx, `CREATE TABLE memberships (group_id INTEGER, user_id INTEGER, PRIMARY KEY (group_id, user_id))`)
	require.NoError(t, err)

	cols, err := p.TableInfo(ctx, "memberships")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, 1, cols[0].PrimaryKey)
	assert.Equal(t, 2, cols[1].PrimaryKey)
}
