package jsonl

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/records/internal/sqlite"
	"github.com/mesh-intelligence/records/pkg/record"
	"github.com/mesh-intelligence/records/pkg/types"
)

const peopleDDL = `CREATE TABLE people (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    score REAL,
    active BOOLEAN NOT NULL DEFAULT 1,
    avatar BLOB,
    born_at DATETIME
)`

// setupPeople defines Person over a fresh database file.
func setupPeople(t *testing.T) *record.EntityType {
	t.Helper()
	ctx := context.Background()
	p := sqlite.NewPool()
	require.NoError(t, p.Attach(types.DefaultConfig(t.TempDir())))
	t.Cleanup(func() { p.Detach() })

	_, err := p.Exec(ctx, peopleDDL)
	require.NoError(t, err)
	people, err := record.Define(ctx, p, "Person")
	require.NoError(t, err)
	return people
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := setupPeople(t)
	born := time.Date(1815, 12, 10, 8, 30, 0, 0, time.UTC)

	_, err := src.Create(ctx, map[string]any{
		"name": "Ada", "score": 9.5, "active": false,
		"avatar": []byte{0, 1, 2, 255}, "born_at": born,
	})
	require.NoError(t, err)
	_, err = src.Create(ctx, map[string]any{"name": "Grace"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "people.jsonl")
	n, err := Export(ctx, src.Query().Order("id", record.Asc), path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"name":"Ada"`)
	assert.Contains(t, lines[0], `"avatar":"AAEC/w=="`)

	dst := setupPeople(t)
	res, err := Import(ctx, dst, path)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 2}, res)

	ada, err := dst.FindByID(ctx, 1)
	require.NoError(t, err)
	name, _ := ada.String("name")
	score, _ := ada.Float("score")
	active, _ := ada.Bool("active")
	avatar, _ := ada.Bytes("avatar")
	gotBorn, _ := ada.Time("born_at")
	assert.Equal(t, "Ada", name)
	assert.Equal(t, 9.5, score)
	assert.False(t, active)
	assert.Equal(t, []byte{0, 1, 2, 255}, avatar)
	assert.True(t, born.Equal(gotBorn), "born_at: want %v, got %v", born, gotBorn)

	grace, err := dst.FindByID(ctx, 2)
	require.NoError(t, err)
	isNull, _ := grace.IsNull("avatar")
	assert.True(t, isNull)
}

func TestExportReplacesFile(t *testing.T) {
	ctx := context.Background()
	people := setupPeople(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "people.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o644))

	n, err := Export(ctx, people.Query(), path)
	require.NoError(t, err)
	assert.Zero(t, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestExportQueryError(t *testing.T) {
	people := setupPeople(t)
	path := filepath.Join(t.TempDir(), "people.jsonl")

	_, err := Export(context.Background(), people.Query().Where("nickname", "x"), path)
	assert.ErrorIs(t, err, types.ErrUnknownAttribute)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestImportSkipsMalformedLines(t *testing.T) {
	ctx := context.Background()
	people := setupPeople(t)
	path := filepath.Join(t.TempDir(), "people.jsonl")
	content := strings.Join([]string{
		`{"name":"Ada"}`,
		``,
		`{"name":`,
		`{"name":"Grace","score":7}`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	res, err := Import(ctx, people, path)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 2, Skipped: 2}, res)

	grace, err := people.FindBy(ctx, "name", "Grace")
	require.NoError(t, err)
	score, _ := grace.Float("score")
	assert.Equal(t, 7.0, score)
}

func TestImportStopsAtBadRecord(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr error
	}{
		{"unknown attribute", `{"name":"Grace","nickname":"amazing"}`, types.ErrUnknownAttribute},
		{"wrong type", `{"name":42}`, types.ErrTypeMismatch},
		{"constraint violation", `{"score":1.5}`, types.ErrStatement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			people := setupPeople(t)
			path := filepath.Join(t.TempDir(), "people.jsonl")
			content := `{"name":"Ada"}` + "\n" + tt.line + "\n" + `{"name":"Linus"}` + "\n"
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			res, err := Import(ctx, people, path)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), path+":2:")
			assert.Equal(t, 1, res.Created)

			n, err := people.Query().Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n, "records before the bad line stay created")
		})
	}
}

func TestImportMissingFile(t *testing.T) {
	people := setupPeople(t)

	_, err := Import(context.Background(), people, filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
