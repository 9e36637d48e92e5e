package record

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/records/internal/sqlite"
	"github.com/mesh-intelligence/records/pkg/types"
)

// peopleDDL is the table most tests map.
const peopleDDL = `CREATE TABLE people (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    email VARCHAR(255),
    age INTEGER,
    score REAL,
    active BOOLEAN NOT NULL DEFAULT 1,
    avatar BLOB,
    born_at DATETIME
)`

// setupPool attaches a pool on a fresh database file and runs ddl.
func setupPool(t *testing.T, size int, timeout time.Duration, ddl ...string) *sqlite.Pool {
	t.Helper()
	p := sqlite.NewPool()
	require.NoError(t, p.Attach(types.Config{
		Backend:        types.BackendSQLite,
		DataDir:        t.TempDir(),
		PoolSize:       size,
		AcquireTimeout: timeout,
	}))
	t.Cleanup(func() { p.Detach() })
	for _, stmt := range ddl {
		_, err := p.Exec(context.Background(), stmt)
		require.NoError(t, err)
	}
	return p
}

// setupPeople defines the Person entity over a fresh people table.
func setupPeople(t *testing.T, opts ...Option) (*EntityType, *sqlite.Pool) {
	t.Helper()
	p := setupPool(t, 2, time.Second, peopleDDL)
	people, err := Define(context.Background(), p, "Person", opts...)
	require.NoError(t, err)
	return people, p
}

// peopleColumns mirrors what the catalog reports for peopleDDL.
var peopleColumns = []types.Column{
	{Name: "id", DeclType: "INTEGER", Type: types.ValueTypeInteger, PrimaryKey: 1},
	{Name: "name", DeclType: "TEXT", Type: types.ValueTypeText, NotNull: true},
	{Name: "email", DeclType: "VARCHAR(255)", Type: types.ValueTypeText},
	{Name: "age", DeclType: "INTEGER", Type: types.ValueTypeInteger},
	{Name: "score", DeclType: "REAL", Type: types.ValueTypeReal},
	{Name: "active", DeclType: "BOOLEAN", Type: types.ValueTypeBoolean, NotNull: true, HasDefault: true},
	{Name: "avatar", DeclType: "BLOB", Type: types.ValueTypeBlob},
	{Name: "born_at", DeclType: "DATETIME", Type: types.ValueTypeTime},
}

// spyDB is a fake database that records every acquisition and statement.
// Catalog answers come from columns; query results from rows.
type spyDB struct {
	mu         sync.Mutex
	columns    map[string][]types.Column
	rows       *types.Rows
	result     types.Result
	execErr    error
	acquires   int
	statements []spyStatement
}

type spyStatement struct {
	query string
	args  []any
}

func newSpyDB() *spyDB {
	return &spyDB{
		columns: map[string][]types.Column{"people": peopleColumns},
		rows:    &types.Rows{},
		result:  types.Result{LastInsertID: 1, RowsAffected: 1},
	}
}

func (s *spyDB) TableInfo(ctx context.Context, table string) ([]types.Column, error) {
	return s.columns[table], nil
}

func (s *spyDB) Acquire(ctx context.Context) (types.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquires++
	return &spyConn{db: s}, nil
}

func (s *spyDB) Statements() []spyStatement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]spyStatement(nil), s.statements...)
}

func (s *spyDB) Acquires() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquires
}

type spyConn struct {
	db       *spyDB
	released bool
}

func (c *spyConn) Exec(ctx context.Context, query string, args ...any) (types.Result, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	c.db.statements = append(c.db.statements, spyStatement{query: query, args: args})
	if c.db.execErr != nil {
		return types.Result{}, &types.StatementError{Query: query, Err: c.db.execErr}
	}
	return c.db.result, nil
}

func (c *spyConn) Query(ctx context.Context, query string, args ...any) (*types.Rows, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	c.db.statements = append(c.db.statements, spyStatement{query: query, args: args})
	return c.db.rows, nil
}

func (c *spyConn) Release() { c.released = true }
