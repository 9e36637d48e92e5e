package types

import "context"

// Conn is one pooled database connection checked out for the duration of a
// single record operation. Every statement of that operation runs on the same
// Conn; the holder must call Release on every exit path.
type Conn interface {
	// Exec runs a statement that returns no rows.
	// Driver failures are returned as *StatementError.
	Exec(ctx context.Context, query string, args ...any) (Result, error)

	// Query runs a statement and materializes every returned row before
	// returning. Driver failures are returned as *StatementError.
	Query(ctx context.Context, query string, args ...any) (*Rows, error)

	// Release returns the connection to its pool. Release is idempotent.
	Release()
}

// Connector hands out pooled connections.
type Connector interface {
	// Acquire blocks until a connection is free, the context ends, or the
	// configured acquire timeout elapses. On timeout it returns
	// *ConnectionTimeoutError.
	Acquire(ctx context.Context) (Conn, error)
}

// Catalog reads table metadata from the database.
type Catalog interface {
	// TableInfo returns the columns of table in declaration order.
	// A missing table yields an empty slice and no error.
	TableInfo(ctx context.Context, table string) ([]Column, error)
}

// Database is the full contract an entity type needs: connections for reads
// and writes plus catalog access for schema discovery.
type Database interface {
	Connector
	Catalog
}

// Result summarizes an executed statement.
type Result struct {
	LastInsertID int64
	RowsAffected int64
}

// Rows holds a fully read result set. Values[i][j] is the raw driver value of
// column Columns[j] in row i.
type Rows struct {
	Columns []string
	Values  [][]any
}

// Len returns the number of rows.
func (r *Rows) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Values)
}
