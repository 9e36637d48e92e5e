// Package sqlite is the public entry point to the SQLite connection manager.
// It hands out an attached pool while keeping the implementation internal.
package sqlite

import (
	"context"

	"github.com/mesh-intelligence/records/internal/sqlite"
	"github.com/mesh-intelligence/records/pkg/types"
)

// Pool is an attached SQLite connection pool. It satisfies types.Database,
// so it can be passed straight to record.Define.
type Pool interface {
	types.Database

	// Exec runs one statement on its own connection, e.g. for DDL.
	Exec(ctx context.Context, query string, args ...any) (types.Result, error)

	// Detach closes the database. It is idempotent.
	Detach() error
}

// Open validates config and attaches a new pool.
//
// Example:
//
//	pool, err := sqlite.Open(types.DefaultConfig(".records-db"))
//	if err != nil {
//	    return err
//	}
//	defer pool.Detach()
//	people := record.MustDefine(ctx, pool, "Person")
func Open(config types.Config) (Pool, error) {
	p := sqlite.NewPool()
	if err := p.Attach(config); err != nil {
		return nil, err
	}
	return p, nil
}
