// Package sqlite implements the connection manager of the records module on
// top of SQLite: a bounded pool of database connections, scoped acquisition
// with a timeout, statement execution and catalog access.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/records/pkg/types"
)

// driverName is the database/sql driver registered by modernc.org/sqlite.
const driverName = "sqlite"

// defaultPragmas are applied to every connection the driver opens when the
// DSN does not carry its own query string.
const defaultPragmas = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// Compile-time interface checks.
var (
	_ types.Database = (*Pool)(nil)
	_ types.Conn     = (*Conn)(nil)
)

// Pool owns the database handle and bounds how many connections are checked
// out at once. A slot is taken before a connection is opened and given back
// when the connection is released.
type Pool struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	slots    chan struct{}
	timeout  time.Duration
	logger   *slog.Logger
}

// NewPool creates a new connection pool.
// The pool is not attached; call Attach with a Config to open the database.
func NewPool() *Pool {
	return &Pool{}
}

// Attach opens the database described by config.
// Creates DataDir if it does not exist and no explicit DSN is given.
// Returns ErrAlreadyAttached if already attached.
func (p *Pool) Attach(config types.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	if config.DSN == "" && config.DataDir != "" {
		if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := config.DataSource()
	if !strings.Contains(dsn, "?") {
		dsn += "?" + defaultPragmas
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	size := config.GetPoolSize()
	db.SetMaxOpenConns(size)
	db.SetMaxIdleConns(size)

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	p.db = db
	p.config = config
	p.slots = make(chan struct{}, size)
	p.timeout = config.AcquireTimeout
	p.logger = config.GetLogger()
	p.attached = true

	p.logger.Info("connection pool attached",
		"dsn", config.DataSource(), "pool_size", size, "acquire_timeout", p.timeout)
	return nil
}

// Detach closes the database. Connections still checked out fail on their
// next statement. Detach is idempotent.
func (p *Pool) Detach() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.attached {
		return nil
	}

	p.attached = false
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("close database: %w", err)
		}
		p.db = nil
	}
	p.logger.Info("connection pool detached")
	return nil
}

// Config returns the configuration the pool was attached with.
func (p *Pool) Config() types.Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config
}

// Acquire checks out one connection. It blocks while every slot is in use,
// failing with *types.ConnectionTimeoutError once the acquire timeout elapses
// or with the context's error if ctx ends first.
func (p *Pool) Acquire(ctx context.Context) (types.Conn, error) {
	p.mu.RLock()
	if !p.attached {
		p.mu.RUnlock()
		return nil, types.ErrDetached
	}
	db, slots, timeout, logger := p.db, p.slots, p.timeout, p.logger
	p.mu.RUnlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-expired:
		logger.Warn("connection pool exhausted", "waited", timeout, "pool_size", cap(slots))
		return nil, &types.ConnectionTimeoutError{Waited: timeout}
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		<-slots
		return nil, fmt.Errorf("open connection: %w", err)
	}
	return &Conn{conn: conn, slots: slots, logger: logger}, nil
}

// Exec runs a single statement on a freshly acquired connection and releases
// it. It is meant for setup work such as DDL; record operations acquire a
// connection themselves.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (types.Result, error) {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return types.Result{}, err
	}
	defer conn.Release()
	return conn.Exec(ctx, query, args...)
}

// Conn is a pooled connection. It is not safe for concurrent use.
type Conn struct {
	conn   *sql.Conn
	slots  chan struct{}
	logger *slog.Logger
	once   sync.Once
}

// Exec runs a statement that returns no rows.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (types.Result, error) {
	c.logger.Debug("exec", "query", query, "args", len(args))
	res, err := c.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return types.Result{}, &types.StatementError{Query: query, Err: err}
	}

	var out types.Result
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	return out, nil
}

// Query runs a statement and reads every row before returning, so the
// connection carries no open cursor afterwards.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*types.Rows, error) {
	c.logger.Debug("query", "query", query, "args", len(args))
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &types.StatementError{Query: query, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	out := &types.Rows{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out.Values = append(out.Values, values)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StatementError{Query: query, Err: err}
	}
	return out, nil
}

// Release closes the underlying connection handle (returning it to the
// database/sql idle set) and frees the pool slot. Release is idempotent.
func (c *Conn) Release() {
	c.once.Do(func() {
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("release connection", "error", err)
		}
		<-c.slots
	})
}
