package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("store is closed")

// Guard serializes all access to a single SQLite connection.
//
// The pool is limited to one connection and that connection is pinned for
// the guard's lifetime, so per-connection pragmas stay in effect and
// statements from different goroutines never interleave.
type Guard struct {
	mu     sync.Mutex
	path   string
	db     *sql.DB
	conn   *sql.Conn
	closed bool
}

// Open opens path and applies pragmas (e.g. "journal_mode = WAL") in order.
func Open(ctx context.Context, path string, pragmas ...string) (*Guard, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, "PRAGMA "+pragma); err != nil {
			conn.Close()
			db.Close()
			return nil, fmt.Errorf("failed to apply PRAGMA %s: %w", pragma, err)
		}
	}

	return &Guard{path: path, db: db, conn: conn}, nil
}

// Path returns the path the guard was opened with.
func (g *Guard) Path() string {
	return g.path
}

// Do runs fn with exclusive use of the connection.
func (g *Guard) Do(ctx context.Context, fn func(conn *sql.Conn) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrClosed
	}
	return fn(g.conn)
}

// InTx runs fn inside a transaction on conn. The transaction commits if fn
// returns nil and rolls back otherwise, including when fn panics.
func InTx(ctx context.Context, conn *sql.Conn, fn func(tx *sql.Tx) error) (err error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to roll back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close releases the connection and the pool. Calling Close again is a no-op.
func (g *Guard) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true

	return errors.Join(g.conn.Close(), g.db.Close())
}

// IsClosed reports whether Close has been called.
func (g *Guard) IsClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}
