package shelf

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/aigotowork/shelf/internal/codec"
	"github.com/aigotowork/shelf/internal/core"
	"github.com/aigotowork/shelf/internal/fsutil"
	"github.com/aigotowork/shelf/internal/index"
)

// store implements the Store interface.
type store struct {
	path   string
	config Config
	logger Logger
	guard  *core.Guard
	tables *core.TableManager
	chain  *codec.Chain

	views map[string]*namespace
	mu    sync.RWMutex
}

// openStore opens or creates a store.
func openStore(path string, opts ...Option) (Store, error) {
	// Apply options
	options := &storeOptions{
		config: DefaultConfig(),
		logger: NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(options)
	}

	// Validate before touching the file
	config := options.config
	if err := config.Validate(); err != nil {
		return nil, err
	}
	compression, err := codec.ParseCompression(config.Compression)
	if err != nil {
		return nil, err
	}

	resolved, err := fsutil.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	guard, err := core.Open(context.Background(), resolved, config.pragmas()...)
	if err != nil {
		return nil, wrapErr("open", "", err)
	}

	s := &store{
		path:   resolved,
		config: config,
		logger: options.logger,
		guard:  guard,
		tables: core.NewTableManager(),
		chain:  codec.NewChain(config.AllowObjects, compression, config.CompressionThreshold),
		views:  make(map[string]*namespace),
	}

	s.logger.Info("Store opened",
		Field{"path", resolved},
		Field{"compression", s.chain.Compression().String()},
		Field{"allow_objects", config.AllowObjects})

	return s, nil
}

// ========== Execution Helpers ==========

// read runs fn against an existing namespace table. fn is not called when
// the namespace has no table, which reads as an empty namespace.
func (s *store) read(op, ns string, fn func(ctx context.Context, conn *sql.Conn, t core.Table) error) error {
	ctx := context.Background()

	err := s.guard.Do(ctx, func(conn *sql.Conn) error {
		t, exists, err := s.tables.Lookup(ctx, conn, ns)
		if err != nil || !exists {
			return err
		}
		return fn(ctx, conn, t)
	})
	return wrapErr(op, ns, err)
}

// write runs fn in a transaction that also creates the namespace table if
// needed, so a failed first write leaves no empty namespace behind.
func (s *store) write(op, ns string, fn func(ctx context.Context, tx *sql.Tx, t core.Table) error) error {
	ctx := context.Background()

	err := s.guard.Do(ctx, func(conn *sql.Conn) error {
		var t core.Table
		created := false

		err := s.inTx(ctx, conn, op, ns, func(tx *sql.Tx) error {
			var err error
			t, created, err = s.tables.Ensure(ctx, tx, ns)
			if err != nil {
				return err
			}
			return fn(ctx, tx, t)
		})
		if err != nil {
			return err
		}

		s.tables.Remember(t)
		if created {
			s.logger.Debug("Namespace table created",
				Field{"namespace", ns},
				Field{"table", t.Name})
		}
		return nil
	})
	return wrapErr(op, ns, err)
}

// mutate runs fn in a transaction without creating the namespace table.
// exists reports whether the table was there; t is usable either way for
// naming but must not be queried when exists is false.
func (s *store) mutate(op, ns string, fn func(ctx context.Context, tx *sql.Tx, t core.Table, exists bool) error) error {
	ctx := context.Background()

	err := s.guard.Do(ctx, func(conn *sql.Conn) error {
		t, exists, err := s.tables.Lookup(ctx, conn, ns)
		if err != nil {
			return err
		}
		if !exists {
			return fn(ctx, nil, t, false)
		}
		return s.inTx(ctx, conn, op, ns, func(tx *sql.Tx) error {
			return fn(ctx, tx, t, true)
		})
	})
	return wrapErr(op, ns, err)
}

func (s *store) inTx(ctx context.Context, conn *sql.Conn, op, ns string, fn func(tx *sql.Tx) error) error {
	err := core.InTx(ctx, conn, fn)
	if err != nil {
		s.logger.Debug("Transaction rolled back",
			Field{"op", op},
			Field{"namespace", ns},
			Field{"error", err})
	}
	return err
}

// ========== Store-level Operations ==========

// ListNamespaces returns every namespace in the file, sorted.
func (s *store) ListNamespaces() ([]string, error) {
	ctx := context.Background()

	var names []string
	err := s.guard.Do(ctx, func(conn *sql.Conn) error {
		var err error
		names, err = index.ScanNamespaces(ctx, conn)
		return err
	})
	if err != nil {
		return nil, wrapErr("list namespaces", "", err)
	}
	return names, nil
}

// PurgeExpired deletes expired rows in every namespace.
func (s *store) PurgeExpired() (int, error) {
	ctx := context.Background()
	total := 0

	err := s.guard.Do(ctx, func(conn *sql.Conn) error {
		names, err := index.ScanNamespaces(ctx, conn)
		if err != nil {
			return err
		}

		return s.inTx(ctx, conn, "purge", "", func(tx *sql.Tx) error {
			now := core.NowMillis()
			for _, ns := range names {
				n, err := core.NewTable(ns).PurgeExpired(ctx, tx, now)
				if err != nil {
					return fmt.Errorf("namespace %q: %w", ns, err)
				}
				total += int(n)
			}
			return nil
		})
	})
	if err != nil {
		return 0, wrapErr("purge expired", "", err)
	}

	if total > 0 {
		s.logger.Info("Expired entries purged", Field{"count", total})
	}
	return total, nil
}

// Namespace returns a view bound to name. Views are cached per store.
func (s *store) Namespace(name string) Namespace {
	s.mu.RLock()
	// Check cache first
	if ns, exists := s.views[name]; exists {
		s.mu.RUnlock()
		return ns
	}
	s.mu.RUnlock()

	// Not in cache, need write lock
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if ns, exists := s.views[name]; exists {
		return ns
	}

	ns := &namespace{store: s, name: name}
	s.views[name] = ns
	return ns
}

// Path returns the resolved database path.
func (s *store) Path() string {
	return s.path
}

// Config returns the configuration the store was opened with.
func (s *store) Config() Config {
	return s.config
}

// Close closes the database. Calling Close again is a no-op.
func (s *store) Close() error {
	if s.guard.IsClosed() {
		return nil
	}

	tables := len(s.tables.Known())
	err := s.guard.Close()
	s.tables.Reset()

	s.mu.Lock()
	s.views = make(map[string]*namespace)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Failed to close store",
			Field{"path", s.path},
			Field{"error", err})
		return wrapErr("close", "", err)
	}

	s.logger.Info("Store closed",
		Field{"path", s.path},
		Field{"tables", tables})
	return nil
}
