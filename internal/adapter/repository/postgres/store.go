package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/tally/internal/domain"
	"github.com/iho/tally/internal/usecase"
)

// Pool is the subset of pgxpool.Pool the repositories use. pgxmock satisfies
// it in tests.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

type storeState int

const (
	stateUninitialized storeState = iota
	stateConnecting
	stateReady
	stateClosed
)

// Store owns the single shared connection pool to the backing store and
// implements usecase.TransactionManager. The pool is created lazily on first
// acquisition; a concurrent acquire while initialization is in flight fails
// with ErrConnectionInProgress rather than blocking or double-initializing.
type Store struct {
	mu      sync.Mutex
	state   storeState
	pool    Pool
	connect func(ctx context.Context) (Pool, error)
}

// NewStore creates a Store that connects to databaseURL on first use.
func NewStore(databaseURL string, maxConns, minConns int) *Store {
	return &Store{
		connect: func(ctx context.Context) (Pool, error) {
			return newPool(ctx, databaseURL, maxConns, minConns)
		},
	}
}

// newStoreWithPool wires an already-initialized pool, bypassing lazy connect.
func newStoreWithPool(pool Pool) *Store {
	return &Store{state: stateReady, pool: pool}
}

// Acquire returns the live pool, creating it on first call.
func (s *Store) Acquire(ctx context.Context) (Pool, error) {
	s.mu.Lock()

	switch s.state {
	case stateReady:
		pool := s.pool
		s.mu.Unlock()

		return pool, nil
	case stateConnecting:
		s.mu.Unlock()

		return nil, domain.ErrConnectionInProgress
	case stateClosed:
		s.mu.Unlock()

		return nil, domain.ErrStoreClosed
	}

	s.state = stateConnecting
	s.mu.Unlock()

	pool, err := s.connect(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state = stateUninitialized

		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	if s.state == stateClosed {
		// Close raced with initialization; the late pool must not leak.
		pool.Close()

		return nil, domain.ErrStoreClosed
	}

	s.pool = pool
	s.state = stateReady

	return pool, nil
}

// Close releases the pool. It is idempotent and safe on a handle that never
// connected.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}

	s.state = stateClosed
}

// Begin opens a new atomic unit.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	pool, err := s.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	return &Tx{tx: tx}, nil
}

// WithinTx runs fn inside one atomic unit: every write fn performs is
// committed when fn returns nil and discarded otherwise. The underlying
// session is released on every exit path, including a panic in fn.
func (s *Store) WithinTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	unit, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	tx := unit.(*Tx).PgxTx()
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Tx wraps a pgx transaction as a usecase.Transaction.
type Tx struct {
	tx pgx.Tx
}

// Commit commits the unit.
func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback discards the unit. Calling it after a commit is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// PgxTx returns the underlying pgx.Tx.
func (t *Tx) PgxTx() pgx.Tx {
	return t.tx
}

func newPool(ctx context.Context, databaseURL string, maxConns, minConns int) (Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = int32(maxConns)
	config.MinConns = int32(minConns)

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
