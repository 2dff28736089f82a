package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the part of pgx shared by the pool and an open transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Transactor runs fn as one unit of work. Repository calls made with the
// context passed to fn join that unit of work; nested calls join the outer one.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TxScope is an open unit of work carried through a context.
type TxScope struct {
	Owner any
	Tx    pgx.Tx

	mu     sync.Mutex
	hooks  []func()
	closed atomic.Bool
}

type txScopeKey struct{}

func NewTxContext(ctx context.Context, scope *TxScope) context.Context {
	return context.WithValue(ctx, txScopeKey{}, scope)
}

// TxScopeFrom returns the unit of work open in ctx. A scope that has already
// committed or rolled back is not returned.
func TxScopeFrom(ctx context.Context) *TxScope {
	scope, _ := ctx.Value(txScopeKey{}).(*TxScope)
	if scope == nil || scope.closed.Load() {
		return nil
	}
	return scope
}

func (s *TxScope) addHook(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Committed closes the scope and runs the after-commit hooks in registration order.
func (s *TxScope) Committed() {
	s.closed.Store(true)
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Aborted closes the scope and drops its hooks.
func (s *TxScope) Aborted() {
	s.closed.Store(true)
	s.mu.Lock()
	s.hooks = nil
	s.mu.Unlock()
}

// AfterCommit defers fn until the unit of work in ctx commits; it is dropped
// on rollback. Without an open unit of work fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	if scope := TxScopeFrom(ctx); scope != nil {
		scope.addHook(fn)
		return
	}
	fn()
}

type PgTransactorImpl struct {
	pool *pgxpool.Pool
}

func NewTransactor(pool *pgxpool.Pool) Transactor {
	return &PgTransactorImpl{pool: pool}
}

func (t *PgTransactorImpl) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if scope := TxScopeFrom(ctx); scope != nil && scope.Owner == t {
		return fn(ctx)
	}

	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	scope := &TxScope{Owner: t, Tx: tx}
	if err := fn(NewTxContext(ctx, scope)); err != nil {
		scope.Aborted()
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		scope.Aborted()
		return fmt.Errorf("commit transaction: %w", err)
	}
	scope.Committed()
	return nil
}

// conn returns the transaction open in ctx, or the pool.
func conn(ctx context.Context, pool *pgxpool.Pool) DBTX {
	if scope := TxScopeFrom(ctx); scope != nil && scope.Tx != nil {
		return scope.Tx
	}
	return pool
}
