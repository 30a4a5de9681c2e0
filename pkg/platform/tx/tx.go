package tx

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "reliefpass/pkg/domain-errors"
)

type ctxKey struct{}

type memoryKey struct{}

var (
	txKey    = ctxKey{}
	memoryTx = memoryKey{}
)

// defaultTimeout bounds a transaction when the caller set no deadline.
const defaultTimeout = 5 * time.Second

// Runner provides a transactional boundary for store mutations. Stores pick up
// the active transaction from the context passed to fn.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// DBTX is the query surface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn returns the transaction carried by ctx, or db when there is none.
func Conn(ctx context.Context, db *sql.DB) DBTX {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}

// Postgres runs fn inside a database/sql transaction. A nested RunInTx joins
// the transaction already carried by ctx.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, timeout: defaultTimeout}
}

func (p *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	sqlTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// InMemory serialises transactions with a coarse lock. It cannot roll back,
// so callers validate before they mutate. Nested calls reuse the held lock.
type InMemory struct {
	mu sync.Mutex
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (m *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if held, _ := ctx.Value(memoryTx).(*InMemory); held == m {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(context.WithValue(ctx, memoryTx, m))
}
