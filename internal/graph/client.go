package graph

import (
	"context"

	"github.com/e7nd7r/gnapsis/internal/types"
)

// QueryExecutor runs parameterized graph queries. It is the one operation
// every backend must support; the rest of the hierarchy builds on it.
// Implementations must be safe for concurrent use unless documented
// otherwise (transactions are single-threaded by contract).
type QueryExecutor interface {
	// Query executes q and returns a streaming cursor over its rows.
	// The cursor must be drained or closed to release the connection.
	Query(ctx context.Context, q Query) (Rows, error)

	// Exec executes q for its side effects and discards any rows.
	Exec(ctx context.Context, q Query) error
}

// StatementExecutor runs backend-native administrative statements that
// the graph query language cannot express (DDL, extension setup). Not
// every backend has this capability; callers probe for it with
// AsStatementExecutor instead of assuming it.
type StatementExecutor interface {
	ExecStatement(ctx context.Context, statement string) error
}

// AsStatementExecutor reports whether an executor supports backend-native
// statements, returning the capability when it does.
func AsStatementExecutor(e QueryExecutor) (StatementExecutor, bool) {
	se, ok := e.(StatementExecutor)
	return se, ok
}

// Client is a graph database client backed by a connection pool. Queries
// run through the embedded QueryExecutor auto-commit on a pooled
// connection; Begin opens an explicit transaction that owns one
// connection until it finishes.
type Client interface {
	QueryExecutor

	// Begin starts a transaction. The transaction must be finished with
	// exactly one Commit or Rollback; deferring Close guarantees that on
	// every exit path.
	Begin(ctx context.Context) (Transaction, error)

	// Health probes the backend.
	Health(ctx context.Context) types.HealthStatus

	// Close drains the pool and releases all resources.
	Close(ctx context.Context) error
}

// Transaction is a scoped unit of work holding one connection
// exclusively. Operations within it are strictly sequential. Exactly one
// of Commit or Rollback must be called before the owning scope exits;
// Close enforces that by rolling back an unfinished transaction and
// reporting the protocol violation.
//
// Usage:
//
//	tx, err := client.Begin(ctx)
//	if err != nil { ... }
//	defer tx.Close(ctx)
//	// ... tx.Exec / tx.Query ...
//	return tx.Commit(ctx)
type Transaction interface {
	QueryExecutor

	// Commit makes the transaction's changes permanent.
	Commit(ctx context.Context) error

	// Rollback discards the transaction's changes.
	Rollback(ctx context.Context) error

	// Close releases the transaction's connection. If neither Commit nor
	// Rollback ran, Close rolls back and logs a protocol violation.
	// Calling Close after Commit or Rollback is a no-op.
	Close(ctx context.Context)
}
