package age

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/e7nd7r/gnapsis/internal/graph"
	"github.com/e7nd7r/gnapsis/internal/observability"
	"github.com/e7nd7r/gnapsis/internal/types"
)

// Transaction holds one pooled connection with an open postgres
// transaction on it. Not safe for concurrent use; operations inside a
// transaction are strictly sequential.
type Transaction struct {
	conn      *pgxpool.Conn
	tx        pgx.Tx
	graphName string
	logger    *slog.Logger
	finished  bool
}

var (
	_ graph.Transaction       = (*Transaction)(nil)
	_ graph.StatementExecutor = (*Transaction)(nil)
)

func (t *Transaction) Query(ctx context.Context, q graph.Query) (graph.Rows, error) {
	if t.finished {
		return nil, types.NewError(graph.ErrCodeTxFinished, "transaction already finished")
	}
	return queryOn(ctx, t.tx, t.graphName, q, t.logger)
}

func (t *Transaction) Exec(ctx context.Context, q graph.Query) error {
	rows, err := t.Query(ctx, q)
	if err != nil {
		return err
	}
	_, err = graph.CollectRows(rows)
	return err
}

// ExecStatement runs a native SQL statement inside the transaction.
func (t *Transaction) ExecStatement(ctx context.Context, statement string) error {
	if t.finished {
		return types.NewError(graph.ErrCodeTxFinished, "transaction already finished")
	}
	if _, err := t.tx.Exec(ctx, statement); err != nil {
		return wrapQueryError("execute statement", statement, err)
	}
	return nil
}

// Commit makes the transaction's changes permanent and releases its
// connection.
func (t *Transaction) Commit(ctx context.Context) error {
	if t.finished {
		return types.NewError(graph.ErrCodeTxFinished, "transaction already finished")
	}
	err := t.tx.Commit(ctx)
	t.finish("commit")
	if err != nil {
		return wrapQueryError("commit", "COMMIT", err)
	}
	return nil
}

// Rollback discards the transaction's changes and releases its
// connection.
func (t *Transaction) Rollback(ctx context.Context) error {
	if t.finished {
		return types.NewError(graph.ErrCodeTxFinished, "transaction already finished")
	}
	err := t.tx.Rollback(ctx)
	t.finish("rollback")
	if err != nil {
		return wrapQueryError("rollback", "ROLLBACK", err)
	}
	return nil
}

// Close releases the transaction's connection. A transaction reaching
// Close without Commit or Rollback violates the lifecycle contract; it
// is rolled back and the violation is logged.
func (t *Transaction) Close(ctx context.Context) {
	if t.finished {
		return
	}
	t.logger.Warn("transaction closed without commit or rollback, rolling back",
		"code", graph.ErrCodeTxProtocolViolation)
	if err := t.tx.Rollback(ctx); err != nil {
		t.logger.Error("implicit rollback failed", "error", fmt.Sprintf("%v", err))
	}
	t.finish("implicit_rollback")
}

func (t *Transaction) finish(outcome string) {
	t.finished = true
	observability.GraphTransactionsTotal.WithLabelValues(backendName, outcome).Inc()
	if t.conn != nil {
		t.conn.Release()
		t.conn = nil
	}
}
