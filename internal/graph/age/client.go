// Package age is the PostgreSQL backend, built on the Apache AGE
// extension. Cypher queries are wrapped in AGE's cypher() set-returning
// function and executed over a pgx connection pool; result columns come
// back as agtype text and are decoded against the query's predicted row
// shape.
package age

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/e7nd7r/gnapsis/internal/graph"
	"github.com/e7nd7r/gnapsis/internal/observability"
	"github.com/e7nd7r/gnapsis/internal/types"
)

const backendName = "age"

// Config holds connection settings for the AGE backend.
type Config struct {
	// DSN is a postgres connection string or URL.
	DSN string `mapstructure:"dsn"`

	// GraphName is the AGE graph to operate on.
	GraphName string `mapstructure:"graph_name"`

	MaxConns       int32         `mapstructure:"max_conns" validate:"omitempty,min=1"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.MaxConns == 0 {
		out.MaxConns = 8
	}
	if out.AcquireTimeout == 0 {
		out.AcquireTimeout = 5 * time.Second
	}
	return out
}

// Client implements graph.Client over a pgx connection pool. It also
// implements graph.StatementExecutor, since PostgreSQL accepts native
// SQL alongside cypher.
type Client struct {
	cfg    Config
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var (
	_ graph.Client            = (*Client)(nil)
	_ graph.StatementExecutor = (*Client)(nil)
)

// NewClient validates config and prepares a client. No connections are
// opened until Connect.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, types.NewError(graph.ErrCodeInvalidConfig, "dsn is required")
	}
	if cfg.GraphName == "" {
		return nil, types.NewError(graph.ErrCodeInvalidConfig, "graph name is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg.withDefaults(),
		logger: logger.With("backend", backendName, "graph", cfg.GraphName),
	}, nil
}

// Connect opens the pool and verifies the server is reachable. Each new
// pooled connection loads the AGE extension and puts ag_catalog on the
// search path before it is handed out.
func (c *Client) Connect(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(c.cfg.DSN)
	if err != nil {
		return types.WrapError(graph.ErrCodeInvalidConfig, "parse dsn", err)
	}
	poolCfg.MaxConns = c.cfg.MaxConns
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, "LOAD 'age'"); err != nil {
			return fmt.Errorf("load age extension: %w", err)
		}
		if _, err := conn.Exec(ctx, `SET search_path = ag_catalog, "$user", public`); err != nil {
			return fmt.Errorf("set search path: %w", err)
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return types.WrapRetryableError(graph.ErrCodeConnectionFailed, "create pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return types.WrapRetryableError(graph.ErrCodeConnectionFailed, "ping", err)
	}
	c.pool = pool
	c.logger.Info("connected", "max_conns", c.cfg.MaxConns)
	return nil
}

// EnsureGraph creates the configured graph if it does not exist yet.
func (c *Client) EnsureGraph(ctx context.Context) error {
	stmt := fmt.Sprintf(
		`SELECT create_graph(%s) WHERE NOT EXISTS (SELECT 1 FROM ag_graph WHERE name = %s)`,
		quoteLiteral(c.cfg.GraphName), quoteLiteral(c.cfg.GraphName))
	return c.ExecStatement(ctx, stmt)
}

// acquire checks a connection out of the pool, bounded by the configured
// acquire timeout so a saturated pool surfaces as a retryable error
// instead of an indefinite wait.
func (c *Client) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	if c.pool == nil {
		return nil, types.NewError(graph.ErrCodeConnectionClosed, "client is not connected")
	}
	acquireCtx, cancel := context.WithTimeout(ctx, c.cfg.AcquireTimeout)
	defer cancel()
	conn, err := c.pool.Acquire(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			observability.GraphPoolExhausted.WithLabelValues(backendName).Inc()
			return nil, types.WrapRetryableError(graph.ErrCodePoolExhausted,
				fmt.Sprintf("no connection available within %s", c.cfg.AcquireTimeout), err)
		}
		return nil, types.WrapRetryableError(graph.ErrCodeConnectionFailed, "acquire connection", err)
	}
	return conn, nil
}

// Query executes q on a pooled connection. The returned cursor owns the
// connection until it is closed or drained.
func (c *Client) Query(ctx context.Context, q graph.Query) (graph.Rows, error) {
	conn, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := queryOn(ctx, conn, c.cfg.GraphName, q, c.logger)
	if err != nil {
		conn.Release()
		return nil, err
	}
	rows.release = conn.Release
	return rows, nil
}

// Exec executes q and discards its rows.
func (c *Client) Exec(ctx context.Context, q graph.Query) error {
	rows, err := c.Query(ctx, q)
	if err != nil {
		return err
	}
	_, err = graph.CollectRows(rows)
	return err
}

// ExecStatement runs a native SQL statement on a pooled connection.
func (c *Client) ExecStatement(ctx context.Context, statement string) error {
	conn, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	if _, err := conn.Exec(ctx, statement); err != nil {
		return wrapQueryError("execute statement", statement, err)
	}
	return nil
}

// Begin opens an explicit transaction on a dedicated connection.
func (c *Client) Begin(ctx context.Context) (graph.Transaction, error) {
	conn, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	pgxTx, err := conn.Begin(ctx)
	if err != nil {
		conn.Release()
		return nil, wrapQueryError("begin transaction", "BEGIN", err)
	}
	return &Transaction{conn: conn, tx: pgxTx, graphName: c.cfg.GraphName, logger: c.logger}, nil
}

// Health pings the server and reports pool pressure.
func (c *Client) Health(ctx context.Context) types.HealthStatus {
	if c.pool == nil {
		return types.Unhealthy("not connected")
	}
	if err := c.pool.Ping(ctx); err != nil {
		return types.Unhealthy(err.Error())
	}
	stat := c.pool.Stat()
	if stat.AcquiredConns() == stat.MaxConns() {
		return types.Degraded(fmt.Sprintf("pool saturated: %d/%d connections in use",
			stat.AcquiredConns(), stat.MaxConns()))
	}
	return types.Healthy(fmt.Sprintf("%d/%d connections in use",
		stat.AcquiredConns(), stat.MaxConns()))
}

// Close drains the pool. Safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
		c.logger.Info("closed")
	}
	return nil
}

// querier is what queryOn needs from both pooled connections and open
// transactions.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryOn(ctx context.Context, conn querier, graphName string, q graph.Query, logger *slog.Logger) (*ageRows, error) {
	shape, err := q.Shape()
	if err != nil {
		return nil, err
	}
	sql, args, err := buildSQL(graphName, q)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	pgRows, err := conn.Query(ctx, sql, args...)
	observability.GraphQueryDuration.WithLabelValues(backendName).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.GraphQueriesTotal.WithLabelValues(backendName, "error").Inc()
		return nil, wrapQueryError("execute query", q.Text(), err)
	}
	observability.GraphQueriesTotal.WithLabelValues(backendName, "ok").Inc()
	logger.Debug("query executed", "columns", len(shape.Columns), "duration", time.Since(start))
	return &ageRows{pg: pgRows, shape: shape, queryText: q.Text()}, nil
}

// wrapQueryError classifies a backend failure. The wrapped message
// carries the query text but never parameter values.
func wrapQueryError(op, queryText string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return types.WrapError(graph.ErrCodeQueryFailed,
			fmt.Sprintf("%s: %s (query: %s)", op, pgErr.Message, queryText), err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return types.WrapError(graph.ErrCodeQueryFailed,
			fmt.Sprintf("%s canceled (query: %s)", op, queryText), err)
	}
	return types.WrapRetryableError(graph.ErrCodeConnectionFailed,
		fmt.Sprintf("%s (query: %s)", op, queryText), err)
}

// ageRows streams decoded rows off a pgx cursor. It keeps the owning
// connection until Close.
type ageRows struct {
	pg        pgx.Rows
	shape     graph.RowShape
	queryText string
	release   func()

	current graph.Row
	err     error
	closed  bool
}

func (r *ageRows) Next() bool {
	if r.closed || r.err != nil {
		return false
	}
	if !r.pg.Next() {
		r.err = r.pg.Err()
		r.Close()
		return false
	}

	ncols := len(r.shape.Columns)
	if ncols == 0 {
		// Write-only query: the placeholder column is scanned and
		// discarded, the row itself carries no data.
		var discard pgtype.Text
		if err := r.pg.Scan(&discard); err != nil {
			r.fail(err)
			return false
		}
		r.current = graph.NewRow(nil)
		return true
	}

	dests := make([]any, ncols)
	cells := make([]pgtype.Text, ncols)
	for i := range cells {
		dests[i] = &cells[i]
	}
	if err := r.pg.Scan(dests...); err != nil {
		r.fail(err)
		return false
	}

	data := make(map[string]graph.Value, ncols)
	for i, col := range r.shape.Columns {
		v, err := decodeColumn(col, cells[i].String, !cells[i].Valid)
		if err != nil {
			r.fail(err)
			return false
		}
		data[col.Name] = v
	}
	r.current = graph.NewRow(data)
	return true
}

func (r *ageRows) fail(err error) {
	if types.CodeOf(err) == "" {
		err = types.WrapError(graph.ErrCodeDecodeFailed,
			fmt.Sprintf("scan row (query: %s)", r.queryText), err)
	}
	r.err = err
	r.Close()
}

func (r *ageRows) Row() graph.Row { return r.current }

func (r *ageRows) Err() error { return r.err }

func (r *ageRows) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.pg.Close()
	if r.err == nil {
		r.err = r.pg.Err()
	}
	if r.release != nil {
		r.release()
	}
}
