// Package neo4j is the Bolt-protocol backend. It speaks the same query
// contract as the AGE backend but has no native statement surface, so
// callers probing for graph.StatementExecutor get a negative answer.
package neo4j

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/e7nd7r/gnapsis/internal/graph"
	"github.com/e7nd7r/gnapsis/internal/observability"
	"github.com/e7nd7r/gnapsis/internal/types"
)

const backendName = "neo4j"

// Config holds connection settings for the Bolt backend.
type Config struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`

	MaxPoolSize       int           `mapstructure:"max_pool_size" validate:"omitempty,min=1"`
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout"`
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.MaxPoolSize == 0 {
		out.MaxPoolSize = 10
	}
	if out.ConnectionTimeout == 0 {
		out.ConnectionTimeout = 30 * time.Second
	}
	return out
}

// Client implements graph.Client over the Bolt driver. It deliberately
// does not implement graph.StatementExecutor.
type Client struct {
	cfg    Config
	driver neo4j.DriverWithContext
	logger *slog.Logger
}

var _ graph.Client = (*Client)(nil)

// NewClient validates config and prepares a client. No connections are
// opened until Connect.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URI == "" {
		return nil, types.NewError(graph.ErrCodeInvalidConfig, "uri is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg.withDefaults(),
		logger: logger.With("backend", backendName),
	}, nil
}

// Connect creates the driver and verifies connectivity with exponential
// backoff.
func (c *Client) Connect(ctx context.Context) error {
	auth := neo4j.BasicAuth(c.cfg.Username, c.cfg.Password, "")
	configure := func(config *neo4j.Config) {
		config.MaxConnectionPoolSize = c.cfg.MaxPoolSize
		config.ConnectionAcquisitionTimeout = c.cfg.ConnectionTimeout
	}

	const maxRetries = 5
	baseDelay := 100 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		driver, err := neo4j.NewDriverWithContext(c.cfg.URI, auth, configure)
		if err == nil {
			if err = driver.VerifyConnectivity(ctx); err == nil {
				c.driver = driver
				c.logger.Info("connected", "uri", c.cfg.URI)
				return nil
			}
		}
		lastErr = err
		if ctx.Err() != nil {
			return types.WrapError(graph.ErrCodeConnectionFailed,
				"connection attempt cancelled", ctx.Err())
		}
		delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if delay > c.cfg.ConnectionTimeout {
			delay = c.cfg.ConnectionTimeout
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return types.WrapError(graph.ErrCodeConnectionFailed,
				"connection attempt cancelled", ctx.Err())
		}
	}
	return types.WrapRetryableError(graph.ErrCodeConnectionFailed,
		fmt.Sprintf("failed to connect after %d attempts", maxRetries), lastErr)
}

func (c *Client) session(ctx context.Context) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.cfg.Database,
	})
}

// Query executes q in an auto-commit session and buffers the result.
func (c *Client) Query(ctx context.Context, q graph.Query) (graph.Rows, error) {
	if c.driver == nil {
		return nil, types.NewError(graph.ErrCodeConnectionClosed, "driver not connected")
	}
	params, err := encodeParams(q.Params())
	if err != nil {
		return nil, err
	}
	session := c.session(ctx)
	defer session.Close(ctx)

	start := time.Now()
	result, err := session.Run(ctx, q.Text(), params)
	if err != nil {
		observability.GraphQueriesTotal.WithLabelValues(backendName, "error").Inc()
		return nil, wrapQueryError("execute query", q.Text(), err)
	}
	records, err := result.Collect(ctx)
	observability.GraphQueryDuration.WithLabelValues(backendName).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.GraphQueriesTotal.WithLabelValues(backendName, "error").Inc()
		return nil, wrapQueryError("collect rows", q.Text(), err)
	}
	observability.GraphQueriesTotal.WithLabelValues(backendName, "ok").Inc()
	return recordsToRows(records)
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

// Begin opens an explicit transaction on a dedicated session.
func (c *Client) Begin(ctx context.Context) (graph.Transaction, error) {
	if c.driver == nil {
		return nil, types.NewError(graph.ErrCodeConnectionClosed, "driver not connected")
	}
	session := c.session(ctx)
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		session.Close(ctx)
		return nil, wrapQueryError("begin transaction", "BEGIN", err)
	}
	return &Transaction{session: session, tx: tx, logger: c.logger}, nil
}

// Health verifies connectivity with a bounded probe.
func (c *Client) Health(ctx context.Context) types.HealthStatus {
	if c.driver == nil {
		return types.Unhealthy("driver not connected")
	}
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.driver.VerifyConnectivity(probeCtx); err != nil {
		return types.Unhealthy(fmt.Sprintf("connectivity check failed: %v", err))
	}
	return types.Healthy("connected")
}

// Close releases the driver. Safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	if c.driver == nil {
		return nil
	}
	if err := c.driver.Close(ctx); err != nil {
		return types.WrapError(graph.ErrCodeConnectionClosed, "close driver", err)
	}
	c.driver = nil
	c.logger.Info("closed")
	return nil
}

func wrapQueryError(op, queryText string, err error) error {
	return types.WrapError(graph.ErrCodeQueryFailed,
		fmt.Sprintf("%s (query: %s)", op, queryText), err)
}

// Transaction wraps an explicit Bolt transaction and its owning session.
type Transaction struct {
	session  neo4j.SessionWithContext
	tx       neo4j.ExplicitTransaction
	logger   *slog.Logger
	finished bool
}

var _ graph.Transaction = (*Transaction)(nil)

func (t *Transaction) Query(ctx context.Context, q graph.Query) (graph.Rows, error) {
	if t.finished {
		return nil, types.NewError(graph.ErrCodeTxFinished, "transaction already finished")
	}
	params, err := encodeParams(q.Params())
	if err != nil {
		return nil, err
	}
	result, err := t.tx.Run(ctx, q.Text(), params)
	if err != nil {
		return nil, wrapQueryError("execute query", q.Text(), err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, wrapQueryError("collect rows", q.Text(), err)
	}
	return recordsToRows(records)
}

func (t *Transaction) Exec(ctx context.Context, q graph.Query) error {
	rows, err := t.Query(ctx, q)
	if err != nil {
		return err
	}
	_, err = graph.CollectRows(rows)
	return err
}

func (t *Transaction) Commit(ctx context.Context) error {
	if t.finished {
		return types.NewError(graph.ErrCodeTxFinished, "transaction already finished")
	}
	err := t.tx.Commit(ctx)
	t.finish(ctx, "commit")
	if err != nil {
		return wrapQueryError("commit", "COMMIT", err)
	}
	return nil
}

func (t *Transaction) Rollback(ctx context.Context) error {
	if t.finished {
		return types.NewError(graph.ErrCodeTxFinished, "transaction already finished")
	}
	err := t.tx.Rollback(ctx)
	t.finish(ctx, "rollback")
	if err != nil {
		return wrapQueryError("rollback", "ROLLBACK", err)
	}
	return nil
}

// Close releases the session. An unfinished transaction is rolled back
// and the lifecycle violation logged.
func (t *Transaction) Close(ctx context.Context) {
	if t.finished {
		return
	}
	t.logger.Warn("transaction closed without commit or rollback, rolling back",
		"code", graph.ErrCodeTxProtocolViolation)
	if err := t.tx.Rollback(ctx); err != nil {
		t.logger.Error("implicit rollback failed", "error", err.Error())
	}
	t.finish(ctx, "implicit_rollback")
}

func (t *Transaction) finish(ctx context.Context, outcome string) {
	t.finished = true
	observability.GraphTransactionsTotal.WithLabelValues(backendName, outcome).Inc()
	if t.session != nil {
		t.session.Close(ctx)
		t.session = nil
	}
}
