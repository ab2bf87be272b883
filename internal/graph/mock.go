package graph

import (
	"context"
	"sync"
	"time"

	"github.com/e7nd7r/gnapsis/internal/types"
)

// MockCall is a recorded method call on the mock client.
type MockCall struct {
	Method    string
	Query     Query
	Statement string
	Timestamp time.Time
}

// MockResult is one canned response consumed by a Query or Exec call, in
// FIFO order. When the queue is empty the mock returns an empty result.
type MockResult struct {
	Rows []Row
	Err  error
}

// MockClient is an in-memory Client for tests. It records every call and
// serves canned results, in the manner of a scripted fake rather than an
// assertion framework. It also implements StatementExecutor.
type MockClient struct {
	mu sync.Mutex

	calls   []MockCall
	results []MockResult

	// Handler, when set, takes precedence over the queued results and
	// computes a response per query.
	Handler func(q Query) ([]Row, error)

	beginErr     error
	statementErr error
	health       types.HealthStatus
	closed       bool
}

// NewMockClient creates an empty mock client.
func NewMockClient() *MockClient {
	return &MockClient{health: types.Healthy("mock graph client")}
}

// EnqueueResult appends a canned result for the next unscripted call.
func (m *MockClient) EnqueueResult(rows []Row, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, MockResult{Rows: rows, Err: err})
}

// SetBeginError makes Begin fail.
func (m *MockClient) SetBeginError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beginErr = err
}

// SetStatementError makes ExecStatement fail.
func (m *MockClient) SetStatementError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statementErr = err
}

// Calls returns a copy of the recorded calls.
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// QueryCount returns how many Query/Exec calls reached the mock,
// including calls made inside transactions.
func (m *MockClient) QueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == "Query" || c.Method == "Exec" {
			n++
		}
	}
	return n
}

// QueryTexts returns the text of every executed query, in order.
func (m *MockClient) QueryTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.calls {
		if c.Method == "Query" || c.Method == "Exec" {
			out = append(out, c.Query.Text())
		}
	}
	return out
}

func (m *MockClient) dispatch(method string, q Query) ([]Row, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: method, Query: q, Timestamp: time.Now()})
	handler := m.Handler
	var canned *MockResult
	if handler == nil && len(m.results) > 0 {
		canned = &m.results[0]
		m.results = m.results[1:]
	}
	m.mu.Unlock()

	if handler != nil {
		return handler(q)
	}
	if canned != nil {
		return canned.Rows, canned.Err
	}
	return nil, nil
}

// Query implements QueryExecutor.
func (m *MockClient) Query(ctx context.Context, q Query) (Rows, error) {
	rows, err := m.dispatch("Query", q)
	if err != nil {
		return nil, err
	}
	return NewSliceRows(rows), nil
}

// Exec implements QueryExecutor.
func (m *MockClient) Exec(ctx context.Context, q Query) error {
	_, err := m.dispatch("Exec", q)
	return err
}

// ExecStatement implements StatementExecutor.
func (m *MockClient) ExecStatement(ctx context.Context, statement string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: "ExecStatement", Statement: statement, Timestamp: time.Now()})
	return m.statementErr
}

// Begin implements Client, returning a transaction that shares the
// mock's scripted results and call log.
func (m *MockClient) Begin(ctx context.Context) (Transaction, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: "Begin", Timestamp: time.Now()})
	err := m.beginErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &mockTransaction{client: m}, nil
}

// Health implements Client.
func (m *MockClient) Health(ctx context.Context) types.HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.health
}

// Close implements Client.
func (m *MockClient) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// mockTransaction routes queries to the parent mock and tracks terminal
// state the same way a real transaction does.
type mockTransaction struct {
	client   *MockClient
	mu       sync.Mutex
	finished bool
	// Outcome is "" until Commit, Rollback, or a Close-forced rollback.
	outcome string
}

func (t *mockTransaction) Query(ctx context.Context, q Query) (Rows, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	return t.client.Query(ctx, q)
}

func (t *mockTransaction) Exec(ctx context.Context, q Query) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	return t.client.Exec(ctx, q)
}

func (t *mockTransaction) checkOpen() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return types.NewError(ErrCodeTxFinished, "transaction already finished")
	}
	return nil
}

func (t *mockTransaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return types.NewError(ErrCodeTxFinished, "transaction already finished")
	}
	t.finished = true
	t.outcome = "commit"
	t.client.mu.Lock()
	t.client.calls = append(t.client.calls, MockCall{Method: "Commit", Timestamp: time.Now()})
	t.client.mu.Unlock()
	return nil
}

func (t *mockTransaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return types.NewError(ErrCodeTxFinished, "transaction already finished")
	}
	t.finished = true
	t.outcome = "rollback"
	t.client.mu.Lock()
	t.client.calls = append(t.client.calls, MockCall{Method: "Rollback", Timestamp: time.Now()})
	t.client.mu.Unlock()
	return nil
}

func (t *mockTransaction) Close(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return
	}
	t.finished = true
	t.outcome = "implicit-rollback"
	t.client.mu.Lock()
	t.client.calls = append(t.client.calls, MockCall{Method: "ImplicitRollback", Timestamp: time.Now()})
	t.client.mu.Unlock()
}

// Outcome reports how the transaction ended, for test assertions.
func (t *mockTransaction) Outcome() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outcome
}
