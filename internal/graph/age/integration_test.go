//go:build integration
// +build integration

package age

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/e7nd7r/gnapsis/internal/graph"
)

// setupAGEContainer starts a PostgreSQL container with the AGE extension
// and returns a connected client plus a cleanup function.
func setupAGEContainer(t *testing.T, ctx context.Context) (*Client, func()) {
	t.Helper()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}
	if err := provider.Health(ctx); err != nil {
		t.Skip("Docker not running, skipping integration test")
		return nil, func() {}
	}

	req := testcontainers.ContainerRequest{
		Image:        "apache/age:latest",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "gnapsis",
			"POSTGRES_PASSWORD": "gnapsis",
			"POSTGRES_DB":       "gnapsis",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
		).WithDeadline(120 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start AGE container: %v", err)
	}

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	client, err := NewClient(Config{
		DSN:       fmt.Sprintf("postgres://gnapsis:gnapsis@%s:%s/gnapsis", host, port.Port()),
		GraphName: "it_graph",
		MaxConns:  4,
	}, slog.Default())
	require.NoError(t, err)

	require.NoError(t, client.Connect(ctx))
	require.NoError(t, client.ExecStatement(ctx, "CREATE EXTENSION IF NOT EXISTS age"))
	require.NoError(t, client.EnsureGraph(ctx))

	cleanup := func() {
		_ = client.Close(ctx)
		_ = container.Terminate(ctx)
	}
	return client, cleanup
}

func TestAGERoundTrip(t *testing.T) {
	ctx := context.Background()
	client, cleanup := setupAGEContainer(t, ctx)
	defer cleanup()

	create := graph.NewQuery(
		"CREATE (a:Entity {name: $a})-[:DEPENDS_ON {weight: $w}]->(b:Entity {name: $b})").
		Bind("a", "api").Bind("b", "store").Bind("w", 0.9)
	require.NoError(t, client.Exec(ctx, create))

	q := graph.NewQuery(
		"MATCH (a:Entity)-[r:DEPENDS_ON]->(b:Entity) RETURN a, r, b.name AS target")
	rows, err := client.Query(ctx, q)
	require.NoError(t, err)
	collected, err := graph.CollectRows(rows)
	require.NoError(t, err)
	require.Len(t, collected, 1)

	a, err := collected[0].Node("a")
	require.NoError(t, err)
	assert.Equal(t, "Entity", a.Label)
	name, ok := a.StringProp("name")
	require.True(t, ok)
	assert.Equal(t, "api", name)

	r, err := collected[0].Relationship("r")
	require.NoError(t, err)
	assert.Equal(t, "DEPENDS_ON", r.Type)
	assert.InDelta(t, 0.9, mustFloat(t, r, "weight"), 1e-9)

	target, err := collected[0].String("target")
	require.NoError(t, err)
	assert.Equal(t, "store", target)
}

func TestAGETransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	client, cleanup := setupAGEContainer(t, ctx)
	defer cleanup()

	count := func() int64 {
		rows, err := client.Query(ctx,
			graph.NewQuery("MATCH (n:TxEntity) RETURN count(n) AS c"))
		require.NoError(t, err)
		collected, err := graph.CollectRows(rows)
		require.NoError(t, err)
		require.Len(t, collected, 1)
		c, err := collected[0].Int("c")
		require.NoError(t, err)
		return c
	}

	t.Run("rollback discards writes", func(t *testing.T) {
		tx, err := client.Begin(ctx)
		require.NoError(t, err)
		defer tx.Close(ctx)
		require.NoError(t, tx.Exec(ctx,
			graph.NewQuery("CREATE (:TxEntity {name: $n})").Bind("n", "ghost")))
		require.NoError(t, tx.Rollback(ctx))
		assert.Equal(t, int64(0), count())
	})

	t.Run("commit persists writes", func(t *testing.T) {
		tx, err := client.Begin(ctx)
		require.NoError(t, err)
		defer tx.Close(ctx)
		require.NoError(t, tx.Exec(ctx,
			graph.NewQuery("CREATE (:TxEntity {name: $n})").Bind("n", "kept")))
		require.NoError(t, tx.Commit(ctx))
		assert.Equal(t, int64(1), count())
	})

	t.Run("close without finish rolls back", func(t *testing.T) {
		tx, err := client.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Exec(ctx,
			graph.NewQuery("CREATE (:TxEntity {name: $n})").Bind("n", "leaked")))
		tx.Close(ctx)
		assert.Equal(t, int64(1), count())
	})
}

func TestAGEHostileParameters(t *testing.T) {
	ctx := context.Background()
	client, cleanup := setupAGEContainer(t, ctx)
	defer cleanup()

	hostile := `'}) DETACH DELETE n //`
	require.NoError(t, client.Exec(ctx,
		graph.NewQuery("CREATE (:Entity {name: $name})").Bind("name", hostile)))

	rows, err := client.Query(ctx,
		graph.NewQuery("MATCH (n:Entity) WHERE n.name = $name RETURN n.name AS name").
			Bind("name", hostile))
	require.NoError(t, err)
	collected, err := graph.CollectRows(rows)
	require.NoError(t, err)
	require.Len(t, collected, 1)
	name, err := collected[0].String("name")
	require.NoError(t, err)
	assert.Equal(t, hostile, name)
}

func TestAGEHealth(t *testing.T) {
	ctx := context.Background()
	client, cleanup := setupAGEContainer(t, ctx)
	defer cleanup()

	assert.True(t, client.Health(ctx).IsHealthy())
}

func mustFloat(t *testing.T, r graph.Relationship, key string) float64 {
	t.Helper()
	f, ok := r.Prop(key).AsFloat()
	require.True(t, ok)
	return f
}
