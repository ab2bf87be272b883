package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBindDoesNotMutateOriginal(t *testing.T) {
	base := NewQuery("MATCH (n) WHERE n.id = $id RETURN n")
	bound := base.Bind("id", "entity-1")

	assert.Empty(t, base.Params())
	assert.Len(t, bound.Params(), 1)

	rebound := bound.Bind("id", "entity-2")
	v, _ := bound.Params()["id"].AsString()
	assert.Equal(t, "entity-1", v)
	v, _ = rebound.Params()["id"].AsString()
	assert.Equal(t, "entity-2", v)
}

func TestQueryTextNeverContainsParameterValues(t *testing.T) {
	hostile := []string{
		"'; MATCH (x) DETACH DELETE x; --",
		"$$ RETURN 1 $$",
		"RETURN\nDELETE",
		"\x00\x1b[2Jcontrol",
		"`backtick` \"quoted\"",
	}

	q := NewQuery("MATCH (n:Entity) WHERE n.name = $name AND n.note = $note RETURN n")
	for i, payload := range hostile {
		name := []string{"name", "note"}[i%2]
		q = q.Bind(name, payload)
	}

	for _, payload := range hostile {
		assert.NotContains(t, q.Text(), payload,
			"parameter value leaked into query text")
	}
	assert.Equal(t, "MATCH (n:Entity) WHERE n.name = $name AND n.note = $note RETURN n", q.Text())
}

func TestQueryBindTypedValues(t *testing.T) {
	q := NewQuery("CREATE (n {a: $a, b: $b, c: $c, d: $d, e: $e})").
		Bind("a", int64(42)).
		Bind("b", 3.5).
		Bind("c", true).
		Bind("d", []float64{0.1, 0.2}).
		Bind("e", nil)

	params := q.Params()
	i, ok := params["a"].AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(42), i)
	f, ok := params["b"].AsFloat()
	require.True(t, ok)
	assert.Equal(t, 3.5, f)
	b, ok := params["c"].AsBool()
	require.True(t, ok)
	assert.True(t, b)
	vec, ok := params["d"].AsVector()
	require.True(t, ok)
	assert.Equal(t, []float64{0.1, 0.2}, vec)
	assert.True(t, params["e"].IsNull())
}

func TestQueryBindUnsupportedTypePanics(t *testing.T) {
	assert.Panics(t, func() {
		NewQuery("RETURN $x").Bind("x", make(chan int))
	})
}

func TestValueOfNestedStructures(t *testing.T) {
	v, err := ValueOf(map[string]any{
		"tags":   []any{"a", "b"},
		"weight": 0.5,
		"nested": map[string]any{"n": int64(1)},
	})
	require.NoError(t, err)

	m, ok := v.AsMap()
	require.True(t, ok)
	list, ok := m["tags"].AsList()
	require.True(t, ok)
	require.Len(t, list, 2)
	s, _ := list[0].AsString()
	assert.Equal(t, "a", s)

	inner, ok := m["nested"].AsMap()
	require.True(t, ok)
	n, _ := inner["n"].AsInt()
	assert.Equal(t, int64(1), n)
}

func TestMockTransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	client := NewMockClient()

	t.Run("commit", func(t *testing.T) {
		tx, err := client.Begin(ctx)
		require.NoError(t, err)
		defer tx.Close(ctx)

		require.NoError(t, tx.Exec(ctx, NewQuery("CREATE (n:Entity {id: $id})").Bind("id", "x")))
		require.NoError(t, tx.Commit(ctx))
	})

	t.Run("close without commit rolls back", func(t *testing.T) {
		tx, err := client.Begin(ctx)
		require.NoError(t, err)
		tx.Close(ctx)

		calls := client.Calls()
		last := calls[len(calls)-1]
		assert.Equal(t, "ImplicitRollback", last.Method)
	})

	t.Run("use after finish fails", func(t *testing.T) {
		tx, err := client.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Rollback(ctx))

		err = tx.Exec(ctx, NewQuery("RETURN 1"))
		require.Error(t, err)
		assert.Error(t, tx.Commit(ctx))
	})
}

func TestMockClientScriptedResults(t *testing.T) {
	ctx := context.Background()
	client := NewMockClient()
	client.EnqueueResult([]Row{
		NewRow(map[string]Value{"n": NodeValue(Node{GraphID: 1, Label: "Entity"})}),
	}, nil)

	rows, err := client.Query(ctx, NewQuery("MATCH (n) RETURN n"))
	require.NoError(t, err)
	collected, err := CollectRows(rows)
	require.NoError(t, err)
	require.Len(t, collected, 1)

	node, err := collected[0].Node("n")
	require.NoError(t, err)
	assert.Equal(t, "Entity", node.Label)
	assert.Equal(t, 1, client.QueryCount())
	assert.True(t, strings.HasPrefix(client.QueryTexts()[0], "MATCH"))
}
