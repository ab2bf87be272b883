package neo4j

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7nd7r/gnapsis/internal/graph"
)

func TestRecordsToRows(t *testing.T) {
	node := dbtype.Node{
		Id:     7,
		Labels: []string{"Entity", "Internal"},
		Props: map[string]any{
			"name":   "parser",
			"tokens": int64(64),
		},
	}
	rel := dbtype.Relationship{
		Id: 3, StartId: 7, EndId: 8, Type: "DEPENDS_ON",
		Props: map[string]any{"weight": 0.4},
	}
	record := &neo4j.Record{
		Keys:   []string{"n", "r", "score"},
		Values: []any{node, rel, 0.93},
	}

	rows, err := recordsToRows([]*neo4j.Record{record})
	require.NoError(t, err)
	collected, err := graph.CollectRows(rows)
	require.NoError(t, err)
	require.Len(t, collected, 1)

	n, err := collected[0].Node("n")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n.GraphID)
	assert.Equal(t, "Entity", n.Label)
	name, ok := n.StringProp("name")
	require.True(t, ok)
	assert.Equal(t, "parser", name)

	r, err := collected[0].Relationship("r")
	require.NoError(t, err)
	assert.Equal(t, "DEPENDS_ON", r.Type)
	assert.Equal(t, int64(7), r.StartID)

	score, err := collected[0].Float("score")
	require.NoError(t, err)
	assert.InDelta(t, 0.93, score, 1e-9)
}

func TestConvertPath(t *testing.T) {
	p := dbtype.Path{
		Nodes: []dbtype.Node{
			{Id: 1, Labels: []string{"A"}},
			{Id: 2, Labels: []string{"B"}},
		},
		Relationships: []dbtype.Relationship{
			{Id: 9, StartId: 1, EndId: 2, Type: "LINKS"},
		},
	}
	v, err := anyToValue(p)
	require.NoError(t, err)
	converted, ok := v.AsPath()
	require.True(t, ok)
	assert.Equal(t, 1, converted.Len())
	assert.True(t, converted.Valid())
}

func TestConvertPropsSkipsUnknownTypes(t *testing.T) {
	props := convertProps(map[string]any{
		"ok":     "value",
		"odd":    struct{ X int }{1},
		"nested": []any{int64(1), int64(2)},
	})
	assert.Len(t, props, 2)
	assert.Contains(t, props, "ok")
	assert.Contains(t, props, "nested")
}

func TestEncodeParams(t *testing.T) {
	params, err := encodeParams(graph.Params{
		"name": graph.String("x"),
		"vec":  graph.Vector([]float64{0.1, 0.2}),
		"tags": graph.List([]graph.Value{graph.String("a"), graph.String("b")}),
	})
	require.NoError(t, err)
	assert.Equal(t, "x", params["name"])
	assert.Equal(t, []float64{0.1, 0.2}, params["vec"])
	assert.Equal(t, []any{"a", "b"}, params["tags"])
}

func TestEncodeParamsRejectsStructural(t *testing.T) {
	_, err := encodeParams(graph.Params{
		"n": graph.NodeValue(graph.Node{GraphID: 1, Label: "A"}),
	})
	assert.Error(t, err)
}

func TestClientLacksStatementCapability(t *testing.T) {
	client, err := NewClient(Config{URI: "bolt://localhost:7687"}, nil)
	require.NoError(t, err)

	_, ok := graph.AsStatementExecutor(client)
	assert.False(t, ok, "bolt backend must not advertise native statements")
}
