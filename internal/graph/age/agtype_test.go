package age

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7nd7r/gnapsis/internal/graph"
	"github.com/e7nd7r/gnapsis/internal/types"
)

func sampleNode() graph.Node {
	return graph.Node{
		GraphID: 844424930131969,
		Label:   "Entity",
		Properties: map[string]graph.Value{
			"name":      graph.String("auth-service"),
			"tokens":    graph.Int(120),
			"embedding": graph.Vector([]float64{0.25, -0.5, 1.0}),
		},
	}
}

func sampleEdge() graph.Relationship {
	return graph.Relationship{
		GraphID: 1125899906842625,
		Type:    "DEPENDS_ON",
		StartID: 844424930131969,
		EndID:   844424930131970,
		Properties: map[string]graph.Value{
			"weight": graph.Float(0.8),
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	other := sampleNode()
	other.GraphID = 844424930131970
	path := graph.Path{
		Nodes:         []graph.Node{sampleNode(), other},
		Relationships: []graph.Relationship{sampleEdge()},
	}

	cases := map[string]graph.Value{
		"null":         graph.Null(),
		"bool":         graph.Bool(true),
		"int":          graph.Int(-42),
		"float":        graph.Float(3.5),
		"string":       graph.String(`has "quotes" and ::vertex inside`),
		"vector":       graph.Vector([]float64{0.1, 0.2, 0.3}),
		"empty vector": graph.Vector(nil),
		"float list": graph.List([]graph.Value{
			graph.Float(0.5),
			graph.Float(1.5),
		}),
		"list": graph.List([]graph.Value{
			graph.Int(1),
			graph.String("two"),
			graph.List([]graph.Value{graph.Bool(false)}),
		}),
		"map": graph.Map(map[string]graph.Value{
			"depth": graph.Int(2),
			"inner": graph.Map(map[string]graph.Value{"leaf": graph.String("v")}),
		}),
		"node":         graph.NodeValue(sampleNode()),
		"relationship": graph.RelationshipValue(sampleEdge()),
		"path":         graph.PathValue(path),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			text, err := EncodeValue(in)
			require.NoError(t, err)
			out, err := DecodeValue(text)
			require.NoError(t, err)
			assert.True(t, in.Equal(out), "decoded %v, want %v", out, in)
		})
	}
}

func TestDecodeAnnotatedVertex(t *testing.T) {
	text := `{"id": 281474976710657, "label": "Entity", "properties": {"name": "kernel", "embedding": [0.5, 0.5]}}::vertex`
	v, err := DecodeValue(text)
	require.NoError(t, err)
	n, ok := v.AsNode()
	require.True(t, ok)
	assert.Equal(t, int64(281474976710657), n.GraphID)
	assert.Equal(t, "Entity", n.Label)
	name, ok := n.StringProp("name")
	require.True(t, ok)
	assert.Equal(t, "kernel", name)
	embedding, ok := n.VectorProp("embedding")
	require.True(t, ok)
	assert.Equal(t, []float64{0.5, 0.5}, embedding)
}

func TestDecodePathWithNestedAnnotations(t *testing.T) {
	text := `[{"id": 1, "label": "A", "properties": {}}::vertex, ` +
		`{"id": 9, "label": "LINKS", "end_id": 2, "start_id": 1, "properties": {}}::edge, ` +
		`{"id": 2, "label": "B", "properties": {}}::vertex]::path`
	v, err := DecodeValue(text)
	require.NoError(t, err)
	p, ok := v.AsPath()
	require.True(t, ok)
	require.Equal(t, 1, p.Len())
	start, ok := p.Start()
	require.True(t, ok)
	assert.Equal(t, int64(1), start.GraphID)
	end, ok := p.End()
	require.True(t, ok)
	assert.Equal(t, int64(2), end.GraphID)
	assert.Equal(t, "LINKS", p.Relationships[0].Type)
}

func TestDecodeScalars(t *testing.T) {
	cases := []struct {
		text string
		want graph.Value
	}{
		{`1`, graph.Int(1)},
		{`1.0`, graph.Float(1)},
		{`-7`, graph.Int(-7)},
		{`true`, graph.Bool(true)},
		{`null`, graph.Null()},
		{`"::vertex"`, graph.String("::vertex")},
		{`[1, 2, 3]`, graph.List([]graph.Value{graph.Int(1), graph.Int(2), graph.Int(3)})},
		{`[0.1, 0.2]`, graph.Vector([]float64{0.1, 0.2})},
	}
	for _, tc := range cases {
		v, err := DecodeValue(tc.text)
		require.NoError(t, err, tc.text)
		assert.True(t, tc.want.Equal(v), "decode %q: got %v, want %v", tc.text, v, tc.want)
	}
}

func TestDecodeMalformed(t *testing.T) {
	_, err := DecodeValue(`{"unclosed": `)
	assert.Error(t, err)

	_, err = DecodeValue(`{"id": 1}::teapot`)
	assert.Error(t, err)
}

func TestDecodeColumnKindMismatch(t *testing.T) {
	col := graph.Column{Name: "n", Kind: graph.ColumnNode}
	_, err := decodeColumn(col, `42`, false)
	require.Error(t, err)
	assert.Equal(t, graph.ErrCodeDecodeFailed, types.CodeOf(err))
	assert.Contains(t, err.Error(), `"n"`)

	scalar := graph.Column{Name: "x", Kind: graph.ColumnScalar}
	vertex := `{"id": 1, "label": "A", "properties": {}}::vertex`
	_, err = decodeColumn(scalar, vertex, false)
	require.Error(t, err)
	assert.Equal(t, graph.ErrCodeDecodeFailed, types.CodeOf(err))
}

func TestDecodeColumnNull(t *testing.T) {
	col := graph.Column{Name: "n", Kind: graph.ColumnNode}
	v, err := decodeColumn(col, "", true)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestEncodeParams(t *testing.T) {
	params := graph.Params{
		"name":  graph.String("o'reilly"),
		"limit": graph.Int(10),
		"vec":   graph.Vector([]float64{0.5, 1.5}),
	}
	text, err := encodeParams(params)
	require.NoError(t, err)
	// Keys are emitted sorted for deterministic statements.
	assert.Equal(t, `{"limit":10,"name":"o'reilly","vec":[0.5,1.5]}`, text)
}

func TestEncodeParamsEmpty(t *testing.T) {
	text, err := encodeParams(nil)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestEncodeParamsRejectsStructural(t *testing.T) {
	_, err := encodeParams(graph.Params{"n": graph.NodeValue(sampleNode())})
	assert.ErrorContains(t, err, "cannot be bound as parameters")
}
