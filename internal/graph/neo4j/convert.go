package neo4j

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/e7nd7r/gnapsis/internal/graph"
	"github.com/e7nd7r/gnapsis/internal/types"
)

// encodeParams lowers typed parameters to what the Bolt driver accepts.
// Structural values cannot travel as parameters, same rule as the AGE
// backend.
func encodeParams(params graph.Params) (map[string]any, error) {
	if len(params) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(params))
	for name, v := range params {
		raw, err := valueToAny(v)
		if err != nil {
			return nil, types.WrapError(graph.ErrCodeQueryFailed,
				fmt.Sprintf("parameter %q", name), err)
		}
		out[name] = raw
	}
	return out, nil
}

func valueToAny(v graph.Value) (any, error) {
	switch v.Kind() {
	case graph.KindNull:
		return nil, nil
	case graph.KindBool:
		b, _ := v.AsBool()
		return b, nil
	case graph.KindInt:
		i, _ := v.AsInt()
		return i, nil
	case graph.KindFloat:
		f, _ := v.AsFloat()
		return f, nil
	case graph.KindString:
		s, _ := v.AsString()
		return s, nil
	case graph.KindVector:
		vec, _ := v.AsVector()
		return vec, nil
	case graph.KindList:
		list, _ := v.AsList()
		out := make([]any, len(list))
		for i, el := range list {
			raw, err := valueToAny(el)
			if err != nil {
				return nil, err
			}
			out[i] = raw
		}
		return out, nil
	case graph.KindMap:
		m, _ := v.AsMap()
		out := make(map[string]any, len(m))
		for k, el := range m {
			raw, err := valueToAny(el)
			if err != nil {
				return nil, err
			}
			out[k] = raw
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s values cannot be bound as parameters", v.Kind())
	}
}

// recordsToRows converts buffered Bolt records to the shared row model.
func recordsToRows(records []*neo4j.Record) (graph.Rows, error) {
	rows := make([]graph.Row, 0, len(records))
	for _, record := range records {
		data := make(map[string]graph.Value, len(record.Keys))
		for i, key := range record.Keys {
			v, err := anyToValue(record.Values[i])
			if err != nil {
				return nil, types.WrapError(graph.ErrCodeDecodeFailed,
					fmt.Sprintf("column %q", key), err)
			}
			data[key] = v
		}
		rows = append(rows, graph.NewRow(data))
	}
	return graph.NewSliceRows(rows), nil
}

func anyToValue(raw any) (graph.Value, error) {
	switch x := raw.(type) {
	case nil:
		return graph.Null(), nil
	case bool:
		return graph.Bool(x), nil
	case int64:
		return graph.Int(x), nil
	case float64:
		return graph.Float(x), nil
	case string:
		return graph.String(x), nil
	case []float64:
		return graph.Vector(x), nil
	case []any:
		list := make([]graph.Value, len(x))
		for i, el := range x {
			v, err := anyToValue(el)
			if err != nil {
				return graph.Null(), err
			}
			list[i] = v
		}
		return graph.List(list), nil
	case map[string]any:
		m := make(map[string]graph.Value, len(x))
		for k, el := range x {
			v, err := anyToValue(el)
			if err != nil {
				return graph.Null(), err
			}
			m[k] = v
		}
		return graph.Map(m), nil
	case dbtype.Node:
		return graph.NodeValue(convertNode(x)), nil
	case dbtype.Relationship:
		return graph.RelationshipValue(convertRelationship(x)), nil
	case dbtype.Path:
		return graph.PathValue(convertPath(x)), nil
	default:
		return graph.Null(), fmt.Errorf("unsupported bolt value %T", raw)
	}
}

func convertNode(n dbtype.Node) graph.Node {
	label := ""
	if len(n.Labels) > 0 {
		label = n.Labels[0]
	}
	return graph.Node{
		GraphID:    n.Id,
		Label:      label,
		Properties: convertProps(n.Props),
	}
}

func convertRelationship(r dbtype.Relationship) graph.Relationship {
	return graph.Relationship{
		GraphID:    r.Id,
		Type:       r.Type,
		StartID:    r.StartId,
		EndID:      r.EndId,
		Properties: convertProps(r.Props),
	}
}

func convertPath(p dbtype.Path) graph.Path {
	out := graph.Path{
		Nodes:         make([]graph.Node, len(p.Nodes)),
		Relationships: make([]graph.Relationship, len(p.Relationships)),
	}
	for i, n := range p.Nodes {
		out.Nodes[i] = convertNode(n)
	}
	for i, r := range p.Relationships {
		out.Relationships[i] = convertRelationship(r)
	}
	return out
}

// convertProps drops properties with unconvertible values instead of
// failing the whole record; node properties written by other tools can
// carry types the row model does not know.
func convertProps(props map[string]any) map[string]graph.Value {
	out := make(map[string]graph.Value, len(props))
	for k, raw := range props {
		v, err := anyToValue(raw)
		if err != nil {
			continue
		}
		out[k] = v
	}
	return out
}
