package age

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/e7nd7r/gnapsis/internal/graph"
	"github.com/e7nd7r/gnapsis/internal/types"
)

// agtype is AGE's tagged text encoding: JSON extended with ::vertex,
// ::edge and ::path annotations on structural values. Annotations appear
// nested inside path arrays, so stripping only a trailing suffix is not
// enough; the decoder removes them at every depth while remembering the
// top-level one.
//
// Numbers follow agtype semantics: integers print without a fractional
// part, floats always with one. The decoder relies on that distinction,
// so the encoder guarantees it.

// encodeParams serializes a parameter map to the JSON object text bound
// as the cypher() function's agtype argument. Structural values (nodes,
// relationships, paths) cannot travel as parameters.
func encodeParams(params graph.Params) (string, error) {
	if len(params) == 0 {
		return "", nil
	}
	var sb strings.Builder
	sb.WriteByte('{')
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		if i > 0 {
			sb.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return "", err
		}
		sb.Write(key)
		sb.WriteByte(':')
		if err := encodeScalar(&sb, params[name]); err != nil {
			return "", fmt.Errorf("parameter %q: %w", name, err)
		}
	}
	sb.WriteByte('}')
	return sb.String(), nil
}

func encodeScalar(sb *strings.Builder, v graph.Value) error {
	switch v.Kind() {
	case graph.KindNode, graph.KindRelationship, graph.KindPath:
		return fmt.Errorf("%s values cannot be bound as parameters", v.Kind())
	default:
		return encodeValue(sb, v)
	}
}

// EncodeValue renders a Value in agtype text form. The inverse of
// DecodeValue; structural kinds carry their annotations.
func EncodeValue(v graph.Value) (string, error) {
	var sb strings.Builder
	if err := encodeValue(&sb, v); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func encodeValue(sb *strings.Builder, v graph.Value) error {
	switch v.Kind() {
	case graph.KindNull:
		sb.WriteString("null")
	case graph.KindBool:
		sb.WriteString(strconv.FormatBool(mustBool(v)))
	case graph.KindInt:
		i, _ := v.AsInt()
		sb.WriteString(strconv.FormatInt(i, 10))
	case graph.KindFloat:
		f, _ := v.AsFloat()
		sb.WriteString(formatFloat(f))
	case graph.KindString:
		s, _ := v.AsString()
		data, err := json.Marshal(s)
		if err != nil {
			return err
		}
		sb.Write(data)
	case graph.KindVector:
		vec, _ := v.AsVector()
		sb.WriteByte('[')
		for i, f := range vec {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(formatFloat(f))
		}
		sb.WriteByte(']')
	case graph.KindList:
		list, _ := v.AsList()
		sb.WriteByte('[')
		for i, el := range list {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := encodeValue(sb, el); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case graph.KindMap:
		m, _ := v.AsMap()
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			data, err := json.Marshal(k)
			if err != nil {
				return err
			}
			sb.Write(data)
			sb.WriteByte(':')
			if err := encodeValue(sb, m[k]); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	case graph.KindNode:
		n, _ := v.AsNode()
		if err := encodeNode(sb, n); err != nil {
			return err
		}
		sb.WriteString("::vertex")
	case graph.KindRelationship:
		r, _ := v.AsRelationship()
		if err := encodeRelationship(sb, r); err != nil {
			return err
		}
		sb.WriteString("::edge")
	case graph.KindPath:
		p, _ := v.AsPath()
		sb.WriteByte('[')
		for i := range p.Nodes {
			if i > 0 {
				if err := encodeRelationship(sb, p.Relationships[i-1]); err != nil {
					return err
				}
				sb.WriteString("::edge,")
			}
			if err := encodeNode(sb, p.Nodes[i]); err != nil {
				return err
			}
			sb.WriteString("::vertex")
			if i < len(p.Nodes)-1 {
				sb.WriteByte(',')
			}
		}
		sb.WriteString("]::path")
	default:
		return fmt.Errorf("unsupported value kind %s", v.Kind())
	}
	return nil
}

func encodeNode(sb *strings.Builder, n graph.Node) error {
	sb.WriteString(`{"id":`)
	sb.WriteString(strconv.FormatInt(n.GraphID, 10))
	sb.WriteString(`,"label":`)
	label, err := json.Marshal(n.Label)
	if err != nil {
		return err
	}
	sb.Write(label)
	sb.WriteString(`,"properties":`)
	if err := encodeValue(sb, graph.Map(n.Properties)); err != nil {
		return err
	}
	sb.WriteByte('}')
	return nil
}

func encodeRelationship(sb *strings.Builder, r graph.Relationship) error {
	sb.WriteString(`{"id":`)
	sb.WriteString(strconv.FormatInt(r.GraphID, 10))
	sb.WriteString(`,"label":`)
	label, err := json.Marshal(r.Type)
	if err != nil {
		return err
	}
	sb.Write(label)
	sb.WriteString(`,"start_id":`)
	sb.WriteString(strconv.FormatInt(r.StartID, 10))
	sb.WriteString(`,"end_id":`)
	sb.WriteString(strconv.FormatInt(r.EndID, 10))
	sb.WriteString(`,"properties":`)
	if err := encodeValue(sb, graph.Map(r.Properties)); err != nil {
		return err
	}
	sb.WriteByte('}')
	return nil
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func mustBool(v graph.Value) bool {
	b, _ := v.AsBool()
	return b
}

// DecodeValue parses agtype text into a Value. The top-level annotation
// selects structural decoding; unannotated text decodes as plain
// scalars, lists and maps. A non-empty array whose elements are all
// float-formatted numbers decodes as a vector, matching how embeddings
// are stored.
func DecodeValue(text string) (graph.Value, error) {
	cleaned, topAnnotation := stripAnnotations(text)
	trimmed := strings.TrimSpace(cleaned)
	if trimmed == "" {
		return graph.Null(), nil
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return graph.Null(), fmt.Errorf("malformed agtype text: %w", err)
	}

	switch topAnnotation {
	case "vertex":
		n, err := decodeNodeMap(raw)
		if err != nil {
			return graph.Null(), err
		}
		return graph.NodeValue(n), nil
	case "edge":
		r, err := decodeEdgeMap(raw)
		if err != nil {
			return graph.Null(), err
		}
		return graph.RelationshipValue(r), nil
	case "path":
		p, err := decodePathArray(raw)
		if err != nil {
			return graph.Null(), err
		}
		return graph.PathValue(p), nil
	case "numeric":
		// agtype numeric prints as a plain number once annotations are
		// stripped; treat it as a float scalar.
		return jsonToValue(raw)
	case "":
		return jsonToValue(raw)
	default:
		return graph.Null(), fmt.Errorf("unknown agtype annotation ::%s", topAnnotation)
	}
}

// stripAnnotations removes ::identifier annotations at every depth,
// returning the cleaned JSON and the annotation that applied to the
// top-level value, if any.
func stripAnnotations(text string) (string, string) {
	var sb strings.Builder
	sb.Grow(len(text))
	depth := 0
	top := ""
	inString := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			sb.WriteByte(c)
			if c == '\\' && i+1 < len(text) {
				i++
				sb.WriteByte(text[i])
				continue
			}
			if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
			sb.WriteByte(c)
		case '{', '[':
			depth++
			sb.WriteByte(c)
		case '}', ']':
			depth--
			sb.WriteByte(c)
		case ':':
			if i+1 < len(text) && text[i+1] == ':' {
				// Annotation: consume ::identifier without emitting it.
				j := i + 2
				start := j
				for j < len(text) && (isWordByte(text[j])) {
					j++
				}
				if depth == 0 {
					top = text[start:j]
				}
				i = j - 1
				continue
			}
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), top
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func jsonToValue(raw any) (graph.Value, error) {
	switch x := raw.(type) {
	case nil:
		return graph.Null(), nil
	case bool:
		return graph.Bool(x), nil
	case string:
		return graph.String(x), nil
	case json.Number:
		text := x.String()
		if strings.ContainsAny(text, ".eE") {
			f, err := x.Float64()
			if err != nil {
				return graph.Null(), err
			}
			return graph.Float(f), nil
		}
		i, err := x.Int64()
		if err != nil {
			return graph.Null(), err
		}
		return graph.Int(i), nil
	case []any:
		if vec, ok := asFloatVector(x); ok {
			return graph.Vector(vec), nil
		}
		list := make([]graph.Value, len(x))
		for i, el := range x {
			v, err := jsonToValue(el)
			if err != nil {
				return graph.Null(), err
			}
			list[i] = v
		}
		return graph.List(list), nil
	case map[string]any:
		m := make(map[string]graph.Value, len(x))
		for k, el := range x {
			v, err := jsonToValue(el)
			if err != nil {
				return graph.Null(), err
			}
			m[k] = v
		}
		return graph.Map(m), nil
	default:
		return graph.Null(), fmt.Errorf("unsupported json value %T", raw)
	}
}

// asFloatVector returns a float slice when every element of a non-empty
// array is a float-formatted number.
func asFloatVector(arr []any) ([]float64, bool) {
	if len(arr) == 0 {
		return nil, false
	}
	out := make([]float64, len(arr))
	for i, el := range arr {
		num, ok := el.(json.Number)
		if !ok || !strings.ContainsAny(num.String(), ".eE") {
			return nil, false
		}
		f, err := num.Float64()
		if err != nil {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func decodeNodeMap(raw any) (graph.Node, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return graph.Node{}, fmt.Errorf("vertex is not an object")
	}
	id, err := int64Field(m, "id")
	if err != nil {
		return graph.Node{}, err
	}
	label, _ := m["label"].(string)
	props, err := propsField(m)
	if err != nil {
		return graph.Node{}, err
	}
	return graph.Node{GraphID: id, Label: label, Properties: props}, nil
}

func decodeEdgeMap(raw any) (graph.Relationship, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return graph.Relationship{}, fmt.Errorf("edge is not an object")
	}
	id, err := int64Field(m, "id")
	if err != nil {
		return graph.Relationship{}, err
	}
	startID, err := int64Field(m, "start_id")
	if err != nil {
		return graph.Relationship{}, err
	}
	endID, err := int64Field(m, "end_id")
	if err != nil {
		return graph.Relationship{}, err
	}
	label, _ := m["label"].(string)
	props, err := propsField(m)
	if err != nil {
		return graph.Relationship{}, err
	}
	return graph.Relationship{
		GraphID: id, Type: label, StartID: startID, EndID: endID, Properties: props,
	}, nil
}

// decodePathArray rebuilds a path from its element array. Annotations
// are already stripped, so elements are told apart by their keys: edges
// carry start_id, vertices do not.
func decodePathArray(raw any) (graph.Path, error) {
	arr, ok := raw.([]any)
	if !ok {
		return graph.Path{}, fmt.Errorf("path is not an array")
	}
	var p graph.Path
	for i, el := range arr {
		m, ok := el.(map[string]any)
		if !ok {
			return graph.Path{}, fmt.Errorf("path element %d is not an object", i)
		}
		if _, isEdge := m["start_id"]; isEdge {
			r, err := decodeEdgeMap(m)
			if err != nil {
				return graph.Path{}, err
			}
			p.Relationships = append(p.Relationships, r)
		} else {
			n, err := decodeNodeMap(m)
			if err != nil {
				return graph.Path{}, err
			}
			p.Nodes = append(p.Nodes, n)
		}
	}
	if !p.Valid() {
		return graph.Path{}, fmt.Errorf("path does not alternate node, relationship, node")
	}
	return p, nil
}

func int64Field(m map[string]any, key string) (int64, error) {
	num, ok := m[key].(json.Number)
	if !ok {
		return 0, fmt.Errorf("missing numeric field %q", key)
	}
	return num.Int64()
}

func propsField(m map[string]any) (map[string]graph.Value, error) {
	raw, ok := m["properties"].(map[string]any)
	if !ok {
		return map[string]graph.Value{}, nil
	}
	props := make(map[string]graph.Value, len(raw))
	for k, el := range raw {
		v, err := jsonToValue(el)
		if err != nil {
			return nil, err
		}
		props[k] = v
	}
	return props, nil
}

// decodeColumn decodes one wire column against its predicted kind. A
// value that decodes fine but does not match the prediction is a decode
// failure; the engine never reinterprets it as something else.
func decodeColumn(col graph.Column, text string, null bool) (graph.Value, error) {
	if null {
		return graph.Null(), nil
	}
	v, err := DecodeValue(text)
	if err != nil {
		return graph.Null(), types.WrapError(graph.ErrCodeDecodeFailed,
			fmt.Sprintf("column %q (%d bytes)", col.Name, len(text)), err)
	}
	switch col.Kind {
	case graph.ColumnNode:
		if v.Kind() != graph.KindNode && !v.IsNull() {
			return graph.Null(), decodeMismatch(col, v, len(text))
		}
	case graph.ColumnRelationship:
		if v.Kind() != graph.KindRelationship && !v.IsNull() {
			return graph.Null(), decodeMismatch(col, v, len(text))
		}
	case graph.ColumnPath:
		if v.Kind() != graph.KindPath && !v.IsNull() {
			return graph.Null(), decodeMismatch(col, v, len(text))
		}
	case graph.ColumnScalar:
		switch v.Kind() {
		case graph.KindNode, graph.KindRelationship, graph.KindPath:
			return graph.Null(), decodeMismatch(col, v, len(text))
		}
	}
	return v, nil
}

func decodeMismatch(col graph.Column, v graph.Value, rawLen int) error {
	return types.NewError(graph.ErrCodeDecodeFailed, fmt.Sprintf(
		"column %q (%d bytes): expected %s, wire value is %s",
		col.Name, rawLen, col.Kind, v.Kind()))
}
