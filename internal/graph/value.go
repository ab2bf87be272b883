package graph

import (
	"fmt"
	"sort"
)

// Kind enumerates the closed set of value kinds a query can return or a
// parameter can carry. Backends convert their wire encoding to and from
// these kinds losslessly; anything outside the set is a decode failure,
// never a silent coercion.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindVector
	KindList
	KindMap
	KindNode
	KindRelationship
	KindPath
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindVector:
		return "vector"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindNode:
		return "node"
	case KindRelationship:
		return "relationship"
	case KindPath:
		return "path"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is one graph value: a scalar, a float vector, a nested
// list/map, or a structural node/relationship/path. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	vec  []float64
	list []Value
	m    map[string]Value
	node *Node
	rel  *Relationship
	path *Path
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps a 64-bit integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a 64-bit float.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Vector wraps an embedding vector.
func Vector(v []float64) Value { return Value{kind: KindVector, vec: v} }

// List wraps an ordered list of values.
func List(vs []Value) Value { return Value{kind: KindList, list: vs} }

// Map wraps a string-keyed map of values.
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

// NodeValue wraps a graph node.
func NodeValue(n Node) Value { return Value{kind: KindNode, node: &n} }

// RelationshipValue wraps a graph relationship.
func RelationshipValue(r Relationship) Value { return Value{kind: KindRelationship, rel: &r} }

// PathValue wraps a graph path.
func PathValue(p Path) Value { return Value{kind: KindPath, path: &p} }

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean and true when the kind matches.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer and true when the kind matches.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float and true when the kind is float or int.
// Integers widen losslessly; nothing else converts.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// AsString returns the string and true when the kind matches.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsVector returns the float vector and true when the kind is vector, or
// when the kind is a list of numbers (backends without a dedicated vector
// type return embeddings as plain lists).
func (v Value) AsVector() ([]float64, bool) {
	if v.kind == KindVector {
		return v.vec, true
	}
	if v.kind == KindList {
		out := make([]float64, len(v.list))
		for i, el := range v.list {
			f, ok := el.AsFloat()
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

// AsList returns the list and true when the kind matches.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// AsMap returns the map and true when the kind matches.
func (v Value) AsMap() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// AsNode returns the node and true when the kind matches.
func (v Value) AsNode() (Node, bool) {
	if v.kind != KindNode {
		return Node{}, false
	}
	return *v.node, true
}

// AsRelationship returns the relationship and true when the kind matches.
func (v Value) AsRelationship() (Relationship, bool) {
	if v.kind != KindRelationship {
		return Relationship{}, false
	}
	return *v.rel, true
}

// AsPath returns the path and true when the kind matches.
func (v Value) AsPath() (Path, bool) {
	if v.kind != KindPath {
		return Path{}, false
	}
	return *v.path, true
}

// Equal reports deep equality, including nested lists and maps. A
// vector and a numeric list with the same elements are equal: backend
// wire formats carry both as one array type, so the kinds are not
// distinguishable after a round trip.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		if (v.kind == KindVector && o.kind == KindList) ||
			(v.kind == KindList && o.kind == KindVector) {
			return v.vectorEqual(o)
		}
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindVector:
		if len(v.vec) != len(o.vec) {
			return false
		}
		for i := range v.vec {
			if v.vec[i] != o.vec[i] {
				return false
			}
		}
		return true
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, el := range v.m {
			other, ok := o.m[k]
			if !ok || !el.Equal(other) {
				return false
			}
		}
		return true
	case KindNode:
		return v.node.Equal(*o.node)
	case KindRelationship:
		return v.rel.Equal(*o.rel)
	case KindPath:
		return v.path.Equal(*o.path)
	default:
		return false
	}
}

func (v Value) vectorEqual(o Value) bool {
	a, aok := v.AsVector()
	b, bok := o.AsVector()
	if !aok || !bok || len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ValueOf converts a native Go value into a Value. Supported inputs are
// nil, bool, int, int32, int64, float32, float64, string, []float64,
// []float32, []any, map[string]any, []Value, map[string]Value, Value,
// Node, Relationship and Path. Anything else returns an error: parameters
// carry typed values only, there is no stringly-typed fallback.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case string:
		return String(x), nil
	case []float64:
		return Vector(x), nil
	case []float32:
		out := make([]float64, len(x))
		for i, f := range x {
			out[i] = float64(f)
		}
		return Vector(out), nil
	case []string:
		out := make([]Value, len(x))
		for i, s := range x {
			out[i] = String(s)
		}
		return List(out), nil
	case []Value:
		return List(x), nil
	case []any:
		out := make([]Value, len(x))
		for i, el := range x {
			conv, err := ValueOf(el)
			if err != nil {
				return Null(), err
			}
			out[i] = conv
		}
		return List(out), nil
	case map[string]Value:
		return Map(x), nil
	case map[string]any:
		out := make(map[string]Value, len(x))
		for k, el := range x {
			conv, err := ValueOf(el)
			if err != nil {
				return Null(), err
			}
			out[k] = conv
		}
		return Map(out), nil
	case Node:
		return NodeValue(x), nil
	case Relationship:
		return RelationshipValue(x), nil
	case Path:
		return PathValue(x), nil
	default:
		return Null(), fmt.Errorf("unsupported parameter type %T", v)
	}
}

// Node is a graph vertex with its backend-internal id, label and
// properties. The id is stable for the duration of a session.
type Node struct {
	GraphID    int64
	Label      string
	Properties map[string]Value
}

// Prop returns a property value, or null if absent.
func (n Node) Prop(key string) Value {
	return n.Properties[key]
}

// StringProp returns a string property and true when present with the
// right kind.
func (n Node) StringProp(key string) (string, bool) {
	return n.Properties[key].AsString()
}

// FloatProp returns a numeric property widened to float64.
func (n Node) FloatProp(key string) (float64, bool) {
	return n.Properties[key].AsFloat()
}

// VectorProp returns an embedding property.
func (n Node) VectorProp(key string) ([]float64, bool) {
	return n.Properties[key].AsVector()
}

// PropertyNames returns the property keys in sorted order.
func (n Node) PropertyNames() []string {
	names := make([]string, 0, len(n.Properties))
	for k := range n.Properties {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Equal reports deep equality with another node.
func (n Node) Equal(o Node) bool {
	if n.GraphID != o.GraphID || n.Label != o.Label || len(n.Properties) != len(o.Properties) {
		return false
	}
	for k, v := range n.Properties {
		other, ok := o.Properties[k]
		if !ok || !v.Equal(other) {
			return false
		}
	}
	return true
}

// Relationship is a directed graph edge between two nodes identified by
// their backend-internal ids.
type Relationship struct {
	GraphID    int64
	Type       string
	StartID    int64
	EndID      int64
	Properties map[string]Value
}

// Prop returns a property value, or null if absent.
func (r Relationship) Prop(key string) Value {
	return r.Properties[key]
}

// StringProp returns a string property and true when present with the
// right kind.
func (r Relationship) StringProp(key string) (string, bool) {
	return r.Properties[key].AsString()
}

// Equal reports deep equality with another relationship.
func (r Relationship) Equal(o Relationship) bool {
	if r.GraphID != o.GraphID || r.Type != o.Type || r.StartID != o.StartID || r.EndID != o.EndID {
		return false
	}
	if len(r.Properties) != len(o.Properties) {
		return false
	}
	for k, v := range r.Properties {
		other, ok := o.Properties[k]
		if !ok || !v.Equal(other) {
			return false
		}
	}
	return true
}

// Path is an ordered walk through the graph. Nodes and Relationships
// alternate: Nodes[0], Relationships[0], Nodes[1], ... A valid path has
// exactly one more node than relationships.
type Path struct {
	Nodes         []Node
	Relationships []Relationship
}

// Len returns the number of relationships in the path.
func (p Path) Len() int { return len(p.Relationships) }

// Start returns the first node, or false for an empty path.
func (p Path) Start() (Node, bool) {
	if len(p.Nodes) == 0 {
		return Node{}, false
	}
	return p.Nodes[0], true
}

// End returns the last node, or false for an empty path.
func (p Path) End() (Node, bool) {
	if len(p.Nodes) == 0 {
		return Node{}, false
	}
	return p.Nodes[len(p.Nodes)-1], true
}

// Valid reports whether the node/relationship alternation holds.
func (p Path) Valid() bool {
	return len(p.Nodes) == len(p.Relationships)+1
}

// Equal reports deep equality with another path.
func (p Path) Equal(o Path) bool {
	if len(p.Nodes) != len(o.Nodes) || len(p.Relationships) != len(o.Relationships) {
		return false
	}
	for i := range p.Nodes {
		if !p.Nodes[i].Equal(o.Nodes[i]) {
			return false
		}
	}
	for i := range p.Relationships {
		if !p.Relationships[i].Equal(o.Relationships[i]) {
			return false
		}
	}
	return true
}
