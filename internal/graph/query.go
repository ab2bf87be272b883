package graph

import "fmt"

// Query is an immutable, fully parameterized graph query: text plus named
// parameters. Building a Query performs no I/O and the same Query can be
// executed any number of times. Values are never interpolated into the
// text; adapters bind them through the backend's typed parameter
// mechanism, which removes injection as a class of defect.
type Query struct {
	text   string
	params Params
}

// NewQuery starts a query from its text. Placeholders use $name syntax.
func NewQuery(text string) Query {
	return Query{text: text}
}

// Bind returns a copy of the query with a parameter added. The value is
// converted through ValueOf; an unsupported Go type is a programming
// error and panics, mirroring how a malformed query text would fail.
func (q Query) Bind(name string, value any) Query {
	v, err := ValueOf(value)
	if err != nil {
		panic(fmt.Sprintf("graph: bind %q: %v", name, err))
	}
	return q.BindValue(name, v)
}

// BindValue returns a copy of the query with a typed parameter added.
func (q Query) BindValue(name string, v Value) Query {
	params := q.params.Clone()
	if params == nil {
		params = make(Params, 1)
	}
	params[name] = v
	return Query{text: q.text, params: params}
}

// Text returns the query text.
func (q Query) Text() string { return q.text }

// Params returns a copy of the bound parameters.
func (q Query) Params() Params { return q.params.Clone() }

// Shape returns the query's projection shape, parsed once per distinct
// text.
func (q Query) Shape() (RowShape, error) {
	return ShapeOf(q.text)
}
