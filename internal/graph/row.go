package graph

import (
	"github.com/e7nd7r/gnapsis/internal/types"
)

// Params maps placeholder names (referenced as $name in query text) to
// typed values. Parameters travel out-of-band to the backend; nothing in
// this package or any adapter interpolates a parameter into query text.
type Params map[string]Value

// Clone returns a shallow copy of the parameter map.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Row is one decoded result record: column name to typed value. The
// column set matches the query's RowShape exactly.
type Row struct {
	data map[string]Value
}

// NewRow builds a row from a column map.
func NewRow(data map[string]Value) Row {
	return Row{data: data}
}

// Get returns the value for a column. The second result is false when the
// column does not exist in this row.
func (r Row) Get(column string) (Value, bool) {
	v, ok := r.data[column]
	return v, ok
}

// Node extracts a node column. Returns a decode error naming the column
// when it is absent or holds a different kind.
func (r Row) Node(column string) (Node, error) {
	v, ok := r.data[column]
	if !ok {
		return Node{}, types.NewError(ErrCodeDecodeFailed, "column not found: "+column)
	}
	n, ok := v.AsNode()
	if !ok {
		return Node{}, types.NewError(ErrCodeDecodeFailed,
			"column "+column+" holds "+v.Kind().String()+", not a node")
	}
	return n, nil
}

// Relationship extracts a relationship column.
func (r Row) Relationship(column string) (Relationship, error) {
	v, ok := r.data[column]
	if !ok {
		return Relationship{}, types.NewError(ErrCodeDecodeFailed, "column not found: "+column)
	}
	rel, ok := v.AsRelationship()
	if !ok {
		return Relationship{}, types.NewError(ErrCodeDecodeFailed,
			"column "+column+" holds "+v.Kind().String()+", not a relationship")
	}
	return rel, nil
}

// Path extracts a path column.
func (r Row) Path(column string) (Path, error) {
	v, ok := r.data[column]
	if !ok {
		return Path{}, types.NewError(ErrCodeDecodeFailed, "column not found: "+column)
	}
	p, ok := v.AsPath()
	if !ok {
		return Path{}, types.NewError(ErrCodeDecodeFailed,
			"column "+column+" holds "+v.Kind().String()+", not a path")
	}
	return p, nil
}

// String extracts a string column.
func (r Row) String(column string) (string, error) {
	v, ok := r.data[column]
	if !ok {
		return "", types.NewError(ErrCodeDecodeFailed, "column not found: "+column)
	}
	s, ok := v.AsString()
	if !ok {
		return "", types.NewError(ErrCodeDecodeFailed,
			"column "+column+" holds "+v.Kind().String()+", not a string")
	}
	return s, nil
}

// StringOr extracts a string column, returning fallback for null or a
// missing column. A present non-string value is still an error upstream;
// this helper is for optional text properties surfaced as columns.
func (r Row) StringOr(column, fallback string) string {
	v, ok := r.data[column]
	if !ok || v.IsNull() {
		return fallback
	}
	if s, ok := v.AsString(); ok {
		return s
	}
	return fallback
}

// Int extracts an integer column.
func (r Row) Int(column string) (int64, error) {
	v, ok := r.data[column]
	if !ok {
		return 0, types.NewError(ErrCodeDecodeFailed, "column not found: "+column)
	}
	i, ok := v.AsInt()
	if !ok {
		return 0, types.NewError(ErrCodeDecodeFailed,
			"column "+column+" holds "+v.Kind().String()+", not an int")
	}
	return i, nil
}

// Float extracts a numeric column widened to float64.
func (r Row) Float(column string) (float64, error) {
	v, ok := r.data[column]
	if !ok {
		return 0, types.NewError(ErrCodeDecodeFailed, "column not found: "+column)
	}
	f, ok := v.AsFloat()
	if !ok {
		return 0, types.NewError(ErrCodeDecodeFailed,
			"column "+column+" holds "+v.Kind().String()+", not a number")
	}
	return f, nil
}

// Columns returns the column names present in this row, unordered.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r.data))
	for k := range r.data {
		cols = append(cols, k)
	}
	return cols
}

// Len returns the number of columns.
func (r Row) Len() int { return len(r.data) }

// Rows is a streaming cursor over a result set. The usage pattern follows
// database/sql: iterate with Next, read with Row, then check Err and Close.
// Closing early releases the underlying connection.
type Rows interface {
	// Next advances to the next row, returning false at the end of the
	// result set or on error.
	Next() bool

	// Row returns the current row. Only valid after a true Next.
	Row() Row

	// Err returns the error that terminated iteration, if any.
	Err() error

	// Close releases resources held by the cursor. Safe to call twice.
	Close()
}

// CollectRows drains a cursor into a slice, closing it afterwards.
func CollectRows(rs Rows) ([]Row, error) {
	defer rs.Close()
	var out []Row
	for rs.Next() {
		out = append(out, rs.Row())
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// sliceRows adapts a materialized row slice to the Rows interface. Used
// by the mock client and by adapters that buffer whole result sets.
type sliceRows struct {
	rows []Row
	idx  int
	err  error
}

// NewSliceRows wraps pre-built rows in a cursor.
func NewSliceRows(rows []Row) Rows {
	return &sliceRows{rows: rows, idx: -1}
}

// NewErrRows returns a cursor that fails immediately with err.
func NewErrRows(err error) Rows {
	return &sliceRows{err: err, idx: -1}
}

func (s *sliceRows) Next() bool {
	if s.err != nil || s.idx+1 >= len(s.rows) {
		return false
	}
	s.idx++
	return true
}

func (s *sliceRows) Row() Row {
	return s.rows[s.idx]
}

func (s *sliceRows) Err() error { return s.err }

func (s *sliceRows) Close() {}
