package graph

import (
	"strings"
	"sync"
	"unicode"

	"github.com/e7nd7r/gnapsis/internal/types"
)

// ColumnKind classifies what a projected column denotes, so adapters whose
// wire format does not self-describe column semantics know how to decode
// each returned value ahead of execution.
type ColumnKind int

const (
	ColumnScalar ColumnKind = iota
	ColumnNode
	ColumnRelationship
	ColumnPath
)

func (k ColumnKind) String() string {
	switch k {
	case ColumnScalar:
		return "scalar"
	case ColumnNode:
		return "node"
	case ColumnRelationship:
		return "relationship"
	case ColumnPath:
		return "path"
	default:
		return "unknown"
	}
}

// Column is one projected output column.
type Column struct {
	Name string
	Kind ColumnKind
}

// RowShape is the ordered projection description of a query: the column
// names and kinds every result row must match. An empty shape means the
// query projects nothing (a write-only statement).
type RowShape struct {
	Columns []Column
}

// ColumnNames returns the projected names in order.
func (s RowShape) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// IsEmpty reports whether the query projects no columns.
func (s RowShape) IsEmpty() bool { return len(s.Columns) == 0 }

type shapeCacheEntry struct {
	shape RowShape
	err   error
}

var shapeCache sync.Map // query text -> shapeCacheEntry

// ShapeOf parses the projection clause of a query and returns its row
// shape. The result is computed once per distinct query text and cached;
// parsing is a pure function of the text.
//
// The grammar is deliberately narrow: it recognizes variable bindings in
// MATCH/CREATE/MERGE patterns and the items of the final RETURN clause.
// Everything else in the query is passed through to the backend verbatim.
// A query without a RETURN clause yields an empty shape. A projection
// clause this parser cannot understand is a hard error carrying the
// offending substring; the shape is never guessed.
func ShapeOf(query string) (RowShape, error) {
	if cached, ok := shapeCache.Load(query); ok {
		entry := cached.(shapeCacheEntry)
		return entry.shape, entry.err
	}
	shape, err := parseShape(query)
	shapeCache.Store(query, shapeCacheEntry{shape: shape, err: err})
	return shape, err
}

func shapeErr(offending, reason string) error {
	return types.NewError(ErrCodeShapeParseFailed,
		"cannot parse projection "+strings.TrimSpace(offending)+": "+reason)
}

func parseShape(query string) (RowShape, error) {
	bindings := collectBindings(query)

	start, ok := lastReturnClause(query)
	if !ok {
		return RowShape{}, nil
	}

	projection := query[start:]
	items, err := splitProjection(projection)
	if err != nil {
		return RowShape{}, err
	}

	shape := RowShape{Columns: make([]Column, 0, len(items))}
	for _, item := range items {
		col, err := parseProjectionItem(item, bindings)
		if err != nil {
			return RowShape{}, err
		}
		shape.Columns = append(shape.Columns, col)
	}
	return shape, nil
}

// bindingKind records what a pattern variable was bound to.
type bindingKind int

const (
	bindNone bindingKind = iota
	bindNode
	bindRel
	bindPath
)

// collectBindings scans MATCH/CREATE/MERGE pattern segments for variable
// bindings: (n ...) binds a node, [r ...] binds a relationship, p = (...)
// binds a path. Scanning is permissive; an unrecognized construct simply
// contributes no binding and the column defaults to scalar.
func collectBindings(query string) map[string]bindingKind {
	bindings := make(map[string]bindingKind)
	sc := newScanner(query)

	inPattern := false
	for !sc.done() {
		if sc.skipQuoted() {
			continue
		}
		if word, ok := sc.peekWord(); ok {
			switch strings.ToUpper(word) {
			case "MATCH", "CREATE", "MERGE":
				inPattern = true
				sc.consumeWord(word)
				continue
			case "WHERE", "RETURN", "WITH", "SET", "DELETE", "DETACH",
				"REMOVE", "UNWIND", "ORDER", "SKIP", "LIMIT", "CALL", "FOREACH":
				inPattern = false
				sc.consumeWord(word)
				continue
			}
			if inPattern {
				// Possible path binding: ident = (
				name := word
				sc.consumeWord(word)
				sc.skipSpaces()
				if sc.peekByte() == '=' && sc.peekByteAt(1) != '=' && sc.peekByteAt(1) != '~' {
					sc.advance(1)
					sc.skipSpaces()
					if sc.peekByte() == '(' {
						bindings[name] = bindPath
					}
				}
				continue
			}
			sc.consumeWord(word)
			continue
		}

		switch sc.peekByte() {
		case '(':
			if inPattern {
				sc.advance(1)
				sc.skipSpaces()
				if name, ok := sc.peekWord(); ok {
					sc.consumeWord(name)
					sc.skipSpaces()
					switch sc.peekByte() {
					case ':', ')', '{':
						if bindings[name] != bindPath {
							bindings[name] = bindNode
						}
					}
				}
				continue
			}
		case '[':
			if inPattern {
				sc.advance(1)
				sc.skipSpaces()
				if name, ok := sc.peekWord(); ok {
					sc.consumeWord(name)
					sc.skipSpaces()
					switch sc.peekByte() {
					case ':', ']', '*':
						bindings[name] = bindRel
					}
				}
				continue
			}
		}
		sc.advance(1)
	}
	return bindings
}

// lastReturnClause finds the byte offset just past the final top-level
// RETURN keyword, or false when the query has none.
func lastReturnClause(query string) (int, bool) {
	sc := newScanner(query)
	offset := -1
	depth := 0
	for !sc.done() {
		if sc.skipQuoted() {
			continue
		}
		switch sc.peekByte() {
		case '(', '[', '{':
			depth++
			sc.advance(1)
			continue
		case ')', ']', '}':
			depth--
			sc.advance(1)
			continue
		}
		if word, ok := sc.peekWord(); ok {
			if depth == 0 && strings.EqualFold(word, "RETURN") {
				sc.consumeWord(word)
				offset = sc.pos
				continue
			}
			sc.consumeWord(word)
			continue
		}
		sc.advance(1)
	}
	if offset < 0 {
		return 0, false
	}
	return offset, true
}

// splitProjection splits the text after RETURN into projection items,
// stopping at a top-level ORDER/SKIP/LIMIT/UNION tail.
func splitProjection(projection string) ([]string, error) {
	sc := newScanner(projection)
	sc.skipSpaces()

	// Leading DISTINCT applies to the whole projection.
	if word, ok := sc.peekWord(); ok && strings.EqualFold(word, "DISTINCT") {
		sc.consumeWord(word)
	}

	var items []string
	depth := 0
	itemStart := sc.pos
	end := len(projection)

scan:
	for !sc.done() {
		if sc.skipQuoted() {
			continue
		}
		switch sc.peekByte() {
		case '(', '[', '{':
			depth++
			sc.advance(1)
			continue
		case ')', ']', '}':
			depth--
			sc.advance(1)
			continue
		case ',':
			if depth == 0 {
				items = append(items, projection[itemStart:sc.pos])
				sc.advance(1)
				itemStart = sc.pos
				continue
			}
			sc.advance(1)
			continue
		}
		if word, ok := sc.peekWord(); ok {
			if depth == 0 {
				switch strings.ToUpper(word) {
				case "ORDER", "SKIP", "LIMIT", "UNION":
					end = sc.pos
					break scan
				}
			}
			sc.consumeWord(word)
			continue
		}
		sc.advance(1)
	}
	if end > itemStart {
		items = append(items, projection[itemStart:end])
	} else if end == itemStart && len(items) > 0 {
		return nil, shapeErr(projection, "trailing comma in projection")
	}

	if len(items) == 0 {
		return nil, shapeErr(projection, "empty projection clause")
	}
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			return nil, shapeErr(projection, "empty projection item")
		}
	}
	return items, nil
}

// parseProjectionItem resolves one `expr [AS alias]` item to a column.
func parseProjectionItem(item string, bindings map[string]bindingKind) (Column, error) {
	trimmed := strings.TrimSpace(item)
	if trimmed == "*" || strings.HasPrefix(trimmed, "*") {
		return Column{}, shapeErr(item, "RETURN * is not supported, list columns explicitly")
	}

	expr, alias := splitAlias(trimmed)
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Column{}, shapeErr(item, "missing expression before AS")
	}

	name := alias
	if name == "" {
		name = expr
	}
	name = unquoteIdentifier(name)
	if name == "" {
		return Column{}, shapeErr(item, "empty column name")
	}

	kind := ColumnScalar
	if ident := bareIdentifier(expr); ident != "" {
		switch bindings[ident] {
		case bindNode:
			kind = ColumnNode
		case bindRel:
			kind = ColumnRelationship
		case bindPath:
			kind = ColumnPath
		}
	}
	return Column{Name: name, Kind: kind}, nil
}

// splitAlias separates `expr AS alias` at the last top-level AS keyword.
func splitAlias(item string) (expr, alias string) {
	sc := newScanner(item)
	depth := 0
	asPos, asEnd := -1, -1
	for !sc.done() {
		if sc.skipQuoted() {
			continue
		}
		switch sc.peekByte() {
		case '(', '[', '{':
			depth++
			sc.advance(1)
			continue
		case ')', ']', '}':
			depth--
			sc.advance(1)
			continue
		}
		if word, ok := sc.peekWord(); ok {
			start := sc.pos
			sc.consumeWord(word)
			if depth == 0 && strings.EqualFold(word, "AS") {
				asPos, asEnd = start, sc.pos
			}
			continue
		}
		sc.advance(1)
	}
	if asPos < 0 {
		return item, ""
	}
	return item[:asPos], strings.TrimSpace(item[asEnd:])
}

// bareIdentifier returns the identifier when expr is exactly one
// identifier (possibly backtick-quoted), or "" otherwise.
func bareIdentifier(expr string) string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return ""
	}
	if strings.HasPrefix(expr, "`") && strings.HasSuffix(expr, "`") && len(expr) > 1 {
		inner := expr[1 : len(expr)-1]
		if !strings.Contains(inner, "`") {
			return inner
		}
		return ""
	}
	for i, r := range expr {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return ""
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return ""
		}
	}
	return expr
}

func unquoteIdentifier(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "`") && strings.HasSuffix(name, "`") && len(name) > 1 {
		return name[1 : len(name)-1]
	}
	return name
}

// scanner is a minimal cursor over query text that understands quoted
// strings and backticked identifiers so keywords inside literals are
// never misread as structure.
type scanner struct {
	src string
	pos int
}

func newScanner(src string) *scanner {
	return &scanner{src: src}
}

func (s *scanner) done() bool { return s.pos >= len(s.src) }

func (s *scanner) advance(n int) { s.pos += n }

func (s *scanner) peekByte() byte {
	if s.done() {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) peekByteAt(off int) byte {
	if s.pos+off >= len(s.src) {
		return 0
	}
	return s.src[s.pos+off]
}

func (s *scanner) skipSpaces() {
	for !s.done() && unicode.IsSpace(rune(s.src[s.pos])) {
		s.pos++
	}
}

// skipQuoted consumes a quoted string or backticked identifier if one
// starts at the cursor, returning true when it consumed anything.
func (s *scanner) skipQuoted() bool {
	if s.done() {
		return false
	}
	q := s.src[s.pos]
	if q != '\'' && q != '"' && q != '`' {
		return false
	}
	s.pos++
	for !s.done() {
		c := s.src[s.pos]
		if c == '\\' && q != '`' {
			s.pos += 2
			continue
		}
		s.pos++
		if c == q {
			return true
		}
	}
	return true
}

// peekWord returns the identifier/keyword starting at the cursor without
// consuming it.
func (s *scanner) peekWord() (string, bool) {
	if s.done() {
		return "", false
	}
	c := rune(s.src[s.pos])
	if !unicode.IsLetter(c) && c != '_' {
		return "", false
	}
	end := s.pos
	for end < len(s.src) {
		r := rune(s.src[end])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		end++
	}
	return s.src[s.pos:end], true
}

func (s *scanner) consumeWord(word string) {
	s.pos += len(word)
}
