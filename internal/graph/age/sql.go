package age

import (
	"strings"

	"github.com/e7nd7r/gnapsis/internal/graph"
	"github.com/e7nd7r/gnapsis/internal/types"
)

// placeholderColumn names the single output column used when a query
// projects nothing. AGE requires at least one column in the cypher()
// definition list even for write-only statements.
const placeholderColumn = "result"

// buildSQL wraps a cypher query in AGE's set-returning function call.
// The query text is never spliced with parameter values; parameters
// travel as one agtype JSON object bound to $1, which keeps hostile
// strings inert. The dollar-quote tag is chosen so it cannot collide
// with the query text.
func buildSQL(graphName string, q graph.Query) (sql string, args []any, err error) {
	shape, err := q.Shape()
	if err != nil {
		return "", nil, err
	}

	paramJSON, err := encodeParams(q.Params())
	if err != nil {
		return "", nil, types.WrapError(graph.ErrCodeQueryFailed, "encode parameters", err)
	}

	tag := dollarTag(q.Text())

	var sb strings.Builder
	sb.WriteString("SELECT * FROM cypher(")
	sb.WriteString(quoteLiteral(graphName))
	sb.WriteString(", ")
	sb.WriteString(tag)
	sb.WriteString(q.Text())
	sb.WriteString(tag)
	if paramJSON != "" {
		sb.WriteString(", $1::agtype")
		args = []any{paramJSON}
	}
	sb.WriteString(") AS (")
	if shape.IsEmpty() {
		sb.WriteString(quoteIdent(placeholderColumn))
		sb.WriteString(" agtype")
	} else {
		for i, col := range shape.Columns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(quoteIdent(col.Name))
			sb.WriteString(" agtype")
		}
	}
	sb.WriteString(")")
	return sb.String(), args, nil
}

// dollarTag picks a dollar-quote tag absent from the text. Plain $$
// almost always works; the suffix grows only when the text itself
// contains the candidate.
func dollarTag(text string) string {
	tag := "$$"
	for n := 0; strings.Contains(text, tag); n++ {
		tag = "$q" + strings.Repeat("q", n) + "$"
	}
	return tag
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
