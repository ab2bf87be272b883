package age

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7nd7r/gnapsis/internal/graph"
)

func TestBuildSQLReadQuery(t *testing.T) {
	q := graph.NewQuery("MATCH (n:Entity) RETURN n, n.name AS name")
	sql, args, err := buildSQL("knowledge", q)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT * FROM cypher('knowledge', $$MATCH (n:Entity) RETURN n, n.name AS name$$) AS ("n" agtype, "name" agtype)`,
		sql)
	assert.Empty(t, args)
}

func TestBuildSQLWithParams(t *testing.T) {
	q := graph.NewQuery("MATCH (n:Entity) WHERE n.name = $name RETURN n").
		Bind("name", "core")
	sql, args, err := buildSQL("knowledge", q)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT * FROM cypher('knowledge', $$MATCH (n:Entity) WHERE n.name = $name RETURN n$$, $1::agtype) AS ("n" agtype)`,
		sql)
	require.Len(t, args, 1)
	assert.Equal(t, `{"name":"core"}`, args[0])
}

func TestBuildSQLWriteOnlyPlaceholder(t *testing.T) {
	q := graph.NewQuery("CREATE (n:Entity {name: $name})").Bind("name", "x")
	sql, _, err := buildSQL("knowledge", q)
	require.NoError(t, err)
	assert.Contains(t, sql, `AS ("result" agtype)`)
}

func TestBuildSQLHostileParameterStaysOutOfText(t *testing.T) {
	hostile := `'); DROP TABLE ag_graph; --`
	q := graph.NewQuery("MATCH (n) WHERE n.name = $name RETURN n").
		Bind("name", hostile)
	sql, args, err := buildSQL("knowledge", q)
	require.NoError(t, err)
	assert.NotContains(t, sql, "DROP TABLE")
	require.Len(t, args, 1)
	assert.Contains(t, args[0].(string), "DROP TABLE")
}

func TestBuildSQLDollarQuoteCollision(t *testing.T) {
	// Query text containing $$ must not break out of the dollar quoting.
	q := graph.NewQuery(`MATCH (n) WHERE n.note = "a$$b" RETURN n`)
	sql, _, err := buildSQL("g", q)
	require.NoError(t, err)
	assert.Contains(t, sql, `$q$MATCH`)
	assert.Contains(t, sql, `RETURN n$q$`)
}

func TestBuildSQLQuotesGraphNameAndColumns(t *testing.T) {
	q := graph.NewQuery(`MATCH (n) RETURN n.name AS ` + "`odd\"col`")
	sql, _, err := buildSQL("it's", q)
	require.NoError(t, err)
	assert.Contains(t, sql, `cypher('it''s'`)
	assert.Contains(t, sql, `"odd""col" agtype`)
}

func TestBuildSQLPropagatesShapeError(t *testing.T) {
	q := graph.NewQuery("MATCH (n) RETURN *")
	_, _, err := buildSQL("g", q)
	assert.Error(t, err)
}

func TestDollarTag(t *testing.T) {
	assert.Equal(t, "$$", dollarTag("MATCH (n) RETURN n"))
	assert.Equal(t, "$q$", dollarTag("text with $$ inside"))
	assert.Equal(t, "$qq$", dollarTag("has $$ and $q$ both"))
}
