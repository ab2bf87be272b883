package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7nd7r/gnapsis/internal/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
graph:
  backend: age
  age:
    dsn: postgres://app:secret@db:5432/kg
    graph_name: production
embedder:
  provider: mock
  dimensions: 64
extraction:
  max_nodes: 25
  strategy: branch_penalty
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "age", cfg.Graph.Backend)
	assert.Equal(t, "production", cfg.Graph.AGE.GraphName)
	assert.Equal(t, 64, cfg.Embedder.Dimensions)
	assert.Equal(t, 25, cfg.Extraction.MaxNodes)
	assert.Equal(t, "branch_penalty", cfg.Extraction.Strategy)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset sections keep their defaults.
	assert.Equal(t, 4000, cfg.Extraction.MaxTokens)
}

func TestLoadEnvInterpolation(t *testing.T) {
	t.Setenv("KG_DB_PASSWORD", "s3cret")
	path := writeConfig(t, `
graph:
  backend: age
  age:
    dsn: postgres://app:${KG_DB_PASSWORD}@db:5432/kg
    graph_name: kg
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:s3cret@db:5432/kg", cfg.Graph.AGE.DSN)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
graph:
  backend: dgraph
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, types.CONFIG_VALIDATION_FAILED, types.CodeOf(err))
	assert.Contains(t, err.Error(), "graph.backend")
}

func TestValidateRequiresSelectedBackendSection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Graph.Backend = "neo4j"
	cfg.Graph.Neo4j.URI = ""

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph.neo4j.uri")

	// The unselected backend's section may stay empty.
	cfg = DefaultConfig()
	cfg.Graph.Neo4j.URI = ""
	assert.NoError(t, Validate(cfg))
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "age", cfg.Graph.Backend)
	assert.Equal(t, "mock", cfg.Embedder.Provider)
	assert.Equal(t, 50, cfg.Extraction.MaxNodes)
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, "graph: [not: valid")
	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, types.CONFIG_LOAD_FAILED, types.CodeOf(err))
}
