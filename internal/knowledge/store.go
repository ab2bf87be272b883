package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/e7nd7r/gnapsis/internal/embedder"
	"github.com/e7nd7r/gnapsis/internal/graph"
	"github.com/e7nd7r/gnapsis/internal/types"
)

// maxSearchLimit caps embedding search results regardless of what the
// caller asks for.
const maxSearchLimit = 50

// Store reads and writes entities through a graph client. Reads run
// auto-commit; multi-statement writes run in explicit transactions.
type Store struct {
	client graph.Client
	logger *slog.Logger
}

// NewStore wraps a connected graph client.
func NewStore(client graph.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, logger: logger}
}

// GetEntity fetches one entity by id.
func (s *Store) GetEntity(ctx context.Context, id string) (Entity, error) {
	q := graph.NewQuery("MATCH (e:Entity {id: $id}) RETURN e").Bind("id", id)
	rows, err := s.client.Query(ctx, q)
	if err != nil {
		return Entity{}, err
	}
	collected, err := graph.CollectRows(rows)
	if err != nil {
		return Entity{}, err
	}
	if len(collected) == 0 {
		return Entity{}, types.NewError(ErrCodeEntityNotFound, "entity not found: "+id)
	}
	node, err := collected[0].Node("e")
	if err != nil {
		return Entity{}, err
	}
	return entityFromNode(node)
}

// Neighbors returns the entities one hop from id in either direction.
// When relTypes is non-empty, only those relationship types are
// followed. LINK relationships report their type property instead of
// the generic label.
func (s *Store) Neighbors(ctx context.Context, id string, relTypes []string) ([]Neighbor, error) {
	text := `MATCH (start:Entity {id: $id})-[r]-(neighbor:Entity)
RETURN DISTINCT neighbor,
       CASE WHEN type(r) = 'LINK' THEN r.type ELSE type(r) END AS rel_type,
       startNode(r).id AS from_id, endNode(r).id AS to_id,
       r.note AS note`
	q := graph.NewQuery(text).Bind("id", id)

	rows, err := s.client.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	collected, err := graph.CollectRows(rows)
	if err != nil {
		return nil, err
	}

	allow := make(map[string]bool, len(relTypes))
	for _, rt := range relTypes {
		allow[rt] = true
	}

	neighbors := make([]Neighbor, 0, len(collected))
	for _, row := range collected {
		node, err := row.Node("neighbor")
		if err != nil {
			return nil, err
		}
		entity, err := entityFromNode(node)
		if err != nil {
			return nil, err
		}
		rel := row.StringOr("rel_type", "")
		if len(allow) > 0 && !allow[rel] {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			Entity:       entity,
			Relationship: rel,
			FromID:       row.StringOr("from_id", ""),
			ToID:         row.StringOr("to_id", ""),
			Note:         row.StringOr("note", ""),
		})
	}
	return neighbors, nil
}

// maxSubgraphHops bounds neighborhood traversal.
const maxSubgraphHops = 5

// Subgraph returns the neighborhood within the given number of hops
// from id, each node annotated with its hop distance. Traversal runs
// level by level on the client, one Neighbors query per frontier node;
// variable-length path matching is not portable across backends.
func (s *Store) Subgraph(ctx context.Context, id string, hops int, relTypes []string) (QueryGraph, error) {
	if hops < 1 {
		hops = 1
	}
	if hops > maxSubgraphHops {
		hops = maxSubgraphHops
	}

	root, err := s.GetEntity(ctx, id)
	if err != nil {
		return QueryGraph{}, err
	}

	g := QueryGraph{Nodes: []GraphNode{{Entity: root, Distance: 0}}}
	seen := map[string]bool{root.ID: true}
	seenEdges := map[string]bool{}
	frontier := []string{root.ID}

	for depth := 1; depth <= hops && len(frontier) > 0; depth++ {
		var next []string
		for _, nodeID := range frontier {
			neighbors, err := s.Neighbors(ctx, nodeID, relTypes)
			if err != nil {
				return QueryGraph{}, err
			}
			for _, n := range neighbors {
				edgeKey := n.FromID + "\x00" + n.ToID + "\x00" + n.Relationship
				if !seenEdges[edgeKey] {
					seenEdges[edgeKey] = true
					g.Edges = append(g.Edges, GraphEdge{
						FromID: n.FromID,
						ToID:   n.ToID,
						Type:   n.Relationship,
						Note:   n.Note,
					})
				}
				if seen[n.Entity.ID] {
					continue
				}
				seen[n.Entity.ID] = true
				g.Nodes = append(g.Nodes, GraphNode{Entity: n.Entity, Distance: depth})
				next = append(next, n.Entity.ID)
			}
		}
		frontier = next
	}
	return g, nil
}

// SearchByEmbedding ranks entities by cosine similarity against the
// query vector. Entities without embeddings never match. Similarity is
// computed here rather than in the store; the backend only filters on
// embedding presence and optional scope.
func (s *Store) SearchByEmbedding(ctx context.Context, vec []float64, limit int, minScore float64, scope string) ([]SearchResult, error) {
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	var q graph.Query
	if scope != "" {
		q = graph.NewQuery(
			`MATCH (e:Entity)-[:CLASSIFIED_AS]->(c:Category)-[:IN_SCOPE]->(s:Scope {name: $scope})
WHERE e.embedding IS NOT NULL
RETURN e`).Bind("scope", scope)
	} else {
		q = graph.NewQuery(
			`MATCH (e:Entity)
WHERE e.embedding IS NOT NULL
RETURN e`)
	}

	rows, err := s.client.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	collected, err := graph.CollectRows(rows)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(collected))
	for _, row := range collected {
		node, err := row.Node("e")
		if err != nil {
			return nil, err
		}
		entity, err := entityFromNode(node)
		if err != nil {
			return nil, err
		}
		if !entity.HasEmbedding() {
			continue
		}
		score := embedder.Cosine(vec, entity.Embedding)
		if score >= minScore {
			results = append(results, SearchResult{Entity: entity, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Filter narrows FindEntities. Zero values mean "any".
type Filter struct {
	Category string
	Scope    string
	ParentID string
	Limit    int
}

// FindEntities lists entities matching the filter, ordered by name.
func (s *Store) FindEntities(ctx context.Context, f Filter) ([]Entity, error) {
	limit := f.Limit
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	var sb strings.Builder
	sb.WriteString("MATCH (e:Entity)\n")
	switch {
	case f.Category != "" && f.Scope != "":
		sb.WriteString("MATCH (e)-[:CLASSIFIED_AS]->(c:Category {name: $category})-[:IN_SCOPE]->(s:Scope {name: $scope})\n")
	case f.Category != "":
		sb.WriteString("MATCH (e)-[:CLASSIFIED_AS]->(c:Category {name: $category})\n")
	case f.Scope != "":
		sb.WriteString("MATCH (e)-[:CLASSIFIED_AS]->(c:Category)-[:IN_SCOPE]->(s:Scope {name: $scope})\n")
	}
	if f.ParentID != "" {
		sb.WriteString("MATCH (e)-[:BELONGS_TO]->(parent:Entity {id: $parent_id})\n")
	}
	sb.WriteString("RETURN e ORDER BY e.name LIMIT $limit")

	q := graph.NewQuery(sb.String()).Bind("limit", int64(limit))
	if f.Category != "" {
		q = q.Bind("category", f.Category)
	}
	if f.Scope != "" {
		q = q.Bind("scope", f.Scope)
	}
	if f.ParentID != "" {
		q = q.Bind("parent_id", f.ParentID)
	}

	rows, err := s.client.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	collected, err := graph.CollectRows(rows)
	if err != nil {
		return nil, err
	}

	entities := make([]Entity, 0, len(collected))
	for _, row := range collected {
		node, err := row.Node("e")
		if err != nil {
			return nil, err
		}
		entity, err := entityFromNode(node)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// CreateEntity persists a new entity inside a transaction.
func (s *Store) CreateEntity(ctx context.Context, e Entity) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	tx, err := s.client.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Close(ctx)

	create := graph.NewQuery(`CREATE (e:Entity {
    id: $id,
    name: $name,
    description: $description,
    embedding: $embedding,
    created_at: $created_at
})`).
		Bind("id", e.ID).
		Bind("name", e.Name).
		Bind("description", e.Description).
		BindValue("embedding", embeddingValue(e.Embedding)).
		Bind("created_at", e.CreatedAt.Format(time.RFC3339))
	if err := tx.Exec(ctx, create); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.logger.Debug("entity created", "id", e.ID, "name", e.Name)
	return nil
}

// UpdateEntity patches name, description or embedding. Nil or empty
// arguments leave the stored value untouched.
func (s *Store) UpdateEntity(ctx context.Context, id string, name, description *string, embedding []float64) (Entity, error) {
	q := graph.NewQuery(`MATCH (e:Entity {id: $id})
SET e.name = coalesce($name, e.name),
    e.description = coalesce($description, e.description),
    e.embedding = coalesce($embedding, e.embedding),
    e.updated_at = $updated_at
RETURN e`).
		Bind("id", id).
		BindValue("name", optionalString(name)).
		BindValue("description", optionalString(description)).
		BindValue("embedding", embeddingValue(embedding)).
		Bind("updated_at", time.Now().UTC().Format(time.RFC3339))

	rows, err := s.client.Query(ctx, q)
	if err != nil {
		return Entity{}, err
	}
	collected, err := graph.CollectRows(rows)
	if err != nil {
		return Entity{}, err
	}
	if len(collected) == 0 {
		return Entity{}, types.NewError(ErrCodeEntityNotFound, "entity not found: "+id)
	}
	node, err := collected[0].Node("e")
	if err != nil {
		return Entity{}, err
	}
	return entityFromNode(node)
}

// DeleteEntity removes an entity and its relationships inside a
// transaction. Entities that still have children are refused.
func (s *Store) DeleteEntity(ctx context.Context, id string) error {
	tx, err := s.client.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Close(ctx)

	childQ := graph.NewQuery(
		`MATCH (child:Entity)-[:BELONGS_TO]->(e:Entity {id: $id})
RETURN count(child) AS children`).Bind("id", id)
	childRows, err := tx.Query(ctx, childQ)
	if err != nil {
		return err
	}
	collected, err := graph.CollectRows(childRows)
	if err != nil {
		return err
	}
	if len(collected) > 0 {
		children, err := collected[0].Int("children")
		if err != nil {
			return err
		}
		if children > 0 {
			return types.NewError(ErrCodeEntityHasChildren, fmt.Sprintf(
				"entity %s still has %d children", id, children))
		}
	}

	deleteQ := graph.NewQuery(
		`MATCH (e:Entity {id: $id})
DETACH DELETE e
RETURN count(*) AS deleted`).Bind("id", id)
	deleted, err := tx.Query(ctx, deleteQ)
	if err != nil {
		return err
	}
	deletedRows, err := graph.CollectRows(deleted)
	if err != nil {
		return err
	}
	if len(deletedRows) > 0 {
		n, err := deletedRows[0].Int("deleted")
		if err != nil {
			return err
		}
		if n == 0 {
			return types.NewError(ErrCodeEntityNotFound, "entity not found: "+id)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.logger.Debug("entity deleted", "id", id)
	return nil
}

// Link connects two entities with a typed relationship.
func (s *Store) Link(ctx context.Context, fromID, toID, linkType string) error {
	q := graph.NewQuery(`MATCH (from:Entity {id: $from_id})
MATCH (to:Entity {id: $to_id})
MERGE (from)-[r:LINK {type: $link_type}]->(to)`).
		Bind("from_id", fromID).
		Bind("to_id", toID).
		Bind("link_type", linkType)
	return s.client.Exec(ctx, q)
}

// Health reports the backing store's health.
func (s *Store) Health(ctx context.Context) types.HealthStatus {
	return s.client.Health(ctx)
}

func embeddingValue(vec []float64) graph.Value {
	if len(vec) == 0 {
		return graph.Null()
	}
	return graph.Vector(vec)
}

func optionalString(s *string) graph.Value {
	if s == nil {
		return graph.Null()
	}
	return graph.String(*s)
}
