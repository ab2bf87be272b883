// Package knowledge is the domain layer over the graph store: typed
// entities, their relationships, and embedding-based search.
package knowledge

import (
	"time"

	"github.com/google/uuid"

	"github.com/e7nd7r/gnapsis/internal/graph"
	"github.com/e7nd7r/gnapsis/internal/types"
)

// charsPerToken is the rough text-to-token ratio used for budget
// accounting. Real tokenizers average close to four characters per
// token on English prose.
const charsPerToken = 4

// Entity is a named concept in the knowledge graph.
type Entity struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Embedding   []float64 `json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// NewEntity mints an entity with a fresh ID.
func NewEntity(name, description string) Entity {
	return Entity{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

// Validate checks the fields required before persisting.
func (e Entity) Validate() error {
	if e.ID == "" {
		return types.NewError(ErrCodeInvalidEntity, "entity id is required")
	}
	if _, err := uuid.Parse(e.ID); err != nil {
		return types.WrapError(ErrCodeInvalidEntity, "entity id is not a valid uuid", err)
	}
	if e.Name == "" {
		return types.NewError(ErrCodeInvalidEntity, "entity name is required")
	}
	return nil
}

// TokenCost estimates how many tokens this entity consumes when
// rendered into a context window. Never less than one, so even empty
// entities count against budgets.
func (e Entity) TokenCost() int {
	cost := (len(e.Name) + len(e.Description)) / charsPerToken
	if cost < 1 {
		return 1
	}
	return cost
}

// HasEmbedding reports whether the entity carries a semantic vector.
func (e Entity) HasEmbedding() bool { return len(e.Embedding) > 0 }

// entityFromNode maps a graph node onto the entity model. Missing
// optional properties are tolerated; a missing id is not.
func entityFromNode(n graph.Node) (Entity, error) {
	id, ok := n.StringProp("id")
	if !ok || id == "" {
		return Entity{}, types.NewError(ErrCodeInvalidEntity, "node has no id property")
	}
	e := Entity{ID: id}
	e.Name, _ = n.StringProp("name")
	e.Description, _ = n.StringProp("description")
	e.Embedding, _ = n.VectorProp("embedding")
	if raw, ok := n.StringProp("created_at"); ok {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			e.CreatedAt = ts
		}
	}
	if raw, ok := n.StringProp("updated_at"); ok {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			e.UpdatedAt = ts
		}
	}
	return e, nil
}

// Neighbor is an entity one hop away, together with the connecting
// relationship.
type Neighbor struct {
	Entity       Entity
	Relationship string
	FromID       string
	ToID         string
	Note         string
}

// SearchResult pairs an entity with its relevance score.
type SearchResult struct {
	Entity Entity
	Score  float64
}

// GraphNode is an entity in a neighborhood subgraph, annotated with its
// hop distance from the root.
type GraphNode struct {
	Entity   Entity `json:"entity"`
	Distance int    `json:"distance"`
}

// GraphEdge is a relationship between two subgraph nodes.
type GraphEdge struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Type   string `json:"type"`
	Note   string `json:"note,omitempty"`
}

// QueryGraph is a neighborhood around one entity.
type QueryGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}
