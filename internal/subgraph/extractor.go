// Package subgraph extracts a relevance-ranked, budget-bounded
// neighborhood around a root entity using Best-First Search. Every
// expansion step is a one-hop query through the knowledge store; scoring
// combines embedding similarity with budget pressure.
package subgraph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/e7nd7r/gnapsis/internal/embedder"
	"github.com/e7nd7r/gnapsis/internal/knowledge"
	"github.com/e7nd7r/gnapsis/internal/observability"
	"github.com/e7nd7r/gnapsis/internal/types"
)

// Strategy selects how budget pressure discounts candidate scores.
type Strategy string

const (
	// StrategyGlobal discounts all insertions equally as the global
	// token budget fills. Tends to follow one highly relevant branch
	// deep before considering breadth.
	StrategyGlobal Strategy = "global"

	// StrategyBranchPenalty additionally discounts candidates on paths
	// that already consumed many tokens, trading relevance purity for
	// breadth of coverage.
	StrategyBranchPenalty Strategy = "branch_penalty"
)

// ParseStrategy resolves a strategy name, defaulting to global.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(s)) {
	case StrategyGlobal, "":
		return StrategyGlobal, nil
	case StrategyBranchPenalty:
		return StrategyBranchPenalty, nil
	default:
		return "", types.NewError(ErrCodeInvalidRequest, "unknown scoring strategy: "+s)
	}
}

// Budget bounds an extraction. All numeric caps are hard upper bounds
// on the returned subgraph, enforced before acceptance.
//
// The zero value means "use DefaultBudget": a Budget with every field
// unset is replaced wholesale. Setting any one of MaxNodes, MaxTokens,
// MinRelevance or Strategy makes the remaining zeros literal, so a
// zero-node or zero-token extraction is requested with, for example,
// Budget{MaxNodes: 0, Strategy: StrategyGlobal}.
type Budget struct {
	MaxNodes     int      `mapstructure:"max_nodes"`
	MaxTokens    int      `mapstructure:"max_tokens"`
	MinRelevance float64  `mapstructure:"min_relevance"`
	Strategy     Strategy `mapstructure:"strategy"`

	// BranchBudget is the per-branch token denominator used by the
	// branch_penalty strategy. A tuning parameter, deliberately
	// configurable rather than fixed.
	BranchBudget int `mapstructure:"branch_budget"`
}

// DefaultBudget mirrors the service's standard request defaults.
func DefaultBudget() Budget {
	return Budget{
		MaxNodes:     50,
		MaxTokens:    4000,
		MinRelevance: 0.3,
		Strategy:     StrategyGlobal,
		BranchBudget: 1000,
	}
}

func (b Budget) withDefaults() Budget {
	d := DefaultBudget()
	if b.MaxNodes == 0 && b.MaxTokens == 0 && b.MinRelevance == 0 && b.Strategy == "" {
		return d
	}
	if b.Strategy == "" {
		b.Strategy = d.Strategy
	}
	if b.BranchBudget == 0 {
		b.BranchBudget = d.BranchBudget
	}
	return b
}

// Request asks for a subgraph around a root. At least one of EntityID
// and SemanticQuery must be set: the id anchors traversal, the query
// drives relevance scoring. With only a query, the highest-scoring
// search hit becomes the root.
type Request struct {
	EntityID          string
	SemanticQuery     string
	RelationshipTypes []string
	Budget            Budget
}

// Validate rejects unusable requests before any backend work.
func (r Request) Validate() error {
	if r.EntityID == "" && r.SemanticQuery == "" {
		return types.NewError(ErrCodeInvalidRequest,
			"either entity_id or semantic_query must be provided")
	}
	if r.Budget.MaxNodes < 0 || r.Budget.MaxTokens < 0 {
		return types.NewError(ErrCodeInvalidRequest, "budget caps must not be negative")
	}
	if _, err := ParseStrategy(string(r.Budget.Strategy)); r.Budget.Strategy != "" && err != nil {
		return err
	}
	return nil
}

// Node is one accepted entity with its traversal context.
type Node struct {
	Entity    knowledge.Entity `json:"entity"`
	Depth     int              `json:"depth"`
	Relevance float64          `json:"relevance"`
}

// Edge connects two accepted entities.
type Edge struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Type   string `json:"type"`
	Note   string `json:"note,omitempty"`
}

// Stats summarizes how the search spent its budget.
type Stats struct {
	NodesVisited    int `json:"nodes_visited"`
	NodesPruned     int `json:"nodes_pruned"`
	EstimatedTokens int `json:"estimated_tokens"`
}

// Result is an extracted subgraph.
type Result struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
	Stats Stats  `json:"stats"`
}

// EntitySource is the slice of the knowledge store the extractor needs.
type EntitySource interface {
	GetEntity(ctx context.Context, id string) (knowledge.Entity, error)
	Neighbors(ctx context.Context, id string, relTypes []string) ([]knowledge.Neighbor, error)
	SearchByEmbedding(ctx context.Context, vec []float64, limit int, minScore float64, scope string) ([]knowledge.SearchResult, error)
}

// Extractor runs Best-First Search extractions.
type Extractor struct {
	source EntitySource
	embed  embedder.Embedder
	logger *slog.Logger
}

// NewExtractor wires the extractor to its entity source and embedder.
func NewExtractor(source EntitySource, embed embedder.Embedder, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{source: source, embed: embed, logger: logger}
}

// Extract runs one search. The returned subgraph never exceeds the
// request's node or token caps; reaching a cap is normal termination,
// not an error.
func (x *Extractor) Extract(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	budget := req.Budget.withDefaults()

	queryVec, err := x.queryVector(ctx, req)
	if err != nil {
		return Result{}, err
	}

	root, err := x.resolveRoot(ctx, req, queryVec)
	if err != nil {
		return Result{}, err
	}
	if queryVec == nil {
		queryVec = root.Embedding
	}

	result := x.search(ctx, root, queryVec, req.RelationshipTypes, budget)
	x.logger.Info("subgraph extracted",
		"root", root.ID,
		"nodes", len(result.Nodes),
		"edges", len(result.Edges),
		"pruned", result.Stats.NodesPruned,
		"tokens", result.Stats.EstimatedTokens,
		"strategy", budget.Strategy)
	return result, nil
}

// queryVector embeds the semantic query when one is present. With only
// an entity id, scoring falls back to the root's own embedding, which
// resolveRoot supplies.
func (x *Extractor) queryVector(ctx context.Context, req Request) ([]float64, error) {
	if req.SemanticQuery == "" {
		return nil, nil
	}
	vec, err := x.embed.Embed(ctx, req.SemanticQuery)
	if err != nil {
		return nil, err
	}
	return vec, nil
}

// resolveRoot picks the traversal root: the given id when present,
// otherwise the best semantic search hit.
func (x *Extractor) resolveRoot(ctx context.Context, req Request, queryVec []float64) (knowledge.Entity, error) {
	if req.EntityID != "" {
		root, err := x.source.GetEntity(ctx, req.EntityID)
		if err != nil {
			return knowledge.Entity{}, err
		}
		return root, nil
	}

	hits, err := x.source.SearchByEmbedding(ctx, queryVec, 1, 0, "")
	if err != nil {
		return knowledge.Entity{}, err
	}
	if len(hits) == 0 {
		return knowledge.Entity{}, types.NewError(ErrCodeRootNotFound,
			fmt.Sprintf("no entity matches query %q", req.SemanticQuery))
	}
	return hits[0].Entity, nil
}

type searchState struct {
	budget   Budget
	queryVec []float64

	visited map[string]knowledge.Entity
	// seen tracks every discovered id: visited, queued, or pruned.
	// Pruning is permanent per node; a pruned id is never reconsidered
	// even if a later path reaches it under a looser running budget.
	seen map[string]bool

	totalTokens int
	pruned      int
	budgetHit   bool
}

// search is the Best-First loop. Scores are computed at insertion time;
// budget caps are checked before acceptance so the result can never
// exceed them, including zero budgets that exclude the root itself.
func (x *Extractor) search(ctx context.Context, root knowledge.Entity, queryVec []float64, relTypes []string, budget Budget) Result {
	st := &searchState{
		budget:   budget,
		queryVec: queryVec,
		visited:  make(map[string]knowledge.Entity),
		seen:     map[string]bool{root.ID: true},
	}

	f := newFrontier()
	// The root enters at maximal score: it is admitted regardless of
	// its own relevance, subject only to the numeric caps.
	f.push(candidate{id: root.ID, score: rootScore})

	entities := map[string]knowledge.Entity{root.ID: root}
	var nodes []Node
	var edges []Edge
	edgeSeen := make(map[string]bool)

	for {
		c, ok := f.pop()
		if !ok {
			break
		}
		if ctx.Err() != nil {
			break
		}
		entity := entities[c.id]
		cost := entity.TokenCost()

		if len(st.visited) >= budget.MaxNodes || st.totalTokens+cost > budget.MaxTokens {
			// Over budget: discarded permanently, never re-inserted.
			st.budgetHit = true
			continue
		}

		st.visited[c.id] = entity
		st.totalTokens += cost
		nodes = append(nodes, Node{
			Entity:    entity,
			Depth:     c.depth,
			Relevance: embedder.Cosine(queryVec, entity.Embedding),
		})
		observability.ExtractionNodesVisited.Inc()

		neighbors, err := x.source.Neighbors(ctx, c.id, relTypes)
		if err != nil {
			x.logger.Warn("neighbor expansion failed, continuing with partial subgraph",
				"entity", c.id, "error", err.Error())
			continue
		}

		branchTokens := c.branchTokens + cost
		for _, n := range neighbors {
			key := n.FromID + "\x00" + n.ToID + "\x00" + n.Relationship
			if !edgeSeen[key] {
				edgeSeen[key] = true
				edges = append(edges, Edge{
					FromID: n.FromID, ToID: n.ToID, Type: n.Relationship, Note: n.Note,
				})
			}

			if st.seen[n.Entity.ID] {
				continue
			}
			st.seen[n.Entity.ID] = true

			relevance := embedder.Cosine(queryVec, n.Entity.Embedding)
			if relevance <= budget.MinRelevance {
				st.pruned++
				observability.ExtractionNodesPruned.Inc()
				continue
			}

			entities[n.Entity.ID] = n.Entity
			f.push(candidate{
				id:           n.Entity.ID,
				score:        score(budget, relevance, n.Entity.TokenCost(), st.totalTokens, branchTokens),
				depth:        c.depth + 1,
				branchTokens: branchTokens,
			})
		}
	}

	reason := "frontier_exhausted"
	if st.budgetHit {
		reason = "budget_exhausted"
	}
	observability.ExtractionsTotal.WithLabelValues(reason).Inc()

	return Result{
		Nodes: nodes,
		Edges: connectingEdges(edges, st.visited),
		Stats: Stats{
			NodesVisited:    len(nodes),
			NodesPruned:     st.pruned,
			EstimatedTokens: st.totalTokens,
		},
	}
}

// rootScore outranks any computable candidate score.
const rootScore = float64(1 << 62)

// score combines relevance with budget pressure. The global form
// discounts every insertion as the shared budget fills; branch_penalty
// additionally discounts candidates on token-heavy paths.
func score(b Budget, relevance float64, tokenCost, totalTokens, branchTokens int) float64 {
	if tokenCost < 1 {
		tokenCost = 1
	}
	maxTokens := b.MaxTokens
	if maxTokens < 1 {
		maxTokens = 1
	}
	s := relevance / (1 + float64(totalTokens)/float64(maxTokens)) / float64(tokenCost)
	if b.Strategy == StrategyBranchPenalty {
		s /= 1 + float64(branchTokens)/float64(b.BranchBudget)
	}
	return s
}

// connectingEdges keeps only edges whose both endpoints were accepted.
func connectingEdges(edges []Edge, visited map[string]knowledge.Entity) []Edge {
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if _, ok := visited[e.FromID]; !ok {
			continue
		}
		if _, ok := visited[e.ToID]; !ok {
			continue
		}
		out = append(out, e)
	}
	return out
}
