// Package service assembles the configured graph backend, embedder,
// knowledge store and subgraph extractor into one ready-to-use unit.
package service

import (
	"context"
	"log/slog"

	"github.com/e7nd7r/gnapsis/internal/config"
	"github.com/e7nd7r/gnapsis/internal/embedder"
	"github.com/e7nd7r/gnapsis/internal/graph"
	"github.com/e7nd7r/gnapsis/internal/graph/age"
	"github.com/e7nd7r/gnapsis/internal/graph/neo4j"
	"github.com/e7nd7r/gnapsis/internal/knowledge"
	"github.com/e7nd7r/gnapsis/internal/subgraph"
	"github.com/e7nd7r/gnapsis/internal/types"
)

// Service owns the graph client and the layers built on it.
type Service struct {
	cfg       *config.Config
	logger    *slog.Logger
	client    graph.Client
	embedder  embedder.Embedder
	store     *knowledge.Store
	extractor *subgraph.Extractor
}

// connector is the backend-specific dial step shared by both adapters.
type connector interface {
	graph.Client
	Connect(ctx context.Context) error
}

// New builds and connects a service from configuration. The AGE backend
// additionally gets its graph bootstrapped through the native statement
// capability; backends without that capability skip bootstrap.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := newBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	if _, ok := graph.AsStatementExecutor(client); ok {
		if ageClient, isAGE := client.(*age.Client); isAGE {
			if err := ageClient.EnsureGraph(ctx); err != nil {
				_ = client.Close(ctx)
				return nil, err
			}
		}
	} else {
		logger.Debug("backend has no native statement support, skipping bootstrap",
			"backend", cfg.Graph.Backend)
	}

	embed, err := embedder.New(cfg.Embedder)
	if err != nil {
		_ = client.Close(ctx)
		return nil, err
	}

	store := knowledge.NewStore(client, logger)
	return &Service{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		embedder:  embed,
		store:     store,
		extractor: subgraph.NewExtractor(store, embed, logger),
	}, nil
}

func newBackend(cfg *config.Config, logger *slog.Logger) (connector, error) {
	switch cfg.Graph.Backend {
	case "age":
		return age.NewClient(cfg.Graph.AGE, logger)
	case "neo4j":
		return neo4j.NewClient(cfg.Graph.Neo4j, logger)
	default:
		return nil, types.NewError(types.CONFIG_VALIDATION_FAILED,
			"unknown graph backend: "+cfg.Graph.Backend)
	}
}

// Store exposes the entity store.
func (s *Service) Store() *knowledge.Store { return s.store }

// Client exposes the underlying graph client.
func (s *Service) Client() graph.Client { return s.client }

// Embedder exposes the text embedder.
func (s *Service) Embedder() embedder.Embedder { return s.embedder }

// Extract runs a subgraph extraction, filling unset budget fields from
// the configured defaults.
func (s *Service) Extract(ctx context.Context, req subgraph.Request) (subgraph.Result, error) {
	if req.Budget == (subgraph.Budget{}) {
		req.Budget = s.cfg.Extraction.Budget()
	}
	return s.extractor.Extract(ctx, req)
}

// Health aggregates backend and embedder health; the worse state wins.
func (s *Service) Health(ctx context.Context) types.HealthStatus {
	backend := s.client.Health(ctx)
	embed := s.embedder.Health(ctx)
	if backend.State == types.HealthStateUnhealthy {
		return backend
	}
	if embed.State == types.HealthStateUnhealthy {
		return embed
	}
	if backend.State == types.HealthStateDegraded {
		return backend
	}
	if embed.State == types.HealthStateDegraded {
		return embed
	}
	return types.Healthy("all dependencies healthy")
}

// Close releases the graph client.
func (s *Service) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}
