// Package di hand-assembles the process-wide singletons spec.md §5 names:
// the semantic store client, the structured store client, the embedding
// provider, the co-activation matrix, and the write coordinator are all
// built eagerly, once, by NewContainer and reused for the process lifetime;
// none is deferred until first use. This file
// is the non-generated counterpart to wire.go's wireinject provider graph
// (the teacher ships the same two-file, no-codegen convention).
package di

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/elefante-ai/elefante/application/app"
	"github.com/elefante-ai/elefante/application/curator"
	"github.com/elefante-ai/elefante/application/mediator"
	"github.com/elefante-ai/elefante/application/reconciler"
	"github.com/elefante-ai/elefante/application/retrieval"
	"github.com/elefante-ai/elefante/application/writecoordinator"
	"github.com/elefante-ai/elefante/infrastructure/config"
	"github.com/elefante-ai/elefante/infrastructure/embedding"
	"github.com/elefante-ai/elefante/infrastructure/observability"
	"github.com/elefante-ai/elefante/infrastructure/persistence/sqlite"
)

// Container holds every process-wide singleton the core needs, assembled
// once at start-up and passed by reference from then on (spec.md §5: "model
// each store, the embedding provider, the co-activation matrix, and the
// retrieval engine as services constructed at start-up... avoid
// module-level mutable state").
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Semantic   *sqlite.SemanticStore
	Structured *sqlite.StructuredStore
	Embedder   *embedding.HashEmbedder
	Curator    *curator.Curator
	Coact      *retrieval.CoactivationMatrix
	Conv       *retrieval.ConversationBuffer
	Engine     *retrieval.Engine
	Coordinator *writecoordinator.Coordinator
	Reconciler *reconciler.Reconciler
	Service    *app.Service
	Mediator   *mediator.Mediator
}

func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg != nil && cfg.LogLevel == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func NewMetricsRegistry(cfg *config.Config) *observability.Metrics {
	_ = cfg
	return observability.NewMetrics("elefante", prometheus.NewRegistry())
}

func NewSemanticStore(cfg *config.Config) (*sqlite.SemanticStore, error) {
	path := cfg.VectorStore.PersistDirectory + "/semantic.db"
	store, err := sqlite.OpenSemanticStore(path)
	if err != nil {
		return nil, fmt.Errorf("open semantic store: %w", err)
	}
	return store, nil
}

func NewStructuredStore(cfg *config.Config) (*sqlite.StructuredStore, error) {
	store, err := sqlite.OpenStructuredStore(cfg.GraphStore.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open structured store: %w", err)
	}
	return store, nil
}

func NewEmbedder(cfg *config.Config) *embedding.HashEmbedder {
	return embedding.NewHashEmbedder(cfg.VectorStore.EmbeddingDim)
}

func NewCurator() *curator.Curator {
	return curator.NewCurator()
}

func NewCoactivationMatrix() *retrieval.CoactivationMatrix {
	return retrieval.NewCoactivationMatrix()
}

func NewConversationBuffer() *retrieval.ConversationBuffer {
	return retrieval.NewConversationBuffer()
}

func NewEngine(
	semantic *sqlite.SemanticStore,
	structured *sqlite.StructuredStore,
	embedder *embedding.HashEmbedder,
	coact *retrieval.CoactivationMatrix,
	conv *retrieval.ConversationBuffer,
	cfg *config.Config,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *retrieval.Engine {
	weights := retrieval.Weights{
		Vector:       cfg.Retrieval.Weights.Vector,
		Concept:      cfg.Retrieval.Weights.Concept,
		Domain:       cfg.Retrieval.Weights.Domain,
		Coactivation: cfg.Retrieval.Weights.Coactivation,
		Authority:    cfg.Retrieval.Weights.Authority,
		Temporal:     cfg.Retrieval.Weights.Temporal,
	}
	return retrieval.NewEngine(semantic, structured, embedder, coact, conv, weights, logger, metrics)
}

func NewCoordinator(
	semantic *sqlite.SemanticStore,
	structured *sqlite.StructuredStore,
	embedder *embedding.HashEmbedder,
	c *curator.Curator,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *writecoordinator.Coordinator {
	return writecoordinator.NewCoordinator(semantic, structured, embedder, c, logger, metrics)
}

func NewReconciler(semantic *sqlite.SemanticStore, structured *sqlite.StructuredStore, logger *zap.Logger) *reconciler.Reconciler {
	return reconciler.NewReconciler(semantic, structured, logger)
}

func NewService(
	semantic *sqlite.SemanticStore,
	structured *sqlite.StructuredStore,
	coordinator *writecoordinator.Coordinator,
	engine *retrieval.Engine,
	rec *reconciler.Reconciler,
	cfg *config.Config,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *app.Service {
	return app.New(semantic, structured, coordinator, engine, rec, cfg, logger, metrics)
}

func NewMediator(svc *app.Service, logger *zap.Logger, metrics *observability.Metrics) *mediator.Mediator {
	return app.NewMediator(svc, logger, metrics)
}

// NewContainer is the hand-built equivalent of wire.Build(SuperSet):
// resolve config, then build every singleton in dependency order.
func NewContainer(configPath string) (*Container, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	metrics := NewMetricsRegistry(cfg)

	semantic, err := NewSemanticStore(cfg)
	if err != nil {
		return nil, err
	}
	structured, err := NewStructuredStore(cfg)
	if err != nil {
		semantic.Close()
		return nil, err
	}

	embedder := NewEmbedder(cfg)
	c := NewCurator()
	coact := NewCoactivationMatrix()
	conv := NewConversationBuffer()
	engine := NewEngine(semantic, structured, embedder, coact, conv, cfg, logger, metrics)
	coordinator := NewCoordinator(semantic, structured, embedder, c, logger, metrics)
	rec := NewReconciler(semantic, structured, logger)
	service := NewService(semantic, structured, coordinator, engine, rec, cfg, logger, metrics)
	med := NewMediator(service, logger, metrics)

	return &Container{
		Config: cfg, Logger: logger, Metrics: metrics,
		Semantic: semantic, Structured: structured,
		Embedder: embedder, Curator: c,
		Coact: coact, Conv: conv, Engine: engine,
		Coordinator: coordinator, Reconciler: rec, Service: service,
		Mediator: med,
	}, nil
}

// Close tears down both store clients explicitly (spec.md §5: "Teardown
// closes both store clients explicitly").
func (c *Container) Close() error {
	var firstErr error
	if err := c.Structured.Close(); err != nil {
		firstErr = err
	}
	if err := c.Semantic.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	_ = c.Logger.Sync()
	return firstErr
}
