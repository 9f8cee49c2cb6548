package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/elefante-ai/elefante/application/mediator"
	"github.com/elefante-ai/elefante/application/reconciler"
	"github.com/elefante-ai/elefante/application/retrieval"
	"github.com/elefante-ai/elefante/application/writecoordinator"
	"github.com/elefante-ai/elefante/domain/graph"
	"github.com/elefante-ai/elefante/domain/memory"
	elefanteerr "github.com/elefante-ai/elefante/internal/errors"
	"github.com/elefante-ai/elefante/infrastructure/observability"
)

func entityTypeOf(s string) graph.EntityType { return graph.EntityType(s) }

func relationTypeOf(s string) graph.RelationType {
	if s == "" {
		return graph.RelationRelatesTo
	}
	return graph.RelationType(s)
}

func entityIDOf(s string) (memory.EntityID, error) {
	return memory.NewEntityIDFromString(s)
}

// This file dispatches spec.md §6.1's operation table through
// application/mediator's command/query bus instead of calling Service
// methods directly, so the behavior pipeline (validation, logging,
// metrics, slow-operation warnings) wraps every public operation the way
// it wrapped the teacher's node/edge commands. Service itself still owns
// every algorithm; these types are thin adapters that carry a request in
// and, for commands, a result back out by reference — the mediator's
// CommandHandler contract returns only an error.

// AddMemoryCommand is spec.md §6.1's add_memory, dispatched as a command.
type AddMemoryCommand struct {
	Request writecoordinator.AddMemoryRequest
	Result  writecoordinator.AddMemoryResult
}

func (c *AddMemoryCommand) Validate() error {
	if c.Request.Content == "" {
		return elefanteerr.NewValidation("content must not be empty")
	}
	return nil
}

type addMemoryHandler struct{ svc *Service }

func (h *addMemoryHandler) Handle(ctx context.Context, command mediator.Command) error {
	cmd, ok := command.(*AddMemoryCommand)
	if !ok {
		return fmt.Errorf("add_memory handler received %T", command)
	}
	result, err := h.svc.AddMemory(ctx, cmd.Request)
	if err != nil {
		return err
	}
	cmd.Result = result
	return nil
}

// CreateEntityCommand is spec.md §6.1's create_entity.
type CreateEntityCommand struct {
	Name       string
	Type       string
	Properties map[string]string
	Result     string // entity id
}

func (c *CreateEntityCommand) Validate() error {
	if c.Name == "" {
		return elefanteerr.NewValidation("entity name must not be empty")
	}
	return nil
}

type createEntityHandler struct{ svc *Service }

func (h *createEntityHandler) Handle(ctx context.Context, command mediator.Command) error {
	cmd, ok := command.(*CreateEntityCommand)
	if !ok {
		return fmt.Errorf("create_entity handler received %T", command)
	}
	id, err := h.svc.CreateEntity(ctx, cmd.Name, entityTypeOf(cmd.Type), cmd.Properties)
	if err != nil {
		return err
	}
	cmd.Result = id.String()
	return nil
}

// CreateRelationshipCommand is spec.md §6.1's create_relationship.
type CreateRelationshipCommand struct {
	FromID   string
	ToID     string
	Type     string
	Strength float64
	Result   string // relationship id
}

func (c *CreateRelationshipCommand) Validate() error {
	if c.FromID == "" || c.ToID == "" {
		return elefanteerr.NewValidation("from_id and to_id must not be empty")
	}
	return nil
}

type createRelationshipHandler struct{ svc *Service }

func (h *createRelationshipHandler) Handle(ctx context.Context, command mediator.Command) error {
	cmd, ok := command.(*CreateRelationshipCommand)
	if !ok {
		return fmt.Errorf("create_relationship handler received %T", command)
	}
	fromID, err := entityIDOf(cmd.FromID)
	if err != nil {
		return err
	}
	toID, err := entityIDOf(cmd.ToID)
	if err != nil {
		return err
	}
	id, err := h.svc.CreateRelationship(ctx, fromID, toID, relationTypeOf(cmd.Type), cmd.Strength)
	if err != nil {
		return err
	}
	cmd.Result = id.String()
	return nil
}

// ReconcileCommand is spec.md §9's reconciliation sweep.
type ReconcileCommand struct {
	Result reconciler.Report
}

func (c *ReconcileCommand) Validate() error { return nil }

type reconcileHandler struct{ svc *Service }

func (h *reconcileHandler) Handle(ctx context.Context, command mediator.Command) error {
	cmd, ok := command.(*ReconcileCommand)
	if !ok {
		return fmt.Errorf("reconcile handler received %T", command)
	}
	report, err := h.svc.Reconcile(ctx)
	if err != nil {
		return err
	}
	cmd.Result = report
	return nil
}

// SearchQuery is spec.md §6.1's search.
type SearchQuery struct {
	Query string
	Mode  retrieval.Mode
	Opts  retrieval.Options
}

func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return elefanteerr.NewValidation("query must not be empty")
	}
	return nil
}

type searchHandler struct{ svc *Service }

func (h *searchHandler) Handle(ctx context.Context, query mediator.Query) (interface{}, error) {
	q, ok := query.(*SearchQuery)
	if !ok {
		return nil, fmt.Errorf("search handler received %T", query)
	}
	return h.svc.Search(ctx, q.Query, q.Mode, q.Opts)
}

// ConstellationQuery is spec.md §6.1's constellation.
type ConstellationQuery struct {
	Query string
	Mode  retrieval.Mode
	Opts  retrieval.Options
}

func (q *ConstellationQuery) Validate() error {
	if q.Query == "" {
		return elefanteerr.NewValidation("query must not be empty")
	}
	return nil
}

type constellationHandler struct{ svc *Service }

func (h *constellationHandler) Handle(ctx context.Context, query mediator.Query) (interface{}, error) {
	q, ok := query.(*ConstellationQuery)
	if !ok {
		return nil, fmt.Errorf("constellation handler received %T", query)
	}
	return h.svc.Constellation(ctx, q.Query, q.Mode, q.Opts)
}

// StatsQuery is spec.md §6.1's get_stats.
type StatsQuery struct{}

func (q *StatsQuery) Validate() error { return nil }

type statsHandler struct{ svc *Service }

func (h *statsHandler) Handle(ctx context.Context, _ mediator.Query) (interface{}, error) {
	return h.svc.GetStats(ctx)
}

// HealthQuery is spec.md §6.1's health_report.
type HealthQuery struct{}

func (q *HealthQuery) Validate() error { return nil }

type healthHandler struct{ svc *Service }

func (h *healthHandler) Handle(ctx context.Context, _ mediator.Query) (interface{}, error) {
	return h.svc.HealthReport(ctx)
}

// ProactiveQuery is spec.md §6.1's proactive_surfaces.
type ProactiveQuery struct {
	CurrentContext     string
	ConversationDomain string
	RecentConcepts     []string
}

func (q *ProactiveQuery) Validate() error { return nil }

type proactiveHandler struct{ svc *Service }

func (h *proactiveHandler) Handle(ctx context.Context, query mediator.Query) (interface{}, error) {
	q, ok := query.(*ProactiveQuery)
	if !ok {
		return nil, fmt.Errorf("proactive handler received %T", query)
	}
	return h.svc.ProactiveSurfaces(ctx, q.CurrentContext, q.ConversationDomain, q.RecentConcepts)
}

// GraphQuery is spec.md §6.1's query_graph.
type GraphQuery struct {
	Pattern string
	Params  []interface{}
}

func (q *GraphQuery) Validate() error {
	if q.Pattern == "" {
		return elefanteerr.NewValidation("pattern must not be empty")
	}
	return nil
}

type graphQueryHandler struct{ svc *Service }

func (h *graphQueryHandler) Handle(ctx context.Context, query mediator.Query) (interface{}, error) {
	q, ok := query.(*GraphQuery)
	if !ok {
		return nil, fmt.Errorf("query_graph handler received %T", query)
	}
	return h.svc.QueryGraph(ctx, q.Pattern, q.Params...)
}

// NewMediator builds the full command/query bus over svc, with the
// teacher's four-stage behavior pipeline (Validation, Logging, Metrics,
// Performance) applied in that order — spec.md §6.1's whole operation
// table dispatches through the returned Mediator.
func NewMediator(svc *Service, logger *zap.Logger, metrics *observability.Metrics) *mediator.Mediator {
	commandBus := mediator.NewCommandBus()
	commandBus.Register(&AddMemoryCommand{}, &addMemoryHandler{svc: svc})
	commandBus.Register(&CreateEntityCommand{}, &createEntityHandler{svc: svc})
	commandBus.Register(&CreateRelationshipCommand{}, &createRelationshipHandler{svc: svc})
	commandBus.Register(&ReconcileCommand{}, &reconcileHandler{svc: svc})

	queryBus := mediator.NewQueryBus()
	queryBus.Register(&SearchQuery{}, &searchHandler{svc: svc})
	queryBus.Register(&ConstellationQuery{}, &constellationHandler{svc: svc})
	queryBus.Register(&StatsQuery{}, &statsHandler{svc: svc})
	queryBus.Register(&HealthQuery{}, &healthHandler{svc: svc})
	queryBus.Register(&ProactiveQuery{}, &proactiveHandler{svc: svc})
	queryBus.Register(&GraphQuery{}, &graphQueryHandler{svc: svc})

	m := mediator.NewMediator(commandBus, queryBus, logger)
	m.AddBehavior(mediator.NewValidationBehavior(logger))
	m.AddBehavior(mediator.NewLoggingBehavior(logger))
	m.AddBehavior(mediator.NewMetricsBehavior(metrics))
	m.AddBehavior(mediator.NewPerformanceBehavior(logger, 2*time.Second, 500*time.Millisecond))
	return m
}
