package mediator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// IMediator is the single entry point for every state-changing or
// read-only operation the core exposes, decoupling future callers (a CLI,
// a dashboard, an MCP adapter — all out of scope per spec.md §1) from the
// application layer underneath.
type IMediator interface {
	Send(ctx context.Context, command Command) error
	Query(ctx context.Context, query Query) (interface{}, error)
}

// Mediator implements IMediator with a pre/post behavior pipeline around
// the command and query buses.
type Mediator struct {
	commandBus *CommandBus
	queryBus   *QueryBus
	logger     *zap.Logger
	behaviors  []Behavior
}

func NewMediator(commandBus *CommandBus, queryBus *QueryBus, logger *zap.Logger) *Mediator {
	return &Mediator{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
		behaviors:  []Behavior{},
	}
}

func (m *Mediator) Send(ctx context.Context, command Command) error {
	start := time.Now()

	for _, behavior := range m.behaviors {
		if err := behavior.PreProcess(ctx, command); err != nil {
			m.logger.Error("pre-processing behavior failed",
				zap.String("command", fmt.Sprintf("%T", command)),
				zap.Error(err), zap.Duration("duration", time.Since(start)))
			return err
		}
	}

	err := m.commandBus.Send(ctx, command)

	for _, behavior := range m.behaviors {
		behavior.PostProcess(ctx, command, err)
	}

	if err != nil {
		m.logger.Error("command execution failed",
			zap.String("command", fmt.Sprintf("%T", command)),
			zap.Error(err), zap.Duration("duration", time.Since(start)))
		return err
	}

	m.logger.Debug("command executed successfully",
		zap.String("command", fmt.Sprintf("%T", command)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (m *Mediator) Query(ctx context.Context, query Query) (interface{}, error) {
	start := time.Now()

	for _, behavior := range m.behaviors {
		if err := behavior.PreProcessQuery(ctx, query); err != nil {
			m.logger.Error("query pre-processing behavior failed",
				zap.String("query", fmt.Sprintf("%T", query)),
				zap.Error(err), zap.Duration("duration", time.Since(start)))
			return nil, err
		}
	}

	result, err := m.queryBus.Ask(ctx, query)

	for _, behavior := range m.behaviors {
		behavior.PostProcessQuery(ctx, query, result, err)
	}

	if err != nil {
		m.logger.Error("query execution failed",
			zap.String("query", fmt.Sprintf("%T", query)),
			zap.Error(err), zap.Duration("duration", time.Since(start)))
		return nil, err
	}

	m.logger.Debug("query executed successfully",
		zap.String("query", fmt.Sprintf("%T", query)),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}

// AddBehavior appends a cross-cutting behavior to the pipeline, applied in
// registration order for pre-processing and the same order for post.
func (m *Mediator) AddBehavior(behavior Behavior) {
	m.behaviors = append(m.behaviors, behavior)
	m.logger.Info("added behavior to mediator pipeline", zap.String("behavior", fmt.Sprintf("%T", behavior)))
}

func (m *Mediator) Behaviors() []Behavior {
	return m.behaviors
}
