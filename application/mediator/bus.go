// Package mediator provides the single entry point spec.md §6.1's public
// API surface is dispatched through: add_memory, search, constellation,
// get_stats, create_entity, create_relationship, query_graph,
// health_report, proactive_surfaces. It generalizes the teacher's CQRS
// mediator (command bus + query bus + behavior pipeline) over these
// operations instead of node/graph commands. The `backend/application/
// commands/bus` and `backend/application/queries/bus` packages the teacher
// imports do not exist anywhere in the retrieved tree, so Command/Query and
// their buses are defined locally here rather than copied.
package mediator

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Command represents a state-changing request (add_memory, create_entity, …).
// Following CQRS, commands act — they never return query-shaped data.
type Command interface {
	Validate() error
}

// Query represents a read-only request (search, get_stats, health_report, …).
type Query interface {
	Validate() error
}

// CommandHandler executes exactly one concrete Command type.
type CommandHandler interface {
	Handle(ctx context.Context, command Command) error
}

// QueryHandler executes exactly one concrete Query type and returns a result.
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// CommandBus routes a Command to its registered handler by concrete type.
type CommandBus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type]CommandHandler
}

func NewCommandBus() *CommandBus {
	return &CommandBus{handlers: make(map[reflect.Type]CommandHandler)}
}

// Register associates a handler with every Command of the given type.
func (b *CommandBus) Register(command Command, handler CommandHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[reflect.TypeOf(command)] = handler
}

func (b *CommandBus) Send(ctx context.Context, command Command) error {
	b.mu.RLock()
	handler, ok := b.handlers[reflect.TypeOf(command)]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no handler registered for command %T", command)
	}
	return handler.Handle(ctx, command)
}

// QueryBus routes a Query to its registered handler by concrete type.
type QueryBus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type]QueryHandler
}

func NewQueryBus() *QueryBus {
	return &QueryBus{handlers: make(map[reflect.Type]QueryHandler)}
}

func (b *QueryBus) Register(query Query, handler QueryHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[reflect.TypeOf(query)] = handler
}

func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	b.mu.RLock()
	handler, ok := b.handlers[reflect.TypeOf(query)]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no handler registered for query %T", query)
	}
	return handler.Handle(ctx, query)
}
