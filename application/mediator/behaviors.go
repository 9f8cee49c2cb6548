package mediator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/elefante-ai/elefante/infrastructure/observability"
)

// Behavior is a cross-cutting pipeline stage applied to every command and
// query the mediator dispatches.
type Behavior interface {
	PreProcess(ctx context.Context, command Command) error
	PostProcess(ctx context.Context, command Command, err error)
	PreProcessQuery(ctx context.Context, query Query) error
	PostProcessQuery(ctx context.Context, query Query, result interface{}, err error)
}

// LoggingBehavior logs every command and query at entry/exit.
type LoggingBehavior struct {
	logger *zap.Logger
}

func NewLoggingBehavior(logger *zap.Logger) *LoggingBehavior {
	return &LoggingBehavior{logger: logger}
}

func (b *LoggingBehavior) PreProcess(_ context.Context, command Command) error {
	b.logger.Debug("executing command", zap.String("type", fmt.Sprintf("%T", command)))
	return nil
}

func (b *LoggingBehavior) PostProcess(_ context.Context, command Command, err error) {
	if err != nil {
		b.logger.Error("command failed", zap.String("type", fmt.Sprintf("%T", command)), zap.Error(err))
		return
	}
	b.logger.Debug("command succeeded", zap.String("type", fmt.Sprintf("%T", command)))
}

func (b *LoggingBehavior) PreProcessQuery(_ context.Context, query Query) error {
	b.logger.Debug("executing query", zap.String("type", fmt.Sprintf("%T", query)))
	return nil
}

func (b *LoggingBehavior) PostProcessQuery(_ context.Context, query Query, _ interface{}, err error) {
	if err != nil {
		b.logger.Error("query failed", zap.String("type", fmt.Sprintf("%T", query)), zap.Error(err))
		return
	}
	b.logger.Debug("query succeeded", zap.String("type", fmt.Sprintf("%T", query)))
}

// ValidationBehavior runs Command/Query.Validate() before dispatch —
// spec.md §7's Validation error kind aborts the operation with no state
// changed, which this behavior enforces by running before the handler.
type ValidationBehavior struct {
	logger *zap.Logger
}

func NewValidationBehavior(logger *zap.Logger) *ValidationBehavior {
	return &ValidationBehavior{logger: logger}
}

func (b *ValidationBehavior) PreProcess(_ context.Context, command Command) error {
	if err := command.Validate(); err != nil {
		b.logger.Warn("command validation failed", zap.String("type", fmt.Sprintf("%T", command)), zap.Error(err))
		return fmt.Errorf("command validation failed: %w", err)
	}
	return nil
}

func (b *ValidationBehavior) PostProcess(context.Context, Command, error) {}

func (b *ValidationBehavior) PreProcessQuery(_ context.Context, query Query) error {
	if err := query.Validate(); err != nil {
		b.logger.Warn("query validation failed", zap.String("type", fmt.Sprintf("%T", query)), zap.Error(err))
		return fmt.Errorf("query validation failed: %w", err)
	}
	return nil
}

func (b *ValidationBehavior) PostProcessQuery(context.Context, Query, interface{}, error) {}

// MetricsBehavior records Prometheus timings for every command and query.
type MetricsBehavior struct {
	metrics *observability.Metrics
	mu      startTimes
}

type startTimes struct {
	m map[interface{}]time.Time
}

func NewMetricsBehavior(metrics *observability.Metrics) *MetricsBehavior {
	return &MetricsBehavior{metrics: metrics, mu: startTimes{m: make(map[interface{}]time.Time)}}
}

func (b *MetricsBehavior) PreProcess(_ context.Context, command Command) error {
	b.mu.m[command] = time.Now()
	return nil
}

func (b *MetricsBehavior) PostProcess(ctx context.Context, command Command, err error) {
	start, ok := b.mu.m[command]
	if !ok {
		return
	}
	delete(b.mu.m, command)
	if b.metrics != nil {
		b.metrics.RecordCommandExecution(ctx, fmt.Sprintf("%T", command), time.Since(start), err)
	}
}

func (b *MetricsBehavior) PreProcessQuery(_ context.Context, query Query) error {
	b.mu.m[query] = time.Now()
	return nil
}

func (b *MetricsBehavior) PostProcessQuery(ctx context.Context, query Query, _ interface{}, err error) {
	start, ok := b.mu.m[query]
	if !ok {
		return
	}
	delete(b.mu.m, query)
	if b.metrics == nil {
		return
	}
	b.metrics.RecordLatency(ctx, fmt.Sprintf("query.%T", query), time.Since(start))
	if err != nil {
		b.metrics.RecordError(ctx, "query_error", fmt.Sprintf("%T", query))
	}
}

// PerformanceBehavior warns when a command or query exceeds its threshold,
// mirroring the teacher's slow-command/slow-query detection.
type PerformanceBehavior struct {
	logger           *zap.Logger
	commandThreshold time.Duration
	queryThreshold   time.Duration
	start            map[interface{}]time.Time
}

func NewPerformanceBehavior(logger *zap.Logger, commandThreshold, queryThreshold time.Duration) *PerformanceBehavior {
	return &PerformanceBehavior{
		logger:           logger,
		commandThreshold: commandThreshold,
		queryThreshold:   queryThreshold,
		start:            make(map[interface{}]time.Time),
	}
}

func (b *PerformanceBehavior) PreProcess(_ context.Context, command Command) error {
	b.start[command] = time.Now()
	return nil
}

func (b *PerformanceBehavior) PostProcess(_ context.Context, command Command, _ error) {
	start, ok := b.start[command]
	if !ok {
		return
	}
	delete(b.start, command)
	if d := time.Since(start); d > b.commandThreshold {
		b.logger.Warn("slow command detected",
			zap.String("type", fmt.Sprintf("%T", command)),
			zap.Duration("duration", d), zap.Duration("threshold", b.commandThreshold))
	}
}

func (b *PerformanceBehavior) PreProcessQuery(_ context.Context, query Query) error {
	b.start[query] = time.Now()
	return nil
}

func (b *PerformanceBehavior) PostProcessQuery(_ context.Context, query Query, _ interface{}, _ error) {
	start, ok := b.start[query]
	if !ok {
		return
	}
	delete(b.start, query)
	if d := time.Since(start); d > b.queryThreshold {
		b.logger.Warn("slow query detected",
			zap.String("type", fmt.Sprintf("%T", query)),
			zap.Duration("duration", d), zap.Duration("threshold", b.queryThreshold))
	}
}
