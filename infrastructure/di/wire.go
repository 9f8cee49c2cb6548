//go:build wireinject
// +build wireinject

// This file is never compiled into the binary (the wireinject build tag
// excludes it); it exists so `go run github.com/google/wire/cmd/wire` has a
// provider graph to regenerate container.go's assembly from — the same
// two-file convention (wireinject input + a hand-built, non-generated
// constructor) the teacher's infrastructure/di package used. No generated
// wire_gen.go is checked in; container.go plays that role by hand and must
// be kept in lockstep with SuperSet below.
package di

import (
	"github.com/google/wire"
)

// SuperSet is the provider set wire would use to regenerate NewContainer.
var SuperSet = wire.NewSet(
	NewLogger,
	NewMetricsRegistry,
	NewSemanticStore,
	NewStructuredStore,
	NewEmbedder,
	NewCurator,
	NewCoactivationMatrix,
	NewConversationBuffer,
	NewEngine,
	NewCoordinator,
	NewReconciler,
	NewService,
	NewMediator,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer would be wire's entry point for code generation.
func InitializeContainer(configPath string) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
