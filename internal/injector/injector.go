//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/l1jgo/ecsengine/internal/config"
	"github.com/l1jgo/ecsengine/internal/core/ecs"
)

func InitializeInstance(cfg *config.Config, log *zap.Logger, idx Index, input ecs.InputSource, builtins Builtins) (*Instance, func(), error) {
	wire.Build(
		ProvideWorldOptions,
		ProvideWorld,
		ProvideManifest,
		ProvideEngine,
		ProvideRunner,
		NewInstance,
	)
	return nil, nil, nil
}
