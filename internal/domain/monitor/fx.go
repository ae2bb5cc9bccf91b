package monitor

import (
	"context"

	"go.uber.org/fx"

	monitorhttp "github.com/supersunho/senseinfo/internal/domain/monitor/delivery/http"
	"github.com/supersunho/senseinfo/internal/domain/monitor/repository/postgres"
	"github.com/supersunho/senseinfo/internal/domain/monitor/usecase/business"
	"github.com/supersunho/senseinfo/internal/infrastructure/http/server"
)

// Module provides monitoring domain components for fx DI
var Module = fx.Module("monitor",
	fx.Provide(
		postgres.NewMonitorRepository,
		business.NewRegistryFx,
		monitorhttp.NewMonitorHandler,
		monitorhttp.NewRouter,
	),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(registerLifecycle),
)

// RegisterRoutes registers monitoring routes on the server
func RegisterRoutes(server *server.Server, router *monitorhttp.Router) {
	router.RegisterRoutes(server.Router)
}

// registerLifecycle stops every processor at shutdown, before the
// connection manager tears the connections down.
func registerLifecycle(lc fx.Lifecycle, registry *business.Registry) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			registry.StopAll(ctx)
			return nil
		},
	})
}
