package channel

import (
	"go.uber.org/fx"

	channelhttp "github.com/supersunho/senseinfo/internal/domain/channel/delivery/http"
	"github.com/supersunho/senseinfo/internal/domain/channel/repository/postgres"
	"github.com/supersunho/senseinfo/internal/domain/channel/usecase/business"
	"github.com/supersunho/senseinfo/internal/infrastructure/http/server"
)

// Module provides channel domain components for fx DI
var Module = fx.Module("channel",
	fx.Provide(
		postgres.NewChannelRepository,
		business.NewChannelUseCase,
		channelhttp.NewChannelHandler,
		channelhttp.NewRouter,
	),
	fx.Invoke(RegisterRoutes),
)

// RegisterRoutes registers channel routes on the server
func RegisterRoutes(server *server.Server, router *channelhttp.Router) {
	router.RegisterRoutes(server.Router)
}
