package keyword

import (
	"go.uber.org/fx"

	keywordhttp "github.com/supersunho/senseinfo/internal/domain/keyword/delivery/http"
	"github.com/supersunho/senseinfo/internal/domain/keyword/repository/postgres"
	"github.com/supersunho/senseinfo/internal/domain/keyword/usecase/business"
	"github.com/supersunho/senseinfo/internal/infrastructure/http/server"
)

// Module provides keyword domain components for fx DI
var Module = fx.Module("keyword",
	fx.Provide(
		postgres.NewKeywordRepository,
		postgres.NewChannelGuard,
		business.NewKeywordUseCase,
		keywordhttp.NewKeywordHandler,
		keywordhttp.NewRouter,
	),
	fx.Invoke(RegisterRoutes),
)

// RegisterRoutes registers keyword routes on the server
func RegisterRoutes(server *server.Server, router *keywordhttp.Router) {
	router.RegisterRoutes(server.Router)
}
