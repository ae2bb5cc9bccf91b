package account

import (
	"go.uber.org/fx"

	accounthttp "github.com/supersunho/senseinfo/internal/domain/account/delivery/http"
	"github.com/supersunho/senseinfo/internal/domain/account/deps"
	"github.com/supersunho/senseinfo/internal/domain/account/repository/postgres"
	"github.com/supersunho/senseinfo/internal/domain/account/usecase/business"
	"github.com/supersunho/senseinfo/internal/infrastructure/http/server"
	"github.com/supersunho/senseinfo/internal/infrastructure/telegram"
)

// Module provides account domain components for fx DI
var Module = fx.Module("account",
	fx.Provide(
		postgres.NewAccountRepository,
		postgres.NewCredentialSource,
		// The auth manager drives the staged login flow against the platform
		func(m *telegram.AuthManager) deps.LoginFlow {
			return m
		},
		business.NewAccountUseCase,
		accounthttp.NewAccountHandler,
		accounthttp.NewRouter,
	),
	fx.Invoke(RegisterRoutes),
)

// RegisterRoutes registers account routes on the server
func RegisterRoutes(server *server.Server, router *accounthttp.Router) {
	router.RegisterRoutes(server.Router)
}
