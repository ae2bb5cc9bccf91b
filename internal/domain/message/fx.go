package message

import (
	"go.uber.org/fx"

	messagehttp "github.com/supersunho/senseinfo/internal/domain/message/delivery/http"
	"github.com/supersunho/senseinfo/internal/domain/message/repository/postgres"
	"github.com/supersunho/senseinfo/internal/domain/message/usecase/business"
	"github.com/supersunho/senseinfo/internal/infrastructure/http/server"
)

// Module provides message domain components for fx DI
var Module = fx.Module("message",
	fx.Provide(
		postgres.NewMessageRepository,
		business.NewMessageUseCase,
		messagehttp.NewMessageHandler,
		messagehttp.NewRouter,
	),
	fx.Invoke(RegisterRoutes),
)

// RegisterRoutes registers message routes on the server
func RegisterRoutes(server *server.Server, router *messagehttp.Router) {
	router.RegisterRoutes(server.Router)
}
