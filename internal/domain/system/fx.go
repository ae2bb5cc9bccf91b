package system

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/supersunho/senseinfo/internal/domain"
	accountdeps "github.com/supersunho/senseinfo/internal/domain/account/deps"
	"github.com/supersunho/senseinfo/internal/domain/monitor/usecase/business"
	systemhttp "github.com/supersunho/senseinfo/internal/domain/system/delivery/http"
	"github.com/supersunho/senseinfo/internal/infrastructure/http/server"
	"github.com/supersunho/senseinfo/internal/infrastructure/telegram"
)

// Module provides the service status surface for fx DI
var Module = fx.Module("system",
	fx.Provide(
		NewSystemHandlerFx,
		systemhttp.NewRouter,
	),
	fx.Invoke(RegisterRoutes),
)

// NewSystemHandlerFx assembles the system handler from the running
// infrastructure
func NewSystemHandlerFx(
	db *gorm.DB,
	accounts accountdeps.AccountRepository,
	manager *telegram.Manager,
	registry *business.Registry,
	forwarder domain.Forwarder,
	logger zerolog.Logger,
) *systemhttp.SystemHandler {
	return systemhttp.NewSystemHandler(db, accounts, manager, registry, forwarder, logger)
}

// RegisterRoutes registers system routes on the server
func RegisterRoutes(server *server.Server, router *systemhttp.Router) {
	router.RegisterRoutes(server.Router)
}
