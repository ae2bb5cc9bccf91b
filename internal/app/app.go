package app

import (
	"go.uber.org/fx"

	"github.com/supersunho/senseinfo/config"
	"github.com/supersunho/senseinfo/internal/domain/account"
	"github.com/supersunho/senseinfo/internal/domain/channel"
	"github.com/supersunho/senseinfo/internal/domain/keyword"
	"github.com/supersunho/senseinfo/internal/domain/message"
	"github.com/supersunho/senseinfo/internal/domain/monitor"
	"github.com/supersunho/senseinfo/internal/domain/system"
	"github.com/supersunho/senseinfo/internal/infrastructure/database"
	"github.com/supersunho/senseinfo/internal/infrastructure/http"
	"github.com/supersunho/senseinfo/internal/infrastructure/kafka"
	"github.com/supersunho/senseinfo/internal/infrastructure/logger"
	"github.com/supersunho/senseinfo/internal/infrastructure/metrics"
	"github.com/supersunho/senseinfo/internal/infrastructure/proxy"
	"github.com/supersunho/senseinfo/internal/infrastructure/ratelimit"
	"github.com/supersunho/senseinfo/internal/infrastructure/telegram"
)

// CreateApp assembles the full application graph
func CreateApp() fx.Option {
	return fx.Options(
		config.Module,
		logger.Module,
		metrics.Module,
		database.Module,
		proxy.Module,
		ratelimit.Module,
		telegram.Module,
		kafka.Module,
		http.Module,

		account.Module,
		channel.Module,
		keyword.Module,
		message.Module,
		monitor.Module,
		system.Module,
	)
}
