package kafka

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/supersunho/senseinfo/config"
	"github.com/supersunho/senseinfo/internal/domain"
)

// Module provides the forwarding transport for fx DI
var Module = fx.Module("kafka",
	fx.Provide(NewForwarderFx),
)

// NewForwarderFx selects the forwarding transport from configuration:
// Kafka when brokers are set, the logging stand-in otherwise. The
// transport is flushed and closed on shutdown.
func NewForwarderFx(
	lc fx.Lifecycle,
	kafkaCfg *config.KafkaConfig,
	logger zerolog.Logger,
) (domain.Forwarder, error) {
	var forwarder domain.Forwarder
	if kafkaCfg.Enabled() {
		f, err := NewForwarder(ForwarderConfig{
			Brokers: kafkaCfg.Brokers,
			Topic:   kafkaCfg.Topic,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		forwarder = f
	} else {
		logger.Info().Msg("no kafka brokers configured, forwarding matches to log")
		forwarder = NewLogForwarder(logger)
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return forwarder.Close()
		},
	})

	return forwarder, nil
}
