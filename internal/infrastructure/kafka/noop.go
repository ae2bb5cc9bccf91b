package kafka

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/supersunho/senseinfo/internal/domain"
)

// LogForwarder is the stand-in used when no Kafka brokers are
// configured. Matches are logged and the stored row still gets a
// forward destination, so the capture pipeline behaves identically
// with and without the transport.
type LogForwarder struct {
	logger zerolog.Logger
}

// NewLogForwarder creates a logging forwarder
func NewLogForwarder(logger zerolog.Logger) *LogForwarder {
	return &LogForwarder{
		logger: logger.With().Str("component", "log_forwarder").Logger(),
	}
}

// Forward logs the matched message
func (f *LogForwarder) Forward(ctx context.Context, event domain.ForwardEvent) error {
	f.logger.Info().
		Uint("account_id", event.AccountID).
		Str("channel", event.ChannelUsername).
		Int64("message_id", event.TelegramMessageID).
		Strs("keywords", event.MatchedKeywords).
		Msg("match forwarded to log")
	return nil
}

// Destination returns the log sink name
func (f *LogForwarder) Destination() string {
	return "log"
}

// Healthy always reports true
func (f *LogForwarder) Healthy() bool {
	return true
}

// Close is a no-op
func (f *LogForwarder) Close() error {
	return nil
}
