package deps

import (
	"context"
	"time"

	channelentities "github.com/supersunho/senseinfo/internal/domain/channel/entities"
	keywordentities "github.com/supersunho/senseinfo/internal/domain/keyword/entities"
	messageentities "github.com/supersunho/senseinfo/internal/domain/message/entities"
)

// MonitorRepository is the persistence surface of the message processor.
// PersistMatch commits the captured message together with the owning
// channel's counters and the account's daily counter in one transaction;
// a failure rolls the whole write back.
type MonitorRepository interface {
	// ListMonitoredChannels returns the account's channels that are both
	// active and flagged for monitoring.
	ListMonitoredChannels(ctx context.Context, accountID uint) ([]channelentities.MonitoredChannel, error)

	// ListActiveKeywords returns the channel's active rules ordered by
	// creation time.
	ListActiveKeywords(ctx context.Context, channelID uint) ([]keywordentities.KeywordRule, error)

	// PersistMatch stores one matched message and bumps the channel and
	// account counters atomically.
	PersistMatch(ctx context.Context, msg *messageentities.StoredMessage, accountID uint) error

	// MarkForwarded records a successful hand-off to the forwarding
	// transport. Best effort: the stored message stays valid without it.
	MarkForwarded(ctx context.Context, messageID uint, destination string, at time.Time) error
}
