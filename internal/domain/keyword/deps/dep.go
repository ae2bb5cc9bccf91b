package deps

import (
	"context"

	"github.com/supersunho/senseinfo/internal/domain/keyword/entities"
)

// KeywordRepository defines interface for keyword rule storage
type KeywordRepository interface {
	Create(ctx context.Context, rule *entities.KeywordRule) error
	GetByID(ctx context.Context, id uint) (*entities.KeywordRule, error)
	ListByChannel(ctx context.Context, channelID uint) ([]entities.KeywordRule, error)
	CountActiveByChannel(ctx context.Context, channelID uint) (int64, error)
	ExistsActive(ctx context.Context, channelID uint, word string, isInclusion bool) (bool, error)
	SetActive(ctx context.Context, id uint, active bool) error
}

// ChannelGuard verifies a channel exists before rules are attached to
// it. The keyword use case never reads channel rows directly.
type ChannelGuard interface {
	ChannelExists(ctx context.Context, channelID uint) (bool, error)
}
