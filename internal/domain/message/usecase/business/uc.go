package business

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/supersunho/senseinfo/internal/domain/message/deps"
	"github.com/supersunho/senseinfo/internal/domain/message/entities"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	defaultStatsDays = 7
	maxStatsDays     = 365
)

// MessageUseCase implements captured message business logic
type MessageUseCase struct {
	repo   deps.MessageRepository
	logger zerolog.Logger
}

// NewMessageUseCase creates a new message use case
func NewMessageUseCase(repo deps.MessageRepository, log zerolog.Logger) *MessageUseCase {
	return &MessageUseCase{
		repo:   repo,
		logger: log.With().Str("usecase", "message").Logger(),
	}
}

// List retrieves captured messages matching the filter
func (uc *MessageUseCase) List(ctx context.Context, filter deps.ListFilter) ([]entities.StoredMessage, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.repo.List(ctx, filter)
}

// Get retrieves one captured message
func (uc *MessageUseCase) Get(ctx context.Context, messageID uint) (*entities.StoredMessage, error) {
	return uc.repo.GetByID(ctx, messageID)
}

// Delete removes a captured message row
func (uc *MessageUseCase) Delete(ctx context.Context, messageID uint) error {
	if err := uc.repo.Delete(ctx, messageID); err != nil {
		return err
	}

	uc.logger.Info().Uint("message_id", messageID).Msg("message deleted")
	return nil
}

// Stats aggregates an account's capture volume over the last N days
func (uc *MessageUseCase) Stats(ctx context.Context, accountID uint, days int) (int, *deps.MessageStats, error) {
	if days <= 0 {
		days = defaultStatsDays
	}
	if days > maxStatsDays {
		days = maxStatsDays
	}

	since := time.Now().AddDate(0, 0, -days)
	stats, err := uc.repo.StatsByAccount(ctx, accountID, since)
	if err != nil {
		return 0, nil, err
	}
	return days, stats, nil
}
