package business

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/supersunho/senseinfo/config"
	"github.com/supersunho/senseinfo/internal/domain"
	"github.com/supersunho/senseinfo/internal/domain/channel/deps"
	"github.com/supersunho/senseinfo/internal/domain/channel/dto"
	"github.com/supersunho/senseinfo/internal/domain/channel/entities"
	channelerrors "github.com/supersunho/senseinfo/internal/domain/channel/errors"
)

// usernamePattern matches public channel usernames: 4-32 word characters
// after the optional @.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{3,31}$`)

const defaultBatchJoinDelay = 2 * time.Second

// ChannelUseCase implements monitored channel business logic
type ChannelUseCase struct {
	repo        deps.ChannelRepository
	conns       domain.ConnectionManager
	limiter     domain.RateLimiter
	maxChannels int
	logger      zerolog.Logger

	// Injectable for tests.
	joinDelay time.Duration
}

// NewChannelUseCase creates a new channel use case
func NewChannelUseCase(
	repo deps.ChannelRepository,
	conns domain.ConnectionManager,
	limiter domain.RateLimiter,
	monitorCfg *config.MonitorConfig,
	log zerolog.Logger,
) *ChannelUseCase {
	return &ChannelUseCase{
		repo:        repo,
		conns:       conns,
		limiter:     limiter,
		maxChannels: monitorCfg.MaxChannelsPerAccount,
		logger:      log.With().Str("usecase", "channel").Logger(),
		joinDelay:   defaultBatchJoinDelay,
	}
}

// Join resolves a public channel, joins it on the platform and creates
// its row for the account. Usernames are globally unique: a channel
// already monitored by any account is a conflict.
func (uc *ChannelUseCase) Join(ctx context.Context, accountID uint, username string) (*entities.MonitoredChannel, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}

	if _, err := uc.repo.GetByUsername(ctx, username); err == nil {
		return nil, channelerrors.ErrChannelExists
	} else if !errors.Is(err, channelerrors.ErrChannelNotFound) {
		return nil, err
	}

	count, err := uc.repo.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if count >= int64(uc.maxChannels) {
		return nil, channelerrors.ErrChannelLimitExceeded
	}

	if err := uc.limiter.Acquire(ctx, accountID); err != nil {
		return nil, err
	}
	conn, err := uc.conns.Acquire(ctx, accountID)
	if err != nil {
		return nil, err
	}

	info, err := conn.JoinChannel(ctx, username)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	channel := &entities.MonitoredChannel{
		Username:    username,
		Title:       info.Title,
		Description: info.About,
		TelegramID:  &info.TelegramID,
		AccessHash:  info.AccessHash,
		IsActive:    true,
		JoinedAt:    &now,
		AccountID:   accountID,
	}
	if err := uc.repo.Create(ctx, channel); err != nil {
		return nil, err
	}

	uc.logger.Info().
		Uint("account_id", accountID).
		Str("channel", username).
		Int64("telegram_id", info.TelegramID).
		Msg("channel joined")
	return channel, nil
}

// BatchJoin joins several channels sequentially with an inter-join
// delay, so one batch cannot burn the account's whole request budget at
// once. Failures are reported per username; the batch continues.
func (uc *ChannelUseCase) BatchJoin(ctx context.Context, accountID uint, usernames []string) []dto.BatchJoinResult {
	results := make([]dto.BatchJoinResult, 0, len(usernames))

	for i, username := range usernames {
		if i > 0 {
			select {
			case <-time.After(uc.joinDelay):
			case <-ctx.Done():
				results = append(results, dto.BatchJoinResult{Username: username, Error: ctx.Err().Error()})
				continue
			}
		}

		channel, err := uc.Join(ctx, accountID, username)
		if err != nil {
			results = append(results, dto.BatchJoinResult{Username: username, Error: err.Error()})
			continue
		}
		results = append(results, dto.BatchJoinResult{
			Username: channel.Username,
			Joined:   true,
			Channel:  dto.ToChannelResponse(channel),
		})
	}

	return results
}

// List retrieves an account's channels with pagination
func (uc *ChannelUseCase) List(ctx context.Context, accountID uint, limit, offset int) ([]entities.MonitoredChannel, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return uc.repo.ListByAccount(ctx, accountID, limit, offset)
}

// Get retrieves one channel by ID
func (uc *ChannelUseCase) Get(ctx context.Context, channelID uint) (*entities.MonitoredChannel, error) {
	return uc.repo.GetByID(ctx, channelID)
}

// Delete leaves the channel on the platform and soft-deactivates its
// row. The row is deactivated even when leaving fails, so monitoring
// stops regardless of platform state.
func (uc *ChannelUseCase) Delete(ctx context.Context, channelID uint) error {
	channel, err := uc.repo.GetByID(ctx, channelID)
	if err != nil {
		return err
	}

	if channel.TelegramID != nil {
		if err := uc.leave(ctx, channel); err != nil {
			uc.logger.Warn().Err(err).
				Str("channel", channel.Username).
				Msg("leaving channel failed, deactivating anyway")
		}
	}

	if err := uc.repo.Deactivate(ctx, channelID); err != nil {
		return err
	}

	uc.logger.Info().
		Str("channel", channel.Username).
		Uint("account_id", channel.AccountID).
		Msg("channel deactivated")
	return nil
}

// SetMonitoring toggles a channel's monitoring flag. Monitoring can
// only be enabled on an active channel.
func (uc *ChannelUseCase) SetMonitoring(ctx context.Context, channelID uint, enabled bool) (*entities.MonitoredChannel, error) {
	channel, err := uc.repo.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	if enabled && !channel.IsActive {
		return nil, channelerrors.ErrChannelInactive
	}

	if err := uc.repo.SetMonitoring(ctx, channelID, enabled); err != nil {
		return nil, err
	}
	channel.IsMonitoring = enabled

	uc.logger.Info().
		Str("channel", channel.Username).
		Bool("monitoring", enabled).
		Msg("monitoring flag changed")
	return channel, nil
}

// Stats aggregates the channel's captured messages over the last days
func (uc *ChannelUseCase) Stats(ctx context.Context, channelID uint, days int) (*dto.ChannelStatsResponse, error) {
	if days <= 0 || days > 365 {
		days = 7
	}

	if _, err := uc.repo.GetByID(ctx, channelID); err != nil {
		return nil, err
	}

	since := time.Now().AddDate(0, 0, -days)
	stats, err := uc.repo.Stats(ctx, channelID, since)
	if err != nil {
		return nil, err
	}
	return dto.ToChannelStatsResponse(channelID, days, stats), nil
}

// leave leaves the channel on the platform, respecting the account's
// request budget.
func (uc *ChannelUseCase) leave(ctx context.Context, channel *entities.MonitoredChannel) error {
	if err := uc.limiter.Acquire(ctx, channel.AccountID); err != nil {
		return err
	}
	conn, err := uc.conns.Acquire(ctx, channel.AccountID)
	if err != nil {
		return err
	}
	return conn.LeaveChannel(ctx, *channel.TelegramID, channel.AccessHash)
}

// normalizeUsername strips the @ prefix, lowercases and validates
func normalizeUsername(username string) (string, error) {
	username = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
	if !usernamePattern.MatchString(username) {
		return "", channelerrors.ErrUsernameInvalid
	}
	return username, nil
}
