package business

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/supersunho/senseinfo/config"
	"github.com/supersunho/senseinfo/internal/domain/keyword/deps"
	"github.com/supersunho/senseinfo/internal/domain/keyword/entities"
	keyworderrors "github.com/supersunho/senseinfo/internal/domain/keyword/errors"
)

const maxWordLength = 255

// KeywordUseCase implements keyword rule business logic
type KeywordUseCase struct {
	repo        deps.KeywordRepository
	channels    deps.ChannelGuard
	maxKeywords int
	logger      zerolog.Logger
}

// NewKeywordUseCase creates a new keyword use case
func NewKeywordUseCase(
	repo deps.KeywordRepository,
	channels deps.ChannelGuard,
	monitorCfg *config.MonitorConfig,
	log zerolog.Logger,
) *KeywordUseCase {
	return &KeywordUseCase{
		repo:        repo,
		channels:    channels,
		maxKeywords: monitorCfg.MaxKeywordsPerChannel,
		logger:      log.With().Str("usecase", "keyword").Logger(),
	}
}

// Add attaches one rule to a channel. Active duplicates of the same
// word and polarity are rejected, as is exceeding the channel's rule
// budget. Rules become effective the next time the account's processor
// starts.
func (uc *KeywordUseCase) Add(ctx context.Context, channelID uint, word string, isInclusion bool) (*entities.KeywordRule, error) {
	word = strings.TrimSpace(word)
	if word == "" || utf8.RuneCountInString(word) > maxWordLength {
		return nil, keyworderrors.ErrWordInvalid
	}

	exists, err := uc.channels.ChannelExists(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, keyworderrors.ErrChannelNotFound
	}

	count, err := uc.repo.CountActiveByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if count >= int64(uc.maxKeywords) {
		return nil, keyworderrors.ErrKeywordLimitExceeded
	}

	duplicate, err := uc.repo.ExistsActive(ctx, channelID, word, isInclusion)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return nil, keyworderrors.ErrKeywordExists
	}

	rule := &entities.KeywordRule{
		Word:        word,
		IsInclusion: isInclusion,
		IsActive:    true,
		ChannelID:   channelID,
	}
	if err := uc.repo.Create(ctx, rule); err != nil {
		return nil, err
	}

	uc.logger.Info().
		Uint("channel_id", channelID).
		Str("word", word).
		Bool("inclusion", isInclusion).
		Msg("keyword added")
	return rule, nil
}

// List retrieves all of a channel's rules
func (uc *KeywordUseCase) List(ctx context.Context, channelID uint) ([]entities.KeywordRule, error) {
	exists, err := uc.channels.ChannelExists(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, keyworderrors.ErrChannelNotFound
	}
	return uc.repo.ListByChannel(ctx, channelID)
}

// Delete soft-deletes a rule by deactivating it. The row stays for the
// partial unique index to ignore and for audit.
func (uc *KeywordUseCase) Delete(ctx context.Context, keywordID uint) error {
	if _, err := uc.repo.GetByID(ctx, keywordID); err != nil {
		return err
	}
	if err := uc.repo.SetActive(ctx, keywordID, false); err != nil {
		return err
	}

	uc.logger.Info().Uint("keyword_id", keywordID).Msg("keyword deactivated")
	return nil
}

// Toggle flips a rule's active flag. Re-activating checks the duplicate
// rule again: another active rule with the same word and polarity may
// have been added in the meantime.
func (uc *KeywordUseCase) Toggle(ctx context.Context, keywordID uint) (*entities.KeywordRule, error) {
	rule, err := uc.repo.GetByID(ctx, keywordID)
	if err != nil {
		return nil, err
	}

	target := !rule.IsActive
	if target {
		duplicate, err := uc.repo.ExistsActive(ctx, rule.ChannelID, rule.Word, rule.IsInclusion)
		if err != nil {
			return nil, err
		}
		if duplicate {
			return nil, keyworderrors.ErrKeywordExists
		}
	}

	if err := uc.repo.SetActive(ctx, keywordID, target); err != nil {
		return nil, err
	}
	rule.IsActive = target

	uc.logger.Info().
		Uint("keyword_id", keywordID).
		Bool("active", target).
		Msg("keyword toggled")
	return rule, nil
}
