package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	channelentities "github.com/supersunho/senseinfo/internal/domain/channel/entities"
	"github.com/supersunho/senseinfo/internal/domain/keyword/deps"
	"github.com/supersunho/senseinfo/internal/domain/keyword/entities"
	keyworderrors "github.com/supersunho/senseinfo/internal/domain/keyword/errors"
)

type keywordRepository struct {
	db *gorm.DB
}

// NewKeywordRepository creates a new keyword repository
func NewKeywordRepository(db *gorm.DB) deps.KeywordRepository {
	return &keywordRepository{
		db: db,
	}
}

// Create creates a new keyword rule
func (r *keywordRepository) Create(ctx context.Context, rule *entities.KeywordRule) error {
	result := r.db.WithContext(ctx).Create(rule)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return keyworderrors.ErrKeywordExists
		}
		return keyworderrors.ErrDatabaseOperation
	}
	return nil
}

// GetByID retrieves a keyword rule by ID
func (r *keywordRepository) GetByID(ctx context.Context, id uint) (*entities.KeywordRule, error) {
	var rule entities.KeywordRule
	result := r.db.WithContext(ctx).First(&rule, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, keyworderrors.ErrKeywordNotFound
		}
		return nil, keyworderrors.ErrDatabaseOperation
	}
	return &rule, nil
}

// ListByChannel retrieves all of a channel's rules in creation order
func (r *keywordRepository) ListByChannel(ctx context.Context, channelID uint) ([]entities.KeywordRule, error) {
	var rules []entities.KeywordRule
	result := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at ASC, id ASC").
		Find(&rules)
	if result.Error != nil {
		return nil, keyworderrors.ErrDatabaseOperation
	}
	return rules, nil
}

// CountActiveByChannel counts a channel's active rules
func (r *keywordRepository) CountActiveByChannel(ctx context.Context, channelID uint) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&entities.KeywordRule{}).
		Where("channel_id = ? AND is_active = ?", channelID, true).
		Count(&count)
	if result.Error != nil {
		return 0, keyworderrors.ErrDatabaseOperation
	}
	return count, nil
}

// ExistsActive reports whether an active rule with the same word and
// polarity exists on the channel. Comparison is case-insensitive, like
// matching itself.
func (r *keywordRepository) ExistsActive(ctx context.Context, channelID uint, word string, isInclusion bool) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&entities.KeywordRule{}).
		Where("channel_id = ? AND LOWER(word) = LOWER(?) AND is_inclusion = ? AND is_active = ?",
			channelID, word, isInclusion, true).
		Count(&count)
	if result.Error != nil {
		return false, keyworderrors.ErrDatabaseOperation
	}
	return count > 0, nil
}

// SetActive toggles a rule's active flag. Deactivation doubles as the
// soft delete.
func (r *keywordRepository) SetActive(ctx context.Context, id uint, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&entities.KeywordRule{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return keyworderrors.ErrDatabaseOperation
	}
	if result.RowsAffected == 0 {
		return keyworderrors.ErrKeywordNotFound
	}
	return nil
}

// channelGuard implements deps.ChannelGuard over channel rows
type channelGuard struct {
	db *gorm.DB
}

// NewChannelGuard creates a channel existence check for the keyword
// use case
func NewChannelGuard(db *gorm.DB) deps.ChannelGuard {
	return &channelGuard{
		db: db,
	}
}

// ChannelExists reports whether an active channel with the ID exists
func (g *channelGuard) ChannelExists(ctx context.Context, channelID uint) (bool, error) {
	var count int64
	result := g.db.WithContext(ctx).
		Model(&channelentities.MonitoredChannel{}).
		Where("id = ? AND is_active = ?", channelID, true).
		Count(&count)
	if result.Error != nil {
		return false, keyworderrors.ErrDatabaseOperation
	}
	return count > 0, nil
}
