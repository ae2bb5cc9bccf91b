package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	accountentities "github.com/supersunho/senseinfo/internal/domain/account/entities"
	channelentities "github.com/supersunho/senseinfo/internal/domain/channel/entities"
	keywordentities "github.com/supersunho/senseinfo/internal/domain/keyword/entities"
	messageentities "github.com/supersunho/senseinfo/internal/domain/message/entities"
	"github.com/supersunho/senseinfo/internal/domain/monitor/deps"
	monitorerrors "github.com/supersunho/senseinfo/internal/domain/monitor/errors"
)

type monitorRepository struct {
	db *gorm.DB
}

// NewMonitorRepository creates the processor's persistence gateway
func NewMonitorRepository(db *gorm.DB) deps.MonitorRepository {
	return &monitorRepository{
		db: db,
	}
}

// ListMonitoredChannels returns the account's active channels flagged
// for monitoring
func (r *monitorRepository) ListMonitoredChannels(ctx context.Context, accountID uint) ([]channelentities.MonitoredChannel, error) {
	var channels []channelentities.MonitoredChannel
	result := r.db.WithContext(ctx).
		Where("account_id = ? AND is_active = ? AND is_monitoring = ?", accountID, true, true).
		Order("id ASC").
		Find(&channels)
	if result.Error != nil {
		return nil, monitorerrors.ErrDatabaseOperation
	}
	return channels, nil
}

// ListActiveKeywords returns the channel's active rules in creation order
func (r *monitorRepository) ListActiveKeywords(ctx context.Context, channelID uint) ([]keywordentities.KeywordRule, error) {
	var rules []keywordentities.KeywordRule
	result := r.db.WithContext(ctx).
		Where("channel_id = ? AND is_active = ?", channelID, true).
		Order("created_at ASC, id ASC").
		Find(&rules)
	if result.Error != nil {
		return nil, monitorerrors.ErrDatabaseOperation
	}
	return rules, nil
}

// PersistMatch writes the message, the channel counters and the
// account's daily counter in one transaction. Any failure rolls the
// whole write back.
func (r *monitorRepository) PersistMatch(ctx context.Context, msg *messageentities.StoredMessage, accountID uint) error {
	now := time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		result := tx.Model(&channelentities.MonitoredChannel{}).
			Where("id = ?", msg.ChannelID).
			Updates(map[string]interface{}{
				"message_count":   gorm.Expr("message_count + 1"),
				"total_processed": gorm.Expr("total_processed + 1"),
				"last_message_id": gorm.Expr("GREATEST(last_message_id, ?)", msg.TelegramMessageID),
			})
		if result.Error != nil {
			return result.Error
		}

		// Daily counter restarts when the last counted date rolls over.
		result = tx.Model(&accountentities.Account{}).
			Where("id = ?", accountID).
			Updates(map[string]interface{}{
				"messages_today": gorm.Expr(
					"CASE WHEN last_message_date IS NULL OR last_message_date::date < ?::date THEN 1 ELSE messages_today + 1 END",
					now,
				),
				"last_message_date": now,
			})
		return result.Error
	})
	if err != nil {
		return monitorerrors.ErrDatabaseOperation
	}
	return nil
}

// MarkForwarded records a successful forwarding hand-off
func (r *monitorRepository) MarkForwarded(ctx context.Context, messageID uint, destination string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&messageentities.StoredMessage{}).
		Where("id = ?", messageID).
		Updates(map[string]interface{}{
			"is_forwarded":        true,
			"forwarded_at":        at,
			"forward_destination": destination,
		})
	if result.Error != nil {
		return monitorerrors.ErrDatabaseOperation
	}
	return nil
}
