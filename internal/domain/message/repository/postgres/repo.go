package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	channelentities "github.com/supersunho/senseinfo/internal/domain/channel/entities"
	"github.com/supersunho/senseinfo/internal/domain/message/deps"
	"github.com/supersunho/senseinfo/internal/domain/message/entities"
	messageerrors "github.com/supersunho/senseinfo/internal/domain/message/errors"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) deps.MessageRepository {
	return &messageRepository{
		db: db,
	}
}

// List retrieves captured messages matching the filter, newest first
func (r *messageRepository) List(ctx context.Context, filter deps.ListFilter) ([]entities.StoredMessage, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.StoredMessage{})

	if filter.ChannelID != 0 {
		query = query.Where("messages.channel_id = ?", filter.ChannelID)
	}
	if filter.AccountID != 0 {
		query = query.
			Joins("JOIN channels ON channels.id = messages.channel_id").
			Where("channels.account_id = ?", filter.AccountID)
	}
	if filter.Keyword != "" {
		query = query.Where("messages.text ILIKE ?", "%"+filter.Keyword+"%")
	}
	if filter.From != nil {
		query = query.Where("messages.message_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("messages.message_date <= ?", *filter.To)
	}
	if filter.Forwarded != nil {
		query = query.Where("messages.is_forwarded = ?", *filter.Forwarded)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, messageerrors.ErrDatabaseOperation
	}

	var messages []entities.StoredMessage
	result := query.
		Order("messages.message_date DESC, messages.id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&messages)
	if result.Error != nil {
		return nil, 0, messageerrors.ErrDatabaseOperation
	}
	return messages, total, nil
}

// GetByID retrieves a message by ID
func (r *messageRepository) GetByID(ctx context.Context, id uint) (*entities.StoredMessage, error) {
	var message entities.StoredMessage
	result := r.db.WithContext(ctx).First(&message, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, messageerrors.ErrMessageNotFound
		}
		return nil, messageerrors.ErrDatabaseOperation
	}
	return &message, nil
}

// Delete removes a message row. Channel counters are not rewound: they
// track capture volume, not retained rows.
func (r *messageRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.StoredMessage{}, id)
	if result.Error != nil {
		return messageerrors.ErrDatabaseOperation
	}
	if result.RowsAffected == 0 {
		return messageerrors.ErrMessageNotFound
	}
	return nil
}

// StatsByAccount aggregates captures across all of the account's
// channels since the cutoff
func (r *messageRepository) StatsByAccount(ctx context.Context, accountID uint, since time.Time) (*deps.MessageStats, error) {
	var exists int64
	if err := r.db.WithContext(ctx).
		Model(&channelentities.MonitoredChannel{}).
		Where("account_id = ?", accountID).
		Count(&exists).Error; err != nil {
		return nil, messageerrors.ErrDatabaseOperation
	}
	if exists == 0 {
		var acct int64
		if err := r.db.WithContext(ctx).
			Table("accounts").
			Where("id = ?", accountID).
			Count(&acct).Error; err != nil {
			return nil, messageerrors.ErrDatabaseOperation
		}
		if acct == 0 {
			return nil, messageerrors.ErrAccountNotFound
		}
	}

	stats := &deps.MessageStats{}
	base := r.db.WithContext(ctx).
		Model(&entities.StoredMessage{}).
		Joins("JOIN channels ON channels.id = messages.channel_id").
		Where("channels.account_id = ? AND messages.created_at >= ?", accountID, since)

	row := base.Session(&gorm.Session{}).
		Select("COUNT(*), COUNT(*) FILTER (WHERE messages.is_forwarded)").
		Row()
	if err := row.Scan(&stats.Total, &stats.Forwarded); err != nil {
		return nil, messageerrors.ErrDatabaseOperation
	}

	rows, err := base.Session(&gorm.Session{}).
		Select("DATE_TRUNC('day', messages.created_at) AS day, COUNT(*)").
		Group("day").
		Order("day ASC").
		Rows()
	if err != nil {
		return nil, messageerrors.ErrDatabaseOperation
	}
	defer rows.Close()

	for rows.Next() {
		var d deps.DayCount
		if err := rows.Scan(&d.Day, &d.Count); err != nil {
			return nil, messageerrors.ErrDatabaseOperation
		}
		stats.PerDay = append(stats.PerDay, d)
	}
	if err := rows.Err(); err != nil {
		return nil, messageerrors.ErrDatabaseOperation
	}

	return stats, nil
}
