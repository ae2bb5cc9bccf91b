package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/supersunho/senseinfo/internal/domain/channel/deps"
	"github.com/supersunho/senseinfo/internal/domain/channel/entities"
	channelerrors "github.com/supersunho/senseinfo/internal/domain/channel/errors"
	messageentities "github.com/supersunho/senseinfo/internal/domain/message/entities"
)

type channelRepository struct {
	db *gorm.DB
}

// NewChannelRepository creates a new channel repository
func NewChannelRepository(db *gorm.DB) deps.ChannelRepository {
	return &channelRepository{
		db: db,
	}
}

// Create creates a new monitored channel
func (r *channelRepository) Create(ctx context.Context, channel *entities.MonitoredChannel) error {
	result := r.db.WithContext(ctx).Create(channel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return channelerrors.ErrChannelExists
		}
		return channelerrors.ErrDatabaseOperation
	}
	return nil
}

// GetByID retrieves a channel by ID
func (r *channelRepository) GetByID(ctx context.Context, id uint) (*entities.MonitoredChannel, error) {
	var channel entities.MonitoredChannel
	result := r.db.WithContext(ctx).First(&channel, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, channelerrors.ErrChannelNotFound
		}
		return nil, channelerrors.ErrDatabaseOperation
	}
	return &channel, nil
}

// GetByUsername retrieves a channel by its platform username
func (r *channelRepository) GetByUsername(ctx context.Context, username string) (*entities.MonitoredChannel, error) {
	var channel entities.MonitoredChannel
	result := r.db.WithContext(ctx).Where("username = ?", username).First(&channel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, channelerrors.ErrChannelNotFound
		}
		return nil, channelerrors.ErrDatabaseOperation
	}
	return &channel, nil
}

// ListByAccount retrieves an account's channels with pagination
func (r *channelRepository) ListByAccount(ctx context.Context, accountID uint, limit, offset int) ([]entities.MonitoredChannel, int64, error) {
	var total int64
	query := r.db.WithContext(ctx).
		Model(&entities.MonitoredChannel{}).
		Where("account_id = ?", accountID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, channelerrors.ErrDatabaseOperation
	}

	var channels []entities.MonitoredChannel
	result := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&channels)
	if result.Error != nil {
		return nil, 0, channelerrors.ErrDatabaseOperation
	}
	return channels, total, nil
}

// CountByAccount counts an account's active channels
func (r *channelRepository) CountByAccount(ctx context.Context, accountID uint) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&entities.MonitoredChannel{}).
		Where("account_id = ? AND is_active = ?", accountID, true).
		Count(&count)
	if result.Error != nil {
		return 0, channelerrors.ErrDatabaseOperation
	}
	return count, nil
}

// Update saves all fields of an existing channel
func (r *channelRepository) Update(ctx context.Context, channel *entities.MonitoredChannel) error {
	result := r.db.WithContext(ctx).Save(channel)
	if result.Error != nil {
		return channelerrors.ErrDatabaseOperation
	}
	return nil
}

// SetMonitoring toggles the channel's monitoring flag
func (r *channelRepository) SetMonitoring(ctx context.Context, id uint, enabled bool) error {
	result := r.db.WithContext(ctx).
		Model(&entities.MonitoredChannel{}).
		Where("id = ?", id).
		Update("is_monitoring", enabled)
	if result.Error != nil {
		return channelerrors.ErrDatabaseOperation
	}
	if result.RowsAffected == 0 {
		return channelerrors.ErrChannelNotFound
	}
	return nil
}

// Deactivate soft-deletes a channel: the row and its captured messages
// stay, monitoring stops.
func (r *channelRepository) Deactivate(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&entities.MonitoredChannel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":     false,
			"is_monitoring": false,
		})
	if result.Error != nil {
		return channelerrors.ErrDatabaseOperation
	}
	if result.RowsAffected == 0 {
		return channelerrors.ErrChannelNotFound
	}
	return nil
}

// Stats aggregates the channel's captured messages since the cutoff
func (r *channelRepository) Stats(ctx context.Context, channelID uint, since time.Time) (*deps.ChannelStats, error) {
	stats := &deps.ChannelStats{}

	row := r.db.WithContext(ctx).
		Model(&messageentities.StoredMessage{}).
		Select("COUNT(*), COALESCE(SUM(views), 0), COALESCE(SUM(forwards), 0), COUNT(*) FILTER (WHERE is_forwarded)").
		Where("channel_id = ? AND created_at >= ?", channelID, since).
		Row()
	if err := row.Scan(&stats.Messages, &stats.TotalViews, &stats.TotalForwards, &stats.Forwarded); err != nil {
		return nil, channelerrors.ErrDatabaseOperation
	}

	rows, err := r.db.WithContext(ctx).
		Model(&messageentities.StoredMessage{}).
		Select("DATE_TRUNC('day', created_at) AS day, COUNT(*)").
		Where("channel_id = ? AND created_at >= ?", channelID, since).
		Group("day").
		Order("day ASC").
		Rows()
	if err != nil {
		return nil, channelerrors.ErrDatabaseOperation
	}
	defer rows.Close()

	for rows.Next() {
		var d deps.DayCount
		if err := rows.Scan(&d.Day, &d.Count); err != nil {
			return nil, channelerrors.ErrDatabaseOperation
		}
		stats.PerDay = append(stats.PerDay, d)
	}
	if err := rows.Err(); err != nil {
		return nil, channelerrors.ErrDatabaseOperation
	}

	return stats, nil
}
