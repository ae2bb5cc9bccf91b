package deps

import (
	"context"
	"time"

	"github.com/supersunho/senseinfo/internal/domain/channel/entities"
)

// ChannelRepository defines interface for monitored channel storage
type ChannelRepository interface {
	Create(ctx context.Context, channel *entities.MonitoredChannel) error
	GetByID(ctx context.Context, id uint) (*entities.MonitoredChannel, error)
	GetByUsername(ctx context.Context, username string) (*entities.MonitoredChannel, error)
	ListByAccount(ctx context.Context, accountID uint, limit, offset int) ([]entities.MonitoredChannel, int64, error)
	CountByAccount(ctx context.Context, accountID uint) (int64, error)
	Update(ctx context.Context, channel *entities.MonitoredChannel) error
	SetMonitoring(ctx context.Context, id uint, enabled bool) error
	Deactivate(ctx context.Context, id uint) error
	Stats(ctx context.Context, channelID uint, since time.Time) (*ChannelStats, error)
}

// ChannelStats aggregates a channel's captured messages over a period
type ChannelStats struct {
	Messages      int64
	TotalViews    int64
	TotalForwards int64
	Forwarded     int64
	PerDay        []DayCount
}

// DayCount is one day's capture count
type DayCount struct {
	Day   time.Time
	Count int64
}
