package deps

import (
	"context"
	"time"

	"github.com/supersunho/senseinfo/internal/domain/message/entities"
)

// ListFilter narrows a message listing. Zero values mean "no
// constraint" except Limit, which the use case clamps before the
// repository sees it.
type ListFilter struct {
	ChannelID uint
	AccountID uint
	Keyword   string
	From      *time.Time
	To        *time.Time
	Forwarded *bool
	Limit     int
	Offset    int
}

// MessageStats aggregates captured messages over a period
type MessageStats struct {
	Total     int64
	Forwarded int64
	PerDay    []DayCount
}

// DayCount is one day's capture volume
type DayCount struct {
	Day   time.Time
	Count int64
}

// MessageRepository defines interface for stored message access
type MessageRepository interface {
	List(ctx context.Context, filter ListFilter) ([]entities.StoredMessage, int64, error)
	GetByID(ctx context.Context, id uint) (*entities.StoredMessage, error)
	Delete(ctx context.Context, id uint) error
	StatsByAccount(ctx context.Context, accountID uint, since time.Time) (*MessageStats, error)
}
