package dto

import (
	"time"

	"github.com/supersunho/senseinfo/internal/domain/channel/deps"
	"github.com/supersunho/senseinfo/internal/domain/channel/entities"
)

// JoinChannelRequest adds one channel to an account
type JoinChannelRequest struct {
	Username string `json:"username"`
}

// BatchJoinRequest adds several channels to an account in one call
type BatchJoinRequest struct {
	Usernames []string `json:"usernames"`
}

// BatchJoinResult reports the outcome for one username of a batch join
type BatchJoinResult struct {
	Username string           `json:"username"`
	Joined   bool             `json:"joined"`
	Error    string           `json:"error,omitempty"`
	Channel  *ChannelResponse `json:"channel,omitempty"`
}

// SetMonitoringRequest toggles a channel's monitoring flag
type SetMonitoringRequest struct {
	Enabled bool `json:"enabled"`
}

// ChannelResponse is the public view of a monitored channel
type ChannelResponse struct {
	ID             uint       `json:"id"`
	Username       string     `json:"username"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	IsActive       bool       `json:"is_active"`
	IsMonitoring   bool       `json:"is_monitoring"`
	JoinedAt       *time.Time `json:"joined_at,omitempty"`
	LastMessageID  int64      `json:"last_message_id"`
	MessageCount   int64      `json:"message_count"`
	TotalProcessed int64      `json:"total_processed"`
	AccountID      uint       `json:"account_id"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ChannelListResponse is a paginated channel listing
type ChannelListResponse struct {
	Channels []ChannelResponse `json:"channels"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// DayCountResponse is one day's capture count
type DayCountResponse struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// ChannelStatsResponse aggregates a channel's captures over a period
type ChannelStatsResponse struct {
	ChannelID     uint               `json:"channel_id"`
	Days          int                `json:"days"`
	Messages      int64              `json:"messages"`
	TotalViews    int64              `json:"total_views"`
	TotalForwards int64              `json:"total_forwards"`
	Forwarded     int64              `json:"forwarded"`
	PerDay        []DayCountResponse `json:"per_day"`
}

// ToChannelResponse converts an entity to its public view
func ToChannelResponse(c *entities.MonitoredChannel) *ChannelResponse {
	return &ChannelResponse{
		ID:             c.ID,
		Username:       c.Username,
		Title:          c.Title,
		Description:    c.Description,
		IsActive:       c.IsActive,
		IsMonitoring:   c.IsMonitoring,
		JoinedAt:       c.JoinedAt,
		LastMessageID:  c.LastMessageID,
		MessageCount:   c.MessageCount,
		TotalProcessed: c.TotalProcessed,
		AccountID:      c.AccountID,
		CreatedAt:      c.CreatedAt,
	}
}

// ToChannelResponses converts a slice of entities
func ToChannelResponses(channels []entities.MonitoredChannel) []ChannelResponse {
	out := make([]ChannelResponse, 0, len(channels))
	for i := range channels {
		out = append(out, *ToChannelResponse(&channels[i]))
	}
	return out
}

// ToChannelStatsResponse converts aggregated stats to the wire form
func ToChannelStatsResponse(channelID uint, days int, stats *deps.ChannelStats) *ChannelStatsResponse {
	resp := &ChannelStatsResponse{
		ChannelID:     channelID,
		Days:          days,
		Messages:      stats.Messages,
		TotalViews:    stats.TotalViews,
		TotalForwards: stats.TotalForwards,
		Forwarded:     stats.Forwarded,
	}
	for _, d := range stats.PerDay {
		resp.PerDay = append(resp.PerDay, DayCountResponse{
			Day:   d.Day.Format("2006-01-02"),
			Count: d.Count,
		})
	}
	return resp
}
