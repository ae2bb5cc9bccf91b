package dto

import (
	"time"

	"github.com/supersunho/senseinfo/internal/domain/message/deps"
	"github.com/supersunho/senseinfo/internal/domain/message/entities"
)

// MessageResponse is the public view of a captured message
type MessageResponse struct {
	ID                 uint       `json:"id"`
	TelegramMessageID  int64      `json:"telegram_message_id"`
	Text               string     `json:"text"`
	SenderID           *int64     `json:"sender_id,omitempty"`
	SenderUsername     string     `json:"sender_username,omitempty"`
	SenderName         string     `json:"sender_name,omitempty"`
	MediaType          string     `json:"media_type"`
	Views              int        `json:"views"`
	Forwards           int        `json:"forwards"`
	MatchedKeywords    []string   `json:"matched_keywords"`
	MessageDate        time.Time  `json:"message_date"`
	IsForwarded        bool       `json:"is_forwarded"`
	ForwardedAt        *time.Time `json:"forwarded_at,omitempty"`
	ForwardDestination *string    `json:"forward_destination,omitempty"`
	ChannelID          uint       `json:"channel_id"`
	CreatedAt          time.Time  `json:"created_at"`
}

// MessageListResponse is a paginated message listing
type MessageListResponse struct {
	Messages []MessageResponse `json:"messages"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// MessageStatsResponse aggregates capture volume for an account
type MessageStatsResponse struct {
	AccountID uint       `json:"account_id"`
	Days      int        `json:"days"`
	Total     int64      `json:"total"`
	Forwarded int64      `json:"forwarded"`
	PerDay    []DayCount `json:"per_day"`
}

// DayCount is one day's capture volume
type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// ToMessageResponse converts an entity to its public view
func ToMessageResponse(m *entities.StoredMessage) *MessageResponse {
	return &MessageResponse{
		ID:                 m.ID,
		TelegramMessageID:  m.TelegramMessageID,
		Text:               m.Text,
		SenderID:           m.SenderID,
		SenderUsername:     m.SenderUsername,
		SenderName:         m.SenderName,
		MediaType:          m.MediaType,
		Views:              m.Views,
		Forwards:           m.Forwards,
		MatchedKeywords:    m.MatchedKeywords,
		MessageDate:        m.MessageDate,
		IsForwarded:        m.IsForwarded,
		ForwardedAt:        m.ForwardedAt,
		ForwardDestination: m.ForwardDestination,
		ChannelID:          m.ChannelID,
		CreatedAt:          m.CreatedAt,
	}
}

// ToMessageResponses converts a slice of entities
func ToMessageResponses(messages []entities.StoredMessage) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, *ToMessageResponse(&messages[i]))
	}
	return out
}

// ToMessageStatsResponse converts repository stats to the public view
func ToMessageStatsResponse(accountID uint, days int, stats *deps.MessageStats) *MessageStatsResponse {
	perDay := make([]DayCount, 0, len(stats.PerDay))
	for _, d := range stats.PerDay {
		perDay = append(perDay, DayCount{Day: d.Day.Format("2006-01-02"), Count: d.Count})
	}
	return &MessageStatsResponse{
		AccountID: accountID,
		Days:      days,
		Total:     stats.Total,
		Forwarded: stats.Forwarded,
		PerDay:    perDay,
	}
}
