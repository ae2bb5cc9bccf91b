package entities

import "time"

// MonitoredChannel is a channel one account watches. Usernames are
// stored without the leading @ and are globally unique, so an external
// channel has a single owning account. TelegramID stays nil and
// AccessHash zero until the channel is first resolved against the
// platform.
type MonitoredChannel struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Username       string     `gorm:"size:255;not null;uniqueIndex" json:"username"`
	Title          string     `gorm:"size:255" json:"title"`
	Description    string     `gorm:"type:text" json:"description"`
	TelegramID     *int64     `gorm:"index" json:"telegramId,omitempty"`
	AccessHash     int64      `gorm:"not null;default:0" json:"-"`
	IsActive       bool       `gorm:"not null;default:true" json:"isActive"`
	IsMonitoring   bool       `gorm:"not null;default:false" json:"isMonitoring"`
	JoinedAt       *time.Time `json:"joinedAt,omitempty"`
	LastMessageID  int64      `gorm:"not null;default:0" json:"lastMessageId"`
	MessageCount   int64      `gorm:"not null;default:0" json:"messageCount"`
	TotalProcessed int64      `gorm:"not null;default:0" json:"totalProcessed"`
	AccountID      uint       `gorm:"not null;index" json:"accountId"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName returns the table name for MonitoredChannel
func (MonitoredChannel) TableName() string {
	return "channels"
}
