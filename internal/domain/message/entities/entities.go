package entities

import "time"

// StoredMessage is a captured channel message that passed the keyword
// rules of its channel. RawText preserves the text exactly as received;
// Text is the processed form and is identical at capture time.
type StoredMessage struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	TelegramMessageID  int64      `gorm:"not null;index" json:"telegramMessageId"`
	Text               string     `gorm:"type:text" json:"text"`
	RawText            string     `gorm:"type:text" json:"rawText"`
	SenderID           *int64     `json:"senderId,omitempty"`
	SenderUsername     string     `gorm:"size:255" json:"senderUsername"`
	SenderName         string     `gorm:"size:255" json:"senderName"`
	MediaType          string     `gorm:"size:32;not null;default:text" json:"mediaType"`
	Views              int        `gorm:"not null;default:0" json:"views"`
	Forwards           int        `gorm:"not null;default:0" json:"forwards"`
	MatchedKeywords    []string   `gorm:"serializer:json" json:"matchedKeywords"`
	MessageDate        time.Time  `gorm:"not null;index" json:"messageDate"`
	EditDate           *time.Time `json:"editDate,omitempty"`
	IsForwarded        bool       `gorm:"not null;default:false" json:"isForwarded"`
	ForwardedAt        *time.Time `json:"forwardedAt,omitempty"`
	ForwardDestination *string    `gorm:"size:255" json:"forwardDestination,omitempty"`
	ChannelID          uint       `gorm:"not null;index" json:"channelId"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName returns the table name for StoredMessage
func (StoredMessage) TableName() string {
	return "messages"
}
