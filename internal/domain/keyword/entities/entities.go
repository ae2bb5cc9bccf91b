package entities

import "time"

// KeywordRule is a single matching rule for a channel. IsInclusion
// selects the rule polarity: inclusion rules admit a message when the
// word occurs in its text, exclusion rules discard it. Matching is
// case-insensitive substring; the stored Word keeps its original case
// for display.
type KeywordRule struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Word        string    `gorm:"size:255;not null" json:"word"`
	IsInclusion bool      `gorm:"not null;default:true" json:"isInclusion"`
	IsActive    bool      `gorm:"not null;default:true" json:"isActive"`
	ChannelID   uint      `gorm:"not null;index" json:"channelId"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName returns the table name for KeywordRule
func (KeywordRule) TableName() string {
	return "keywords"
}
