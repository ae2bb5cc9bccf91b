package entities

import "time"

// Account represents one authenticated end user of the service. The
// platform identity fields stay nil until the first successful login.
// SessionData holds the opaque MTProto session blob; it is non-empty
// exactly when IsAuthenticated is true.
type Account struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	TelegramID      *int64     `gorm:"uniqueIndex" json:"telegramId,omitempty"`
	Phone           *string    `gorm:"uniqueIndex;size:32" json:"phone,omitempty"`
	Username        string     `gorm:"size:255" json:"username"`
	FirstName       string     `gorm:"size:255" json:"firstName"`
	LastName        string     `gorm:"size:255" json:"lastName"`
	IsAuthenticated bool       `gorm:"not null;default:false" json:"isAuthenticated"`
	SessionData     []byte     `json:"-"`
	LastAuthAt      *time.Time `json:"lastAuthAt,omitempty"`
	IsActive        bool       `gorm:"not null;default:true" json:"isActive"`
	IsAdmin         bool       `gorm:"not null;default:false" json:"isAdmin"`
	MessagesToday   int64      `gorm:"not null;default:0" json:"messagesToday"`
	LastMessageDate *time.Time `json:"lastMessageDate,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName returns the table name for Account
func (Account) TableName() string {
	return "accounts"
}
