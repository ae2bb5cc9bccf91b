package domain

import "time"

// Identity is the platform identity behind an authenticated session.
type Identity struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	Phone      string
}

// MediaKind tags the media payload of an event. Heterogeneous platform
// media objects are decoded into this fixed set at the client boundary.
type MediaKind string

const (
	MediaNone     MediaKind = "text"
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
	MediaWebPage  MediaKind = "webpage"
	MediaOther    MediaKind = "other"
)

// SenderInfo is the normalized sender identity of an event. ID is nil for
// anonymous channel posts.
type SenderInfo struct {
	ID          *int64
	Username    string
	DisplayName string
}

// ChannelEvent is one decoded message event from a monitored channel.
// All platform-specific variants are resolved before it is emitted.
type ChannelEvent struct {
	ChannelID int64
	MessageID int64
	Text      string
	Sender    SenderInfo
	Media     MediaKind
	Views     int
	Forwards  int
	Date      time.Time
	EditDate  *time.Time
}

// ChannelInfo describes a platform channel as resolved by username.
type ChannelInfo struct {
	TelegramID   int64
	AccessHash   int64
	Username     string
	Title        string
	About        string
	Participants int
}

// ForwardEvent is one matched message handed to the forwarding hook.
type ForwardEvent struct {
	AccountID         uint
	ChannelID         uint
	ChannelUsername   string
	TelegramMessageID int64
	Text              string
	MatchedKeywords   []string
	MessageDate       time.Time
}
