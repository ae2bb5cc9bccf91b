package dto

// MonitoringStatusResponse reports one account's processor state
type MonitoringStatusResponse struct {
	AccountID          uint                `json:"account_id"`
	State              string              `json:"state"`
	Channels           []ChannelWatchInfo  `json:"channels,omitempty"`
	RateLimitRemaining int                 `json:"rate_limit_remaining"`
}

// ChannelWatchInfo describes one subscribed channel of a running processor
type ChannelWatchInfo struct {
	ChannelID  uint   `json:"channel_id"`
	Username   string `json:"username"`
	Inclusions int    `json:"inclusions"`
	Exclusions int    `json:"exclusions"`
}

// MonitoringControlResponse acknowledges a start or stop request
type MonitoringControlResponse struct {
	AccountID uint   `json:"account_id"`
	State     string `json:"state"`
}
