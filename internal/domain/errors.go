package domain

import "errors"

var (
	// ErrNotAuthenticated means no usable session credential is stored for
	// the account. Fatal to a start attempt, surfaced to the caller.
	ErrNotAuthenticated = errors.New("account is not authenticated")

	// ErrConnectionUnavailable means the platform connection could not be
	// established or was lost. Transient; retried by the supervisory loop.
	ErrConnectionUnavailable = errors.New("connection unavailable")

	// ErrUpstreamThrottled means the platform rejected a call for rate
	// reasons despite the local budget. Treated as a connection failure
	// with a longer backoff.
	ErrUpstreamThrottled = errors.New("upstream throttled")

	// ErrNotConnected means an operation was attempted on a closed client.
	ErrNotConnected = errors.New("client is not connected")

	// ErrAlreadySubscribed means a duplicate subscription was requested for
	// a channel on the same connection.
	ErrAlreadySubscribed = errors.New("channel already subscribed")

	// ErrNotSubscribed means an unsubscribe was requested for a channel
	// without a subscription.
	ErrNotSubscribed = errors.New("channel not subscribed")

	// ErrChannelUnavailable means a channel username does not resolve or
	// the channel cannot be joined. Decoded from platform variants at the
	// client boundary.
	ErrChannelUnavailable = errors.New("channel not found or not joinable")
)
