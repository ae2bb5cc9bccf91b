package domain

import "context"

// Conn is a live connection to the external platform for one account.
// Implementations stage Connecting -> Authenticating -> Open explicitly:
// Connect dials (optionally through an assigned egress) and Authenticate
// verifies the stored credential with a self-lookup before the connection
// is considered usable.
type Conn interface {
	// Connect dials the platform and starts the client loop.
	Connect(ctx context.Context) error

	// IsConnected reports whether the client loop is up.
	IsConnected() bool

	// Authenticate verifies the stored session credential and returns the
	// platform identity it belongs to. Returns ErrNotAuthenticated when the
	// credential is absent or rejected.
	Authenticate(ctx context.Context) (*Identity, error)

	// Subscribe registers interest in one channel and returns the event
	// stream for it. The stream is closed by Unsubscribe.
	Subscribe(channelID int64) (<-chan ChannelEvent, error)

	// Unsubscribe removes a channel subscription and closes its stream.
	Unsubscribe(channelID int64) error

	// JoinChannel resolves a public channel by username and joins it.
	JoinChannel(ctx context.Context, username string) (*ChannelInfo, error)

	// LeaveChannel leaves a previously joined channel.
	LeaveChannel(ctx context.Context, channelID, accessHash int64) error

	// ResolveChannel resolves a public channel by username without joining.
	ResolveChannel(ctx context.Context, username string) (*ChannelInfo, error)

	// Disconnect stops the client loop and releases resources.
	Disconnect(ctx context.Context) error
}

// ConnectionManager owns at most one live Conn per account.
type ConnectionManager interface {
	// Acquire returns the cached connection for the account, reconnecting
	// or creating one as needed. Fails with ErrNotAuthenticated when no
	// usable credential is stored.
	Acquire(ctx context.Context, accountID uint) (Conn, error)

	// Release closes and evicts one account's connection. Close errors are
	// logged, not returned.
	Release(ctx context.Context, accountID uint)

	// ReleaseAll releases every cached connection. Used at shutdown.
	ReleaseAll(ctx context.Context)

	// ActiveCount reports the number of cached connections.
	ActiveCount() int
}

// RateLimiter caps outbound platform requests per account over a sliding
// window. Every outbound call must pass Acquire first.
type RateLimiter interface {
	// Acquire blocks until the account is within its request budget.
	Acquire(ctx context.Context, accountID uint) error

	// Remaining reports how many requests the account may still make in the
	// current window. Never blocks.
	Remaining(accountID uint) int

	// Reset clears the account's request history.
	Reset(accountID uint)
}

// CredentialSource resolves stored platform credentials for an account.
// The connection manager never reads credential rows directly.
type CredentialSource interface {
	// IsAuthenticated reports whether the account holds a session credential.
	IsAuthenticated(ctx context.Context, accountID uint) (bool, error)

	// LoadSession returns the opaque session blob for the account.
	LoadSession(ctx context.Context, accountID uint) ([]byte, error)

	// StoreSession persists a refreshed session blob for the account.
	StoreSession(ctx context.Context, accountID uint, data []byte) error
}

// Forwarder receives matched messages for delivery downstream. Failures
// must never affect the persisted record.
type Forwarder interface {
	// Forward hands one matched message to the downstream transport.
	Forward(ctx context.Context, event ForwardEvent) error

	// Destination names where forwarded messages go, recorded on the
	// stored message row.
	Destination() string

	// Healthy reports whether the transport is usable.
	Healthy() bool

	// Close flushes and releases the transport.
	Close() error
}
