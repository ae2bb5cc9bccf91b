package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/supersunho/senseinfo/internal/domain"
	"github.com/supersunho/senseinfo/internal/infrastructure/metrics"
	"github.com/supersunho/senseinfo/internal/infrastructure/proxy"
)

// ClientOptions holds construction parameters for a Client
type ClientOptions struct {
	AccountID   uint
	APIID       int
	APIHash     string
	Storage     session.Storage
	Egress      *proxy.Egress
	EventBuffer int
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
}

// Client is one MTProto connection for one account. The lifecycle is
// staged: Connect brings the transport up, Authenticate verifies the
// stored credential with a self-lookup. Decoded channel events are
// fanned out to per-channel buffered streams; a full stream drops the
// event rather than blocking update delivery.
type Client struct {
	accountID   uint
	apiID       int
	apiHash     string
	storage     session.Storage
	egress      *proxy.Egress
	eventBuffer int

	mu            sync.RWMutex
	connected     bool
	disconnecting bool
	client        *telegram.Client
	api           *tg.Client
	cancelFunc    context.CancelFunc
	runDone       chan struct{}

	subsMu sync.RWMutex
	subs   map[int64]chan domain.ChannelEvent

	// pacer smooths request bursts at the transport level; the
	// per-account budget is enforced by callers before they reach
	// this client.
	pacer *rate.Limiter

	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewClient creates a new platform client for one account
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.APIID == 0 {
		return nil, fmt.Errorf("APIID is required")
	}
	if opts.APIHash == "" {
		return nil, fmt.Errorf("APIHash is required")
	}
	if opts.Storage == nil {
		return nil, fmt.Errorf("session storage is required")
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}

	return &Client{
		accountID:   opts.AccountID,
		apiID:       opts.APIID,
		apiHash:     opts.APIHash,
		storage:     opts.Storage,
		egress:      opts.Egress,
		eventBuffer: opts.EventBuffer,
		subs:        make(map[int64]chan domain.ChannelEvent),
		pacer:       rate.NewLimiter(rate.Every(time.Second), 10),
		metrics:     opts.Metrics,
		logger: opts.Logger.With().
			Str("component", "mtproto_client").
			Uint("account_id", opts.AccountID).
			Logger(),
	}, nil
}

// AccountID returns the owning account's identifier
func (c *Client) AccountID() uint {
	return c.accountID
}

// Connect dials the platform and starts the client loop. It returns
// once the transport is up; authorization is checked separately by
// Authenticate. The caller should provide a context with a deadline to
// bound the dial.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resetIfDeadLocked() {
		c.logger.Warn().Msg("client loop is dead, redialing")
	} else if c.connected {
		c.logger.Debug().Msg("already connected")
		return nil
	}
	if c.disconnecting {
		return fmt.Errorf("disconnect in progress, cannot connect")
	}

	if c.egress != nil {
		c.logger.Info().Str("egress", c.egress.String()).Msg("connecting through egress")
	} else {
		c.logger.Info().Msg("connecting directly")
	}

	dial, err := newEgressDialer(c.egress)
	if err != nil {
		return err
	}

	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewChannelMessage(c.onChannelMessage)

	tgClient := telegram.NewClient(c.apiID, c.apiHash, telegram.Options{
		SessionStorage: c.storage,
		UpdateHandler:  dispatcher,
		Resolver: dcs.Plain(dcs.PlainOptions{
			Dial: dcs.DialFunc(dial),
		}),
	})

	// The client loop outlives the Connect call; it is bound to its own
	// context and stopped by Disconnect.
	clientCtx, cancel := context.WithCancel(context.Background())

	readyChan := make(chan *tg.Client, 1)
	errChan := make(chan error, 1)
	started := make(chan struct{})
	runDone := make(chan struct{})

	go func() {
		defer close(runDone)
		close(started)
		err := tgClient.Run(clientCtx, func(runCtx context.Context) error {
			select {
			case readyChan <- tgClient.API():
			default:
			}
			<-runCtx.Done()
			return runCtx.Err()
		})
		select {
		case errChan <- err:
		default:
		}
	}()

	<-started

	select {
	case api := <-readyChan:
		c.client = tgClient
		c.api = api
		c.connected = true
		c.cancelFunc = cancel
		c.runDone = runDone
		if c.metrics != nil {
			c.metrics.ActiveConnections.Inc()
		}
		c.logger.Info().Msg("transport connected")
		return nil
	case err := <-errChan:
		cancel()
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrConnectionUnavailable, err)
		}
		return domain.ErrConnectionUnavailable
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// resetIfDeadLocked clears stale connection state left behind when the
// client loop exits on its own. Without this a reconnect would see
// connected=true, skip the dial and then fail every call on the dead
// engine. Caller holds the lock; reports whether state was cleared.
func (c *Client) resetIfDeadLocked() bool {
	if !c.connected || c.runDone == nil {
		return false
	}
	select {
	case <-c.runDone:
	default:
		return false
	}

	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.client = nil
	c.api = nil
	c.connected = false
	c.cancelFunc = nil
	c.runDone = nil
	if c.metrics != nil {
		c.metrics.ActiveConnections.Dec()
	}
	return true
}

// IsConnected reports whether the client loop is up
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return false
	}
	// The loop may have died on its own; the closed done channel is the
	// authoritative signal.
	select {
	case <-c.runDone:
		return false
	default:
		return true
	}
}

// Authenticate verifies the stored session credential and resolves the
// identity behind it with a self-lookup. A connection is not usable for
// monitoring until this succeeds.
func (c *Client) Authenticate(ctx context.Context) (*domain.Identity, error) {
	c.mu.RLock()
	connected := c.connected
	client := c.client
	c.mu.RUnlock()

	if !connected || client == nil {
		return nil, domain.ErrNotConnected
	}

	status, err := client.Auth().Status(ctx)
	if err != nil {
		return nil, c.mapRPCError(err)
	}
	if !status.Authorized {
		return nil, domain.ErrNotAuthenticated
	}

	self, err := client.Self(ctx)
	if err != nil {
		if isAuthError(err) {
			return nil, domain.ErrNotAuthenticated
		}
		return nil, c.mapRPCError(err)
	}

	c.logger.Info().
		Int64("telegram_id", self.ID).
		Str("username", self.Username).
		Msg("session verified")

	return &domain.Identity{
		TelegramID: self.ID,
		Username:   self.Username,
		FirstName:  self.FirstName,
		LastName:   self.LastName,
		Phone:      self.Phone,
	}, nil
}

// Subscribe registers interest in one channel and returns its event
// stream. The stream is closed by Unsubscribe or Disconnect.
func (c *Client) Subscribe(channelID int64) (<-chan domain.ChannelEvent, error) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	if _, exists := c.subs[channelID]; exists {
		return nil, domain.ErrAlreadySubscribed
	}

	ch := make(chan domain.ChannelEvent, c.eventBuffer)
	c.subs[channelID] = ch
	if c.metrics != nil {
		c.metrics.ActiveSubscriptions.Inc()
	}

	c.logger.Debug().Int64("channel_id", channelID).Msg("channel subscribed")
	return ch, nil
}

// Unsubscribe removes a channel subscription and closes its stream
func (c *Client) Unsubscribe(channelID int64) error {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	ch, exists := c.subs[channelID]
	if !exists {
		return domain.ErrNotSubscribed
	}

	delete(c.subs, channelID)
	close(ch)
	if c.metrics != nil {
		c.metrics.ActiveSubscriptions.Dec()
	}

	c.logger.Debug().Int64("channel_id", channelID).Msg("channel unsubscribed")
	return nil
}

// onChannelMessage decodes an incoming channel update and delivers it
// to the matching subscription. The send must never block the update
// dispatcher, so a full buffer drops the event with a warning.
func (c *Client) onChannelMessage(ctx context.Context, e tg.Entities, update *tg.UpdateNewChannelMessage) error {
	event, ok := normalizeMessage(e, update.Message)
	if !ok {
		return nil
	}

	c.subsMu.RLock()
	defer c.subsMu.RUnlock()

	ch, exists := c.subs[event.ChannelID]
	if !exists {
		return nil
	}

	select {
	case ch <- event:
	default:
		if c.metrics != nil {
			c.metrics.EventsDropped.Inc()
		}
		c.logger.Warn().
			Int64("channel_id", event.ChannelID).
			Int64("message_id", event.MessageID).
			Msg("event buffer full, dropping event")
	}
	return nil
}

// JoinChannel resolves a public channel by username and joins it
func (c *Client) JoinChannel(ctx context.Context, username string) (*domain.ChannelInfo, error) {
	api, err := c.apiHandle()
	if err != nil {
		return nil, err
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return nil, fmt.Errorf("pacer wait cancelled: %w", err)
	}

	username = normalizeUsername(username)
	c.logger.Info().Str("channel", username).Msg("joining channel")

	info, input, err := c.resolveUsername(ctx, api, username)
	if err != nil {
		return nil, err
	}

	if _, err := api.ChannelsJoinChannel(ctx, input); err != nil {
		return nil, c.mapRPCError(err)
	}

	c.logger.Info().
		Str("channel", username).
		Int64("telegram_id", info.TelegramID).
		Msg("joined channel")
	return info, nil
}

// LeaveChannel leaves a previously joined channel
func (c *Client) LeaveChannel(ctx context.Context, channelID, accessHash int64) error {
	api, err := c.apiHandle()
	if err != nil {
		return err
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("pacer wait cancelled: %w", err)
	}

	_, err = api.ChannelsLeaveChannel(ctx, &tg.InputChannel{
		ChannelID:  channelID,
		AccessHash: accessHash,
	})
	if err != nil {
		return c.mapRPCError(err)
	}

	c.logger.Info().Int64("telegram_id", channelID).Msg("left channel")
	return nil
}

// ResolveChannel resolves a public channel by username without joining
func (c *Client) ResolveChannel(ctx context.Context, username string) (*domain.ChannelInfo, error) {
	api, err := c.apiHandle()
	if err != nil {
		return nil, err
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return nil, fmt.Errorf("pacer wait cancelled: %w", err)
	}

	username = normalizeUsername(username)
	info, input, err := c.resolveUsername(ctx, api, username)
	if err != nil {
		return nil, err
	}

	// Best effort: the full channel carries the description and an
	// accurate participant count.
	if full, err := api.ChannelsGetFullChannel(ctx, input); err == nil {
		if channelFull, ok := full.FullChat.(*tg.ChannelFull); ok {
			info.About = channelFull.About
			info.Participants = channelFull.ParticipantsCount
		}
	} else {
		c.logger.Debug().Err(err).Str("channel", username).Msg("full channel lookup failed")
	}

	return info, nil
}

// Disconnect stops the client loop, closes every event stream and
// releases resources. Repeated calls are safe.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.disconnecting {
		c.mu.Unlock()
		c.logger.Debug().Msg("disconnect already in progress")
		return nil
	}
	if !c.connected {
		c.mu.Unlock()
		c.logger.Debug().Msg("already disconnected")
		return nil
	}

	c.logger.Info().Msg("disconnecting")
	c.disconnecting = true
	cancelFunc := c.cancelFunc
	runDone := c.runDone
	c.mu.Unlock()

	if cancelFunc != nil {
		cancelFunc()
		if runDone != nil {
			select {
			case <-runDone:
				c.logger.Debug().Msg("client loop stopped")
			case <-ctx.Done():
				c.logger.Warn().Msg("timeout waiting for client loop shutdown")
			}
		}
	}

	c.subsMu.Lock()
	for channelID, ch := range c.subs {
		close(ch)
		delete(c.subs, channelID)
		if c.metrics != nil {
			c.metrics.ActiveSubscriptions.Dec()
		}
	}
	c.subsMu.Unlock()

	c.mu.Lock()
	c.client = nil
	c.api = nil
	c.connected = false
	c.cancelFunc = nil
	c.runDone = nil
	c.disconnecting = false
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.ActiveConnections.Dec()
	}
	c.logger.Info().Msg("disconnected")
	return nil
}

// apiHandle returns the RPC handle of a live connection
func (c *Client) apiHandle() (*tg.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected || c.api == nil {
		return nil, domain.ErrNotConnected
	}
	return c.api, nil
}

// resolveUsername looks up a public channel by username
func (c *Client) resolveUsername(ctx context.Context, api *tg.Client, username string) (*domain.ChannelInfo, *tg.InputChannel, error) {
	resolved, err := api.ContactsResolveUsername(ctx, username)
	if err != nil {
		return nil, nil, c.mapRPCError(err)
	}

	for _, chat := range resolved.Chats {
		if channel, ok := chat.(*tg.Channel); ok {
			info := &domain.ChannelInfo{
				TelegramID:   channel.ID,
				AccessHash:   channel.AccessHash,
				Username:     channel.Username,
				Title:        channel.Title,
				Participants: channel.ParticipantsCount,
			}
			input := &tg.InputChannel{
				ChannelID:  channel.ID,
				AccessHash: channel.AccessHash,
			}
			return info, input, nil
		}
	}

	return nil, nil, fmt.Errorf("resolved peer %q is not a channel", username)
}

// mapRPCError translates platform RPC failures into domain errors
func (c *Client) mapRPCError(err error) error {
	var rpcErr *tgerr.Error
	if errors.As(err, &rpcErr) && rpcErr.Code == 420 {
		c.logger.Warn().
			Int("seconds", rpcErr.Argument).
			Msg("flood wait from platform")
		return fmt.Errorf("%w: retry after %ds", domain.ErrUpstreamThrottled, rpcErr.Argument)
	}
	if isAuthError(err) {
		return domain.ErrNotAuthenticated
	}
	if tgerr.Is(err, "USERNAME_NOT_OCCUPIED", "USERNAME_INVALID", "CHANNEL_PRIVATE", "CHANNEL_INVALID", "INVITE_REQUEST_SENT") {
		return fmt.Errorf("%w: %v", domain.ErrChannelUnavailable, err)
	}
	return err
}

// isAuthError reports whether the error invalidates the stored session
func isAuthError(err error) bool {
	return tgerr.Is(err, "AUTH_KEY_UNREGISTERED", "SESSION_REVOKED", "SESSION_EXPIRED", "USER_DEACTIVATED")
}

// normalizeUsername strips the @ prefix and whitespace
func normalizeUsername(username string) string {
	return strings.TrimPrefix(strings.TrimSpace(username), "@")
}

// Ensure Client implements domain.Conn interface
var _ domain.Conn = (*Client)(nil)
