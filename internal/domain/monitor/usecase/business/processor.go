package business

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/supersunho/senseinfo/internal/domain"
	channelentities "github.com/supersunho/senseinfo/internal/domain/channel/entities"
	messageentities "github.com/supersunho/senseinfo/internal/domain/message/entities"
	"github.com/supersunho/senseinfo/internal/domain/monitor/deps"
	monitorerrors "github.com/supersunho/senseinfo/internal/domain/monitor/errors"
	"github.com/supersunho/senseinfo/internal/infrastructure/metrics"
)

// State is the lifecycle state of one account's processor
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

const (
	reconnectBackoff = 5 * time.Second
	errorBackoff     = 10 * time.Second
	throttleBackoff  = 30 * time.Second
	persistTimeout   = 30 * time.Second
)

// watch binds one subscribed channel to its compiled keyword rules.
// Matching is case-insensitive substring, so the lowered forms are
// computed once at start.
type watch struct {
	channel channelentities.MonitoredChannel
	include []compiledRule
	exclude []string
}

type compiledRule struct {
	word    string
	lowered string
}

// ProcessorOptions holds construction parameters for a Processor
type ProcessorOptions struct {
	AccountID    uint
	Conns        domain.ConnectionManager
	Limiter      domain.RateLimiter
	Repo         deps.MonitorRepository
	Forwarder    domain.Forwarder
	PollInterval time.Duration
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger
}

// Processor runs the message pipeline of one account. Start subscribes
// every monitored channel with at least one active rule and spawns one
// consumer goroutine per channel plus one supervisory goroutine that
// keeps the connection warm. Consumers drain their channel's event
// stream sequentially, so persistence order matches arrival order per
// channel; no ordering holds across channels.
type Processor struct {
	accountID    uint
	conns        domain.ConnectionManager
	limiter      domain.RateLimiter
	repo         deps.MonitorRepository
	forwarder    domain.Forwarder
	pollInterval time.Duration
	metrics      *metrics.Metrics
	logger       zerolog.Logger

	mu             sync.Mutex
	state          State
	conn           domain.Conn
	watches        []*watch
	cancel         context.CancelFunc
	supervisorDone chan struct{}
	consumers      sync.WaitGroup
}

// NewProcessor creates a stopped processor for one account
func NewProcessor(opts ProcessorOptions) *Processor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	return &Processor{
		accountID:    opts.AccountID,
		conns:        opts.Conns,
		limiter:      opts.Limiter,
		repo:         opts.Repo,
		forwarder:    opts.Forwarder,
		pollInterval: opts.PollInterval,
		metrics:      opts.Metrics,
		logger: opts.Logger.With().
			Str("component", "message_processor").
			Uint("account_id", opts.AccountID).
			Logger(),
		state: StateStopped,
	}
}

// AccountID returns the owning account's identifier
func (p *Processor) AccountID() uint {
	return p.accountID
}

// State returns the current lifecycle state
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Watches returns a snapshot of the subscribed channels and their rule
// counts. Empty unless the processor is running.
func (p *Processor) Watches() []WatchInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]WatchInfo, 0, len(p.watches))
	for _, w := range p.watches {
		out = append(out, WatchInfo{
			ChannelID:  w.channel.ID,
			Username:   w.channel.Username,
			Inclusions: len(w.include),
			Exclusions: len(w.exclude),
		})
	}
	return out
}

// WatchInfo describes one subscribed channel
type WatchInfo struct {
	ChannelID  uint
	Username   string
	Inclusions int
	Exclusions int
}

// Start brings the processor to Running. Starting a running processor
// is a warned no-op; a failed start leaves it Stopped and returns the
// error to the caller.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	switch p.state {
	case StateRunning:
		p.mu.Unlock()
		p.logger.Warn().Msg("processor already running")
		return nil
	case StateStarting, StateStopping:
		p.mu.Unlock()
		return monitorerrors.ErrStartInProgress
	}
	p.state = StateStarting
	p.mu.Unlock()

	if err := p.start(ctx); err != nil {
		p.mu.Lock()
		p.state = StateStopped
		p.mu.Unlock()
		return err
	}
	return nil
}

func (p *Processor) start(ctx context.Context) error {
	if err := p.limiter.Acquire(ctx, p.accountID); err != nil {
		return err
	}
	conn, err := p.conns.Acquire(ctx, p.accountID)
	if err != nil {
		return err
	}

	channels, err := p.repo.ListMonitoredChannels(ctx, p.accountID)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		p.logger.Warn().Msg("no monitored channels, processor will idle")
	}

	var watches []*watch
	for i := range channels {
		w, err := p.buildWatch(ctx, &channels[i])
		if err != nil {
			return err
		}
		if w != nil {
			watches = append(watches, w)
		}
	}

	p.mu.Lock()
	p.conn = conn
	p.watches = watches
	p.mu.Unlock()

	for _, w := range watches {
		if err := p.subscribe(conn, w); err != nil {
			p.logger.Warn().Err(err).
				Str("channel", w.channel.Username).
				Msg("subscription failed, channel skipped")
		}
	}

	supCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.supervisorDone = done
	p.state = StateRunning
	p.mu.Unlock()

	go p.supervise(supCtx, done)

	if p.metrics != nil {
		p.metrics.ActiveProcessors.Inc()
	}
	p.logger.Info().Int("channels", len(watches)).Msg("processor started")
	return nil
}

// buildWatch loads and compiles a channel's rules. Channels without any
// active rule are never monitored; channels not yet resolved against the
// platform cannot be subscribed. Both are skipped with a warning.
func (p *Processor) buildWatch(ctx context.Context, ch *channelentities.MonitoredChannel) (*watch, error) {
	if ch.TelegramID == nil {
		p.logger.Warn().
			Str("channel", ch.Username).
			Msg("channel not resolved against the platform, skipping")
		return nil, nil
	}

	rules, err := p.repo.ListActiveKeywords(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		p.logger.Warn().
			Str("channel", ch.Username).
			Msg("channel has no active keywords, skipping")
		return nil, nil
	}

	w := &watch{channel: *ch}
	for _, r := range rules {
		if r.IsInclusion {
			w.include = append(w.include, compiledRule{
				word:    r.Word,
				lowered: strings.ToLower(r.Word),
			})
		} else {
			w.exclude = append(w.exclude, strings.ToLower(r.Word))
		}
	}
	return w, nil
}

// subscribe opens the channel's event stream and spawns its consumer.
// The consumer exits when the stream is closed by Unsubscribe or by the
// connection dropping.
func (p *Processor) subscribe(conn domain.Conn, w *watch) error {
	events, err := conn.Subscribe(*w.channel.TelegramID)
	if err != nil {
		return err
	}

	p.consumers.Add(1)
	go func() {
		defer p.consumers.Done()
		for event := range events {
			p.handleEvent(w, event)
		}
	}()
	return nil
}

// handleEvent filters one incoming event against the channel's rules
// and persists a match. Nothing here may break the subscription: a
// failed persist is logged and the event dropped.
func (p *Processor) handleEvent(w *watch, event domain.ChannelEvent) {
	if p.metrics != nil {
		p.metrics.EventsProcessed.Inc()
	}

	if event.Text == "" {
		p.discard("no_text")
		return
	}

	text := strings.ToLower(event.Text)

	// Exclusion takes strict precedence over inclusion.
	for _, word := range w.exclude {
		if strings.Contains(text, word) {
			p.discard("excluded")
			return
		}
	}

	var matched []string
	for _, rule := range w.include {
		if strings.Contains(text, rule.lowered) {
			matched = append(matched, rule.word)
		}
	}
	if len(matched) == 0 {
		p.discard("no_match")
		return
	}

	msg := &messageentities.StoredMessage{
		TelegramMessageID: event.MessageID,
		Text:              event.Text,
		RawText:           event.Text,
		SenderID:          event.Sender.ID,
		SenderUsername:    event.Sender.Username,
		SenderName:        event.Sender.DisplayName,
		MediaType:         string(event.Media),
		Views:             event.Views,
		Forwards:          event.Forwards,
		MatchedKeywords:   matched,
		MessageDate:       event.Date,
		EditDate:          event.EditDate,
		ChannelID:         w.channel.ID,
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := p.repo.PersistMatch(ctx, msg, w.channel.AccountID); err != nil {
		if p.metrics != nil {
			p.metrics.PersistFailures.Inc()
		}
		p.logger.Error().Err(err).
			Str("channel", w.channel.Username).
			Int64("message_id", event.MessageID).
			Msg("persist failed, event dropped")
		return
	}

	if p.metrics != nil {
		p.metrics.EventsMatched.Inc()
	}
	p.logger.Debug().
		Str("channel", w.channel.Username).
		Int64("message_id", event.MessageID).
		Strs("keywords", matched).
		Msg("message captured")

	p.forward(ctx, w, msg)
}

// forward hands a captured message to the forwarding hook. Failures are
// logged only; the persisted record is already committed.
func (p *Processor) forward(ctx context.Context, w *watch, msg *messageentities.StoredMessage) {
	if p.forwarder == nil {
		return
	}

	err := p.forwarder.Forward(ctx, domain.ForwardEvent{
		AccountID:         w.channel.AccountID,
		ChannelID:         w.channel.ID,
		ChannelUsername:   w.channel.Username,
		TelegramMessageID: msg.TelegramMessageID,
		Text:              msg.Text,
		MatchedKeywords:   msg.MatchedKeywords,
		MessageDate:       msg.MessageDate,
	})
	if err != nil {
		if p.metrics != nil {
			p.metrics.ForwardErrors.Inc()
		}
		p.logger.Warn().Err(err).
			Int64("message_id", msg.TelegramMessageID).
			Msg("forwarding failed")
		return
	}

	if p.metrics != nil {
		p.metrics.MessagesForwarded.Inc()
	}
	if err := p.repo.MarkForwarded(ctx, msg.ID, p.forwarder.Destination(), time.Now()); err != nil {
		p.logger.Warn().Err(err).
			Uint("stored_id", msg.ID).
			Msg("could not record forwarding")
	}
}

func (p *Processor) discard(reason string) {
	if p.metrics != nil {
		p.metrics.RecordDiscard(reason)
	}
}

// supervise keeps the account's connection warm while the processor is
// running. A healthy connection means one poll-interval sleep; a dead
// one triggers a single reconnect attempt followed by a short backoff.
// Losing the credential during a reconnect stops the processor for
// good, anything else just widens the backoff.
func (p *Processor) supervise(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}

		p.mu.Lock()
		conn := p.conn
		p.mu.Unlock()

		if conn != nil && conn.IsConnected() {
			sleepCtx(ctx, p.pollInterval)
			continue
		}

		p.logger.Warn().Msg("connection down, attempting reconnect")
		err := p.reconnect(ctx)
		switch {
		case err == nil:
			sleepCtx(ctx, reconnectBackoff)
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, domain.ErrNotAuthenticated):
			p.logger.Error().Msg("credential lost during reconnect, stopping processor")
			// State mutation cannot happen on the supervisor itself:
			// Stop awaits the supervisor's exit.
			go func() {
				if err := p.Stop(context.Background()); err != nil {
					p.logger.Error().Err(err).Msg("self-stop failed")
				}
			}()
			return
		case errors.Is(err, domain.ErrUpstreamThrottled):
			p.logger.Warn().Err(err).Msg("reconnect throttled upstream")
			sleepCtx(ctx, throttleBackoff)
		default:
			p.logger.Error().Err(err).Msg("reconnect failed")
			sleepCtx(ctx, errorBackoff)
		}
	}
}

// reconnect reacquires the account's connection through the manager.
// When the manager had to evict and rebuild, the new connection carries
// no subscriptions, so every watch is resubscribed on it.
func (p *Processor) reconnect(ctx context.Context) error {
	if err := p.limiter.Acquire(ctx, p.accountID); err != nil {
		return err
	}
	conn, err := p.conns.Acquire(ctx, p.accountID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	previous := p.conn
	p.conn = conn
	watches := p.watches
	p.mu.Unlock()

	if conn == previous {
		return nil
	}

	p.logger.Info().Msg("connection replaced, resubscribing channels")
	for _, w := range watches {
		if err := p.subscribe(conn, w); err != nil && !errors.Is(err, domain.ErrAlreadySubscribed) {
			p.logger.Warn().Err(err).
				Str("channel", w.channel.Username).
				Msg("resubscription failed")
		}
	}
	return nil
}

// Stop cancels the supervisor, tears down every subscription and waits
// for the consumers to drain. In-flight event handling completes; only
// the supervisory task is cancelled. Stopping a non-running processor
// is a no-op.
func (p *Processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateRunning {
		p.mu.Unlock()
		p.logger.Debug().Msg("processor not running, nothing to stop")
		return nil
	}
	p.state = StateStopping
	cancel := p.cancel
	done := p.supervisorDone
	conn := p.conn
	watches := p.watches
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			p.logger.Warn().Msg("timeout waiting for supervisor shutdown")
		}
	}

	for _, w := range watches {
		if conn == nil {
			break
		}
		if err := conn.Unsubscribe(*w.channel.TelegramID); err != nil && !errors.Is(err, domain.ErrNotSubscribed) {
			p.logger.Warn().Err(err).
				Str("channel", w.channel.Username).
				Msg("unsubscribe failed")
		}
	}

	p.consumers.Wait()

	p.mu.Lock()
	p.conn = nil
	p.watches = nil
	p.cancel = nil
	p.supervisorDone = nil
	p.state = StateStopped
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.ActiveProcessors.Dec()
	}
	p.logger.Info().Msg("processor stopped")
	return nil
}

// sleepCtx suspends for d or until the context is cancelled
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
