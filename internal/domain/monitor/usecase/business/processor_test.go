package business

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/supersunho/senseinfo/internal/domain"
	channelentities "github.com/supersunho/senseinfo/internal/domain/channel/entities"
	keywordentities "github.com/supersunho/senseinfo/internal/domain/keyword/entities"
	messageentities "github.com/supersunho/senseinfo/internal/domain/message/entities"
	"github.com/supersunho/senseinfo/internal/infrastructure/metrics"
)

// fakeConn is an in-memory domain.Conn whose event streams tests feed
// directly.
type fakeConn struct {
	mu             sync.Mutex
	connected      bool
	subs           map[int64]chan domain.ChannelEvent
	subscribeCalls int
	unsubscribed   []int64
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		connected: true,
		subs:      make(map[int64]chan domain.ChannelEvent),
	}
}

func (c *fakeConn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return nil
}

func (c *fakeConn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeConn) Authenticate(ctx context.Context) (*domain.Identity, error) {
	return &domain.Identity{TelegramID: 1}, nil
}

func (c *fakeConn) Subscribe(channelID int64) (<-chan domain.ChannelEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.subs[channelID]; exists {
		return nil, domain.ErrAlreadySubscribed
	}
	ch := make(chan domain.ChannelEvent, 16)
	c.subs[channelID] = ch
	c.subscribeCalls++
	return ch, nil
}

func (c *fakeConn) Unsubscribe(channelID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, exists := c.subs[channelID]
	if !exists {
		return domain.ErrNotSubscribed
	}
	delete(c.subs, channelID)
	close(ch)
	c.unsubscribed = append(c.unsubscribed, channelID)
	return nil
}

func (c *fakeConn) JoinChannel(ctx context.Context, username string) (*domain.ChannelInfo, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeConn) LeaveChannel(ctx context.Context, channelID, accessHash int64) error {
	return nil
}

func (c *fakeConn) ResolveChannel(ctx context.Context, username string) (*domain.ChannelInfo, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeConn) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	return nil
}

func (c *fakeConn) deliver(channelID int64, event domain.ChannelEvent) {
	c.mu.Lock()
	ch := c.subs[channelID]
	c.mu.Unlock()
	ch <- event
}

func (c *fakeConn) subCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

type fakeManager struct {
	mu       sync.Mutex
	conn     domain.Conn
	err      error
	acquires int
	released []uint
}

func (m *fakeManager) Acquire(ctx context.Context, accountID uint) (domain.Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquires++
	if m.err != nil {
		return nil, m.err
	}
	return m.conn, nil
}

func (m *fakeManager) Release(ctx context.Context, accountID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, accountID)
}

func (m *fakeManager) ReleaseAll(ctx context.Context) {}

func (m *fakeManager) ActiveCount() int { return 0 }

type fakeLimiter struct {
	mu       sync.Mutex
	acquires int
}

func (l *fakeLimiter) Acquire(ctx context.Context, accountID uint) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquires++
	return nil
}

func (l *fakeLimiter) Remaining(accountID uint) int { return 30 }

func (l *fakeLimiter) Reset(accountID uint) {}

type fakeRepo struct {
	mu        sync.Mutex
	channels  []channelentities.MonitoredChannel
	keywords  map[uint][]keywordentities.KeywordRule
	persisted []messageentities.StoredMessage
	forwarded []uint
	failNext  bool
}

func (r *fakeRepo) ListMonitoredChannels(ctx context.Context, accountID uint) ([]channelentities.MonitoredChannel, error) {
	return r.channels, nil
}

func (r *fakeRepo) ListActiveKeywords(ctx context.Context, channelID uint) ([]keywordentities.KeywordRule, error) {
	return r.keywords[channelID], nil
}

func (r *fakeRepo) PersistMatch(ctx context.Context, msg *messageentities.StoredMessage, accountID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return errors.New("persist failed")
	}
	msg.ID = uint(len(r.persisted) + 1)
	r.persisted = append(r.persisted, *msg)
	return nil
}

func (r *fakeRepo) MarkForwarded(ctx context.Context, messageID uint, destination string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forwarded = append(r.forwarded, messageID)
	return nil
}

func (r *fakeRepo) persistedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.persisted)
}

func (r *fakeRepo) persistedAt(i int) messageentities.StoredMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persisted[i]
}

type fakeForwarder struct {
	mu     sync.Mutex
	events []domain.ForwardEvent
	err    error
}

func (f *fakeForwarder) Forward(ctx context.Context, event domain.ForwardEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeForwarder) Destination() string { return "test" }

func (f *fakeForwarder) Healthy() bool { return true }

func (f *fakeForwarder) Close() error { return nil }

func testMetrics() *metrics.Metrics {
	return metrics.NewMetricsWith(prometheus.NewRegistry())
}

func int64Ptr(v int64) *int64 { return &v }

func testChannel(id uint, telegramID int64, username string) channelentities.MonitoredChannel {
	return channelentities.MonitoredChannel{
		ID:           id,
		Username:     username,
		TelegramID:   int64Ptr(telegramID),
		IsActive:     true,
		IsMonitoring: true,
		AccountID:    7,
	}
}

func rule(channelID uint, word string, inclusion bool) keywordentities.KeywordRule {
	return keywordentities.KeywordRule{
		Word:        word,
		IsInclusion: inclusion,
		IsActive:    true,
		ChannelID:   channelID,
	}
}

type fixture struct {
	conn      *fakeConn
	manager   *fakeManager
	limiter   *fakeLimiter
	repo      *fakeRepo
	forwarder *fakeForwarder
	proc      *Processor
}

func newFixture(repo *fakeRepo) *fixture {
	conn := newFakeConn()
	manager := &fakeManager{conn: conn}
	limiter := &fakeLimiter{}
	forwarder := &fakeForwarder{}

	proc := NewProcessor(ProcessorOptions{
		AccountID:    7,
		Conns:        manager,
		Limiter:      limiter,
		Repo:         repo,
		Forwarder:    forwarder,
		PollInterval: 20 * time.Millisecond,
		Metrics:      testMetrics(),
		Logger:       zerolog.Nop(),
	})

	return &fixture{
		conn:      conn,
		manager:   manager,
		limiter:   limiter,
		repo:      repo,
		forwarder: forwarder,
		proc:      proc,
	}
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestProcessorInclusionMatch(t *testing.T) {
	repo := &fakeRepo{
		channels: []channelentities.MonitoredChannel{testChannel(1, 100, "news")},
		keywords: map[uint][]keywordentities.KeywordRule{
			1: {rule(1, "urgent", true)},
		},
	}
	f := newFixture(repo)

	if err := f.proc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.proc.Stop(context.Background())

	f.conn.deliver(100, domain.ChannelEvent{
		ChannelID: 100,
		MessageID: 42,
		Text:      "this is Urgent news",
		Date:      time.Now(),
	})

	waitFor(t, func() bool { return repo.persistedCount() == 1 }, "message not persisted")

	msg := repo.persistedAt(0)
	if len(msg.MatchedKeywords) != 1 || msg.MatchedKeywords[0] != "urgent" {
		t.Errorf("matched keywords = %v, want [urgent]", msg.MatchedKeywords)
	}
	if msg.Text != msg.RawText {
		t.Errorf("Text %q and RawText %q must be identical at capture", msg.Text, msg.RawText)
	}
	if msg.ChannelID != 1 {
		t.Errorf("ChannelID = %d, want 1", msg.ChannelID)
	}
	if msg.TelegramMessageID != 42 {
		t.Errorf("TelegramMessageID = %d, want 42", msg.TelegramMessageID)
	}
}

func TestProcessorExclusionPrecedence(t *testing.T) {
	repo := &fakeRepo{
		channels: []channelentities.MonitoredChannel{testChannel(1, 100, "deals")},
		keywords: map[uint][]keywordentities.KeywordRule{
			1: {rule(1, "sale", true), rule(1, "scam", false)},
		},
	}
	f := newFixture(repo)

	if err := f.proc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.proc.Stop(context.Background())

	f.conn.deliver(100, domain.ChannelEvent{
		ChannelID: 100,
		MessageID: 1,
		Text:      "big sale but it's a scam",
		Date:      time.Now(),
	})
	// A clean match afterwards proves the excluded event was discarded
	// rather than still in flight.
	f.conn.deliver(100, domain.ChannelEvent{
		ChannelID: 100,
		MessageID: 2,
		Text:      "spring sale starts now",
		Date:      time.Now(),
	})

	waitFor(t, func() bool { return repo.persistedCount() == 1 }, "follow-up message not persisted")

	if got := repo.persistedAt(0).TelegramMessageID; got != 2 {
		t.Errorf("persisted message id = %d, want 2 (excluded event must be discarded)", got)
	}
}

func TestProcessorSkipsEventsWithoutText(t *testing.T) {
	repo := &fakeRepo{
		channels: []channelentities.MonitoredChannel{testChannel(1, 100, "pics")},
		keywords: map[uint][]keywordentities.KeywordRule{
			1: {rule(1, "photo", true)},
		},
	}
	f := newFixture(repo)

	if err := f.proc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.proc.Stop(context.Background())

	f.conn.deliver(100, domain.ChannelEvent{ChannelID: 100, MessageID: 1, Media: domain.MediaPhoto})
	f.conn.deliver(100, domain.ChannelEvent{ChannelID: 100, MessageID: 2, Text: "photo dump", Date: time.Now()})

	waitFor(t, func() bool { return repo.persistedCount() == 1 }, "text message not persisted")

	if got := repo.persistedAt(0).TelegramMessageID; got != 2 {
		t.Errorf("persisted message id = %d, want 2", got)
	}
}

func TestProcessorSkipsChannelsWithoutRules(t *testing.T) {
	repo := &fakeRepo{
		channels: []channelentities.MonitoredChannel{
			testChannel(1, 100, "ruled"),
			testChannel(2, 200, "unruled"),
		},
		keywords: map[uint][]keywordentities.KeywordRule{
			1: {rule(1, "go", true)},
		},
	}
	f := newFixture(repo)

	if err := f.proc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.proc.Stop(context.Background())

	if got := f.conn.subCount(); got != 1 {
		t.Errorf("subscriptions = %d, want 1 (zero-rule channel must never be subscribed)", got)
	}
	watches := f.proc.Watches()
	if len(watches) != 1 || watches[0].Username != "ruled" {
		t.Errorf("watches = %+v, want only the ruled channel", watches)
	}
}

func TestProcessorSkipsUnresolvedChannels(t *testing.T) {
	unresolved := testChannel(2, 0, "pending")
	unresolved.TelegramID = nil

	repo := &fakeRepo{
		channels: []channelentities.MonitoredChannel{testChannel(1, 100, "ready"), unresolved},
		keywords: map[uint][]keywordentities.KeywordRule{
			1: {rule(1, "go", true)},
			2: {rule(2, "go", true)},
		},
	}
	f := newFixture(repo)

	if err := f.proc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.proc.Stop(context.Background())

	if got := f.conn.subCount(); got != 1 {
		t.Errorf("subscriptions = %d, want 1", got)
	}
}

func TestProcessorPersistFailureKeepsSubscription(t *testing.T) {
	repo := &fakeRepo{
		channels: []channelentities.MonitoredChannel{testChannel(1, 100, "news")},
		keywords: map[uint][]keywordentities.KeywordRule{
			1: {rule(1, "alert", true)},
		},
		failNext: true,
	}
	f := newFixture(repo)

	if err := f.proc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.proc.Stop(context.Background())

	f.conn.deliver(100, domain.ChannelEvent{ChannelID: 100, MessageID: 1, Text: "alert one", Date: time.Now()})
	f.conn.deliver(100, domain.ChannelEvent{ChannelID: 100, MessageID: 2, Text: "alert two", Date: time.Now()})

	waitFor(t, func() bool { return repo.persistedCount() == 1 }, "subscription did not survive persist failure")

	if got := repo.persistedAt(0).TelegramMessageID; got != 2 {
		t.Errorf("persisted message id = %d, want 2", got)
	}
}

func TestProcessorForwardFailureDoesNotAffectRecord(t *testing.T) {
	repo := &fakeRepo{
		channels: []channelentities.MonitoredChannel{testChannel(1, 100, "news")},
		keywords: map[uint][]keywordentities.KeywordRule{
			1: {rule(1, "alert", true)},
		},
	}
	f := newFixture(repo)
	f.forwarder.err = errors.New("broker down")

	if err := f.proc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.proc.Stop(context.Background())

	f.conn.deliver(100, domain.ChannelEvent{ChannelID: 100, MessageID: 1, Text: "alert", Date: time.Now()})

	waitFor(t, func() bool { return repo.persistedCount() == 1 }, "message not persisted")

	repo.mu.Lock()
	forwarded := len(repo.forwarded)
	repo.mu.Unlock()
	if forwarded != 0 {
		t.Errorf("MarkForwarded called %d times after a failed forward, want 0", forwarded)
	}
}

func TestProcessorForwardSuccessMarksRecord(t *testing.T) {
	repo := &fakeRepo{
		channels: []channelentities.MonitoredChannel{testChannel(1, 100, "news")},
		keywords: map[uint][]keywordentities.KeywordRule{
			1: {rule(1, "alert", true)},
		},
	}
	f := newFixture(repo)

	if err := f.proc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.proc.Stop(context.Background())

	f.conn.deliver(100, domain.ChannelEvent{ChannelID: 100, MessageID: 1, Text: "alert", Date: time.Now()})

	waitFor(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.forwarded) == 1
	}, "forward not recorded")

	f.forwarder.mu.Lock()
	defer f.forwarder.mu.Unlock()
	if len(f.forwarder.events) != 1 {
		t.Fatalf("forwarder received %d events, want 1", len(f.forwarder.events))
	}
	if got := f.forwarder.events[0].MatchedKeywords; len(got) != 1 || got[0] != "alert" {
		t.Errorf("forwarded keywords = %v, want [alert]", got)
	}
}

func TestProcessorStartIdempotent(t *testing.T) {
	repo := &fakeRepo{
		channels: []channelentities.MonitoredChannel{testChannel(1, 100, "news")},
		keywords: map[uint][]keywordentities.KeywordRule{
			1: {rule(1, "go", true)},
		},
	}
	f := newFixture(repo)

	if err := f.proc.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer f.proc.Stop(context.Background())

	if err := f.proc.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	f.conn.mu.Lock()
	calls := f.conn.subscribeCalls
	f.conn.mu.Unlock()
	if calls != 1 {
		t.Errorf("subscribe calls = %d, want 1 (no duplicate subscriptions)", calls)
	}
	if got := f.proc.State(); got != StateRunning {
		t.Errorf("state = %s, want %s", got, StateRunning)
	}
}

func TestProcessorStartFailureLeavesStopped(t *testing.T) {
	repo := &fakeRepo{}
	f := newFixture(repo)
	f.manager.err = domain.ErrNotAuthenticated

	err := f.proc.Start(context.Background())
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("Start error = %v, want ErrNotAuthenticated", err)
	}
	if got := f.proc.State(); got != StateStopped {
		t.Errorf("state = %s, want %s after failed start", got, StateStopped)
	}
}

func TestProcessorStopUnsubscribesAndDrains(t *testing.T) {
	repo := &fakeRepo{
		channels: []channelentities.MonitoredChannel{testChannel(1, 100, "news")},
		keywords: map[uint][]keywordentities.KeywordRule{
			1: {rule(1, "go", true)},
		},
	}
	f := newFixture(repo)

	if err := f.proc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// An event already in the buffer must still be handled: in-flight
	// work completes, only the supervisor is cancelled.
	f.conn.deliver(100, domain.ChannelEvent{ChannelID: 100, MessageID: 1, Text: "go time", Date: time.Now()})

	if err := f.proc.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got := f.proc.State(); got != StateStopped {
		t.Errorf("state = %s, want %s", got, StateStopped)
	}
	if got := f.conn.subCount(); got != 0 {
		t.Errorf("live subscriptions after stop = %d, want 0", got)
	}
	if repo.persistedCount() != 1 {
		t.Errorf("buffered event not processed before stop, persisted = %d", repo.persistedCount())
	}

	// Stopping again is a no-op.
	if err := f.proc.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestProcessorRateLimitedBeforeAcquire(t *testing.T) {
	repo := &fakeRepo{
		channels: []channelentities.MonitoredChannel{testChannel(1, 100, "news")},
		keywords: map[uint][]keywordentities.KeywordRule{
			1: {rule(1, "go", true)},
		},
	}
	f := newFixture(repo)

	if err := f.proc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.proc.Stop(context.Background())

	f.limiter.mu.Lock()
	acquires := f.limiter.acquires
	f.limiter.mu.Unlock()
	if acquires == 0 {
		t.Error("rate limiter was never consulted before the platform call")
	}
}

func TestProcessorSupervisorReconnects(t *testing.T) {
	repo := &fakeRepo{
		channels: []channelentities.MonitoredChannel{testChannel(1, 100, "news")},
		keywords: map[uint][]keywordentities.KeywordRule{
			1: {rule(1, "go", true)},
		},
	}
	f := newFixture(repo)

	if err := f.proc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.proc.Stop(context.Background())

	f.manager.mu.Lock()
	before := f.manager.acquires
	f.manager.mu.Unlock()

	// Kill the transport; the manager "revives" it on the next Acquire.
	f.conn.mu.Lock()
	f.conn.connected = false
	f.conn.mu.Unlock()

	waitFor(t, func() bool {
		f.manager.mu.Lock()
		defer f.manager.mu.Unlock()
		return f.manager.acquires > before
	}, "supervisor never attempted a reconnect")

	f.conn.mu.Lock()
	f.conn.connected = true
	f.conn.mu.Unlock()
}
