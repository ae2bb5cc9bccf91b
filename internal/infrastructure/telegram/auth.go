package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"

	"github.com/supersunho/senseinfo/internal/domain"
	accounterrors "github.com/supersunho/senseinfo/internal/domain/account/errors"
	"github.com/supersunho/senseinfo/internal/infrastructure/logger"
)

// SendCode requests a confirmation code for the phone and returns the
// code hash needed to complete sign-in.
func (c *Client) SendCode(ctx context.Context, phone string) (string, error) {
	c.mu.RLock()
	connected := c.connected
	client := c.client
	c.mu.RUnlock()

	if !connected || client == nil {
		return "", domain.ErrNotConnected
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return "", fmt.Errorf("pacer wait cancelled: %w", err)
	}

	sent, err := client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
	if err != nil {
		if tgerr.Is(err, "PHONE_NUMBER_INVALID", "PHONE_NUMBER_BANNED") {
			return "", accounterrors.ErrPhoneInvalid
		}
		return "", c.mapRPCError(err)
	}

	code, ok := sent.(*tg.AuthSentCode)
	if !ok {
		return "", fmt.Errorf("unexpected sent code response %T", sent)
	}

	c.logger.Info().Msg("confirmation code sent")
	return code.PhoneCodeHash, nil
}

// SignIn completes phone sign-in with the confirmation code. Accounts
// with two-factor auth enabled fail with ErrPasswordRequired and must
// continue via SignInWithPassword.
func (c *Client) SignIn(ctx context.Context, phone, code, codeHash string) (*domain.Identity, error) {
	c.mu.RLock()
	connected := c.connected
	client := c.client
	c.mu.RUnlock()

	if !connected || client == nil {
		return nil, domain.ErrNotConnected
	}

	_, err := client.Auth().SignIn(ctx, phone, code, codeHash)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrPasswordAuthNeeded):
			return nil, accounterrors.ErrPasswordRequired
		case tgerr.Is(err, "PHONE_CODE_INVALID"):
			return nil, accounterrors.ErrCodeInvalid
		case tgerr.Is(err, "PHONE_CODE_EXPIRED"):
			return nil, accounterrors.ErrCodeExpired
		default:
			return nil, c.mapRPCError(err)
		}
	}

	return c.Authenticate(ctx)
}

// SignInWithPassword finishes a sign-in paused on two-factor auth
func (c *Client) SignInWithPassword(ctx context.Context, password string) (*domain.Identity, error) {
	c.mu.RLock()
	connected := c.connected
	client := c.client
	c.mu.RUnlock()

	if !connected || client == nil {
		return nil, domain.ErrNotConnected
	}

	_, err := client.Auth().Password(ctx, password)
	if err != nil {
		if tgerr.Is(err, "PASSWORD_HASH_INVALID") {
			return nil, accounterrors.ErrPasswordInvalid
		}
		return nil, c.mapRPCError(err)
	}

	return c.Authenticate(ctx)
}

// ClientFactory creates a client bound to one account's session storage
type ClientFactory func(accountID uint) (*Client, error)

// pendingLogin is one in-flight phone sign-in. Its client stays
// connected between the code request and the completing call so the
// exchange happens on a single session.
type pendingLogin struct {
	accountID uint
	phone     string
	codeHash  string
	client    *Client
	expiresAt time.Time
}

// AuthManager drives staged phone logins. At most one pending login
// exists per phone; abandoned logins are evicted by a janitor after
// the TTL.
type AuthManager struct {
	mu      sync.Mutex
	pending map[string]*pendingLogin
	factory ClientFactory
	ttl     time.Duration
	done    chan struct{}
	wg      sync.WaitGroup
	logger  zerolog.Logger
}

// NewAuthManager creates an auth manager and starts its janitor
func NewAuthManager(factory ClientFactory, ttl time.Duration, log zerolog.Logger) *AuthManager {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	m := &AuthManager{
		pending: make(map[string]*pendingLogin),
		factory: factory,
		ttl:     ttl,
		done:    make(chan struct{}),
		logger:  log.With().Str("component", "auth_manager").Logger(),
	}

	m.wg.Add(1)
	go m.janitor()

	return m
}

// SendCode starts a login for the account: connects a fresh client and
// requests a confirmation code for the phone.
func (m *AuthManager) SendCode(ctx context.Context, accountID uint, phone string) error {
	m.mu.Lock()
	if p, exists := m.pending[phone]; exists {
		if time.Now().Before(p.expiresAt) {
			m.mu.Unlock()
			return accounterrors.ErrLoginInProgress
		}
		delete(m.pending, phone)
		m.mu.Unlock()
		m.closePending(p)
	} else {
		m.mu.Unlock()
	}

	client, err := m.factory(accountID)
	if err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("%w: %v", accounterrors.ErrTelegramConnection, err)
	}

	codeHash, err := client.SendCode(ctx, phone)
	if err != nil {
		m.closePendingClient(client)
		return err
	}

	m.mu.Lock()
	m.pending[phone] = &pendingLogin{
		accountID: accountID,
		phone:     phone,
		codeHash:  codeHash,
		client:    client,
		expiresAt: time.Now().Add(m.ttl),
	}
	m.mu.Unlock()

	m.logger.Info().
		Uint("account_id", accountID).
		Str("phone", logger.MaskPhone(phone)).
		Msg("login started, code sent")
	return nil
}

// VerifyCode submits the confirmation code for a pending login. The
// pending entry survives a rejected code (the user may retry) and a
// 2FA escalation (SubmitPassword continues it); success removes it.
func (m *AuthManager) VerifyCode(ctx context.Context, phone, code string) (*domain.Identity, error) {
	p, err := m.load(phone)
	if err != nil {
		return nil, err
	}

	identity, err := p.client.SignIn(ctx, phone, code, p.codeHash)
	if err != nil {
		return nil, err
	}

	m.finish(p)
	return identity, nil
}

// SubmitPassword completes a pending login paused on two-factor auth
func (m *AuthManager) SubmitPassword(ctx context.Context, phone, password string) (*domain.Identity, error) {
	p, err := m.load(phone)
	if err != nil {
		return nil, err
	}

	identity, err := p.client.SignInWithPassword(ctx, password)
	if err != nil {
		return nil, err
	}

	m.finish(p)
	return identity, nil
}

// Cancel abandons a pending login for the phone
func (m *AuthManager) Cancel(phone string) {
	m.mu.Lock()
	p, exists := m.pending[phone]
	if exists {
		delete(m.pending, phone)
	}
	m.mu.Unlock()

	if exists {
		m.closePending(p)
		m.logger.Info().Str("phone", logger.MaskPhone(phone)).Msg("pending login cancelled")
	}
}

// Stop halts the janitor and abandons every pending login
func (m *AuthManager) Stop() {
	close(m.done)
	m.wg.Wait()

	m.mu.Lock()
	pending := make([]*pendingLogin, 0, len(m.pending))
	for phone, p := range m.pending {
		pending = append(pending, p)
		delete(m.pending, phone)
	}
	m.mu.Unlock()

	for _, p := range pending {
		m.closePending(p)
	}
	m.logger.Info().Msg("auth manager stopped")
}

// load returns the live pending login for the phone, evicting it when
// expired.
func (m *AuthManager) load(phone string) (*pendingLogin, error) {
	m.mu.Lock()
	p, exists := m.pending[phone]
	if !exists {
		m.mu.Unlock()
		return nil, accounterrors.ErrLoginNotFound
	}
	if time.Now().After(p.expiresAt) {
		delete(m.pending, phone)
		m.mu.Unlock()
		m.closePending(p)
		return nil, accounterrors.ErrLoginExpired
	}
	m.mu.Unlock()
	return p, nil
}

// finish removes a completed login and releases its client. The
// session blob was already persisted by the client's session storage
// during the sign-in exchange.
func (m *AuthManager) finish(p *pendingLogin) {
	m.mu.Lock()
	delete(m.pending, p.phone)
	m.mu.Unlock()
	m.closePending(p)
}

// janitor periodically evicts expired pending logins
func (m *AuthManager) janitor() {
	defer m.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			var expired []*pendingLogin
			now := time.Now()
			for phone, p := range m.pending {
				if now.After(p.expiresAt) {
					expired = append(expired, p)
					delete(m.pending, phone)
				}
			}
			m.mu.Unlock()

			for _, p := range expired {
				m.logger.Info().
					Str("phone", logger.MaskPhone(p.phone)).
					Msg("expired pending login evicted")
				m.closePending(p)
			}
		}
	}
}

func (m *AuthManager) closePending(p *pendingLogin) {
	m.closePendingClient(p.client)
}

func (m *AuthManager) closePendingClient(client *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("failed to disconnect pending login client")
	}
}
