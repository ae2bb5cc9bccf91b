package telegram

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/supersunho/senseinfo/internal/domain"
	"github.com/supersunho/senseinfo/internal/infrastructure/metrics"
)

// ConnFactory creates a connection for an account. The egress
// assignment happens inside the factory, once per new connection.
type ConnFactory func(accountID uint) (domain.Conn, error)

// Manager owns at most one live connection per account. A single
// coarse lock serializes acquire and release across all accounts;
// reconnects are rare and fast relative to event processing, so the
// serialization is acceptable.
type Manager struct {
	mu      sync.Mutex
	conns   map[uint]domain.Conn
	factory ConnFactory
	creds   domain.CredentialSource
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewManager creates a new connection manager
func NewManager(
	factory ConnFactory,
	creds domain.CredentialSource,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Manager {
	return &Manager{
		conns:   make(map[uint]domain.Conn),
		factory: factory,
		creds:   creds,
		metrics: m,
		logger:  logger.With().Str("component", "connection_manager").Logger(),
	}
}

// Acquire returns the cached connection for the account, reconnecting a
// dead one once before evicting it, or opening a fresh connection when
// none is cached. A fresh connection is only opened for an account
// holding a session credential; the manager never caches an
// unauthenticated connection.
func (m *Manager) Acquire(ctx context.Context, accountID uint) (domain.Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conn, exists := m.conns[accountID]; exists {
		if conn.IsConnected() {
			return conn, nil
		}

		m.logger.Warn().Uint("account_id", accountID).Msg("cached connection is down, reconnecting")
		if m.metrics != nil {
			m.metrics.Reconnections.Inc()
		}
		if err := m.open(ctx, conn); err != nil {
			delete(m.conns, accountID)
			m.closeQuietly(ctx, accountID, conn)
			m.logger.Error().Err(err).Uint("account_id", accountID).Msg("reconnect failed, connection evicted")
			return nil, err
		}
		m.logger.Info().Uint("account_id", accountID).Msg("connection reestablished")
		return conn, nil
	}

	authenticated, err := m.creds.IsAuthenticated(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !authenticated {
		return nil, domain.ErrNotAuthenticated
	}

	conn, err := m.factory(accountID)
	if err != nil {
		return nil, err
	}
	if err := m.open(ctx, conn); err != nil {
		m.closeQuietly(ctx, accountID, conn)
		return nil, err
	}

	m.conns[accountID] = conn
	m.logger.Info().Uint("account_id", accountID).Msg("connection opened")
	return conn, nil
}

// Release closes and evicts one account's connection. Close errors are
// swallowed and logged; releasing an absent connection is a no-op.
func (m *Manager) Release(ctx context.Context, accountID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, exists := m.conns[accountID]
	if !exists {
		m.logger.Debug().Uint("account_id", accountID).Msg("no connection to release")
		return
	}

	delete(m.conns, accountID)
	if err := conn.Disconnect(ctx); err != nil {
		m.logger.Warn().Err(err).Uint("account_id", accountID).Msg("error closing connection")
	}
	m.logger.Info().Uint("account_id", accountID).Msg("connection released")
}

// ReleaseAll releases every cached connection. Used at shutdown.
func (m *Manager) ReleaseAll(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for accountID, conn := range m.conns {
		if err := conn.Disconnect(ctx); err != nil {
			m.logger.Warn().Err(err).Uint("account_id", accountID).Msg("error closing connection")
		}
		delete(m.conns, accountID)
	}
	m.logger.Info().Msg("all connections released")
}

// ActiveCount reports the number of cached connections
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// open drives the two-step transition to a usable connection: dial the
// transport, then verify the stored credential with a self-lookup.
func (m *Manager) open(ctx context.Context, conn domain.Conn) error {
	if err := conn.Connect(ctx); err != nil {
		return err
	}
	if _, err := conn.Authenticate(ctx); err != nil {
		return err
	}
	return nil
}

// closeQuietly disconnects a connection that failed to open fully
func (m *Manager) closeQuietly(ctx context.Context, accountID uint, conn domain.Conn) {
	if err := conn.Disconnect(ctx); err != nil {
		m.logger.Warn().Err(err).Uint("account_id", accountID).Msg("cleanup disconnect failed")
	}
}

// Ensure Manager implements domain.ConnectionManager interface
var _ domain.ConnectionManager = (*Manager)(nil)
