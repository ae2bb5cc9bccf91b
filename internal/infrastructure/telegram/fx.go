package telegram

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/supersunho/senseinfo/config"
	"github.com/supersunho/senseinfo/internal/domain"
	"github.com/supersunho/senseinfo/internal/infrastructure/metrics"
	"github.com/supersunho/senseinfo/internal/infrastructure/proxy"
)

// Module provides the platform client infrastructure for fx DI
var Module = fx.Module("telegram",
	fx.Provide(NewManagerFx),
	fx.Provide(NewAuthManagerFx),
	fx.Provide(func(m *Manager) domain.ConnectionManager { return m }),
)

// NewManagerFx creates the connection manager with lifecycle hooks for
// fx DI. New connections draw an egress from the rotator cycle.
func NewManagerFx(
	lc fx.Lifecycle,
	telegramCfg *config.TelegramConfig,
	monitorCfg *config.MonitorConfig,
	creds domain.CredentialSource,
	rotator *proxy.Rotator,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Manager {
	factory := func(accountID uint) (domain.Conn, error) {
		client, err := NewClient(ClientOptions{
			AccountID:   accountID,
			APIID:       telegramCfg.APIID,
			APIHash:     telegramCfg.APIHash,
			Storage:     newAccountSessionStorage(creds, accountID),
			Egress:      rotator.Next(),
			EventBuffer: monitorCfg.EventBuffer,
			Metrics:     m,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	manager := NewManager(factory, creds, m, logger)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			manager.ReleaseAll(ctx)
			return nil
		},
	})

	return manager
}

// NewAuthManagerFx creates the auth manager for fx DI. Login clients
// are one-off, so they take an unpooled random egress instead of a
// slot in the rotator cycle.
func NewAuthManagerFx(
	lc fx.Lifecycle,
	telegramCfg *config.TelegramConfig,
	creds domain.CredentialSource,
	rotator *proxy.Rotator,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *AuthManager {
	factory := func(accountID uint) (*Client, error) {
		return NewClient(ClientOptions{
			AccountID: accountID,
			APIID:     telegramCfg.APIID,
			APIHash:   telegramCfg.APIHash,
			Storage:   newAccountSessionStorage(creds, accountID),
			Egress:    rotator.Random(),
			Metrics:   m,
			Logger:    logger,
		})
	}

	manager := NewAuthManager(factory, 5*time.Minute, logger)

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			manager.Stop()
			return nil
		},
	})

	return manager
}
