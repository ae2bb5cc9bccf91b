package telegram

import (
	"context"
	"fmt"

	"github.com/gotd/td/session"

	"github.com/supersunho/senseinfo/internal/domain"
)

// accountSessionStorage implements session.Storage over the account
// credential store. The MTProto client reads and refreshes the opaque
// session blob through it; an empty blob means a fresh login.
type accountSessionStorage struct {
	creds     domain.CredentialSource
	accountID uint
}

// newAccountSessionStorage binds session persistence to one account row
func newAccountSessionStorage(creds domain.CredentialSource, accountID uint) *accountSessionStorage {
	return &accountSessionStorage{
		creds:     creds,
		accountID: accountID,
	}
}

// LoadSession loads the session blob for the bound account
func (s *accountSessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	data, err := s.creds.LoadSession(ctx, s.accountID)
	if err != nil {
		return nil, fmt.Errorf("load session for account %d: %w", s.accountID, err)
	}
	if len(data) == 0 {
		return nil, session.ErrNotFound
	}
	return data, nil
}

// StoreSession persists a refreshed session blob for the bound account
func (s *accountSessionStorage) StoreSession(ctx context.Context, data []byte) error {
	if err := s.creds.StoreSession(ctx, s.accountID, data); err != nil {
		return fmt.Errorf("store session for account %d: %w", s.accountID, err)
	}
	return nil
}

// Ensure accountSessionStorage implements session.Storage interface
var _ session.Storage = (*accountSessionStorage)(nil)
